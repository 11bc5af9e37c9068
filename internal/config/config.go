// Package config loads streammd settings from a YAML file in the XDG
// config directory, with environment variable fallbacks for API keys.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/spf13/viper"
)

// Cadence bounds for local playback. Values outside this range are
// clamped so a typo in the config cannot freeze or flood the terminal.
const (
	MinCadence = 5 * time.Millisecond
	MaxCadence = 2 * time.Second
)

type Config struct {
	Provider string         `mapstructure:"provider" yaml:"provider"`
	Play     PlayConfig     `mapstructure:"play" yaml:"play"`
	Ask      AskConfig      `mapstructure:"ask" yaml:"ask"`
	Markdown MarkdownConfig `mapstructure:"markdown" yaml:"markdown"`
	History  HistoryConfig  `mapstructure:"history" yaml:"history"`
	Telegram TelegramConfig `mapstructure:"telegram" yaml:"telegram"`
	Debug    DebugConfig    `mapstructure:"debug" yaml:"debug"`

	Anthropic AnthropicConfig `mapstructure:"anthropic" yaml:"anthropic"`
	OpenAI    OpenAIConfig    `mapstructure:"openai" yaml:"openai"`
	Gemini    GeminiConfig    `mapstructure:"gemini" yaml:"gemini"`
	Lorem     LoremConfig     `mapstructure:"lorem" yaml:"lorem"`
}

// PlayConfig configures local playback.
type PlayConfig struct {
	CadenceMs int    `mapstructure:"cadence_ms" yaml:"cadence_ms"` // delay between published characters
	Style     string `mapstructure:"style" yaml:"style"`           // terminal render style
	Width     int    `mapstructure:"width" yaml:"width"`           // 0 = detect from terminal
}

// Cadence returns the playback tick interval, clamped to sane bounds.
func (p PlayConfig) Cadence() time.Duration {
	d := time.Duration(p.CadenceMs) * time.Millisecond
	if d < MinCadence {
		return MinCadence
	}
	if d > MaxCadence {
		return MaxCadence
	}
	return d
}

// AskConfig configures the ask command.
type AskConfig struct {
	Provider     string `mapstructure:"provider" yaml:"provider"`         // override provider for ask
	Model        string `mapstructure:"model" yaml:"model"`               // override model for ask
	Instructions string `mapstructure:"instructions" yaml:"instructions"` // custom system prompt
}

// MarkdownConfig tunes the completeness classifier.
type MarkdownConfig struct {
	// RequireLinkURL keeps a link counted as open until its "](...)"
	// URL part starts. When false, a bare "]" closes it.
	RequireLinkURL bool `mapstructure:"require_link_url" yaml:"require_link_url"`
	// TrackFences carries fence state across lines, so text inside an
	// unclosed ``` block is held back until the closing fence.
	TrackFences bool `mapstructure:"track_fences" yaml:"track_fences"`
}

// HistoryConfig configures the run history database.
type HistoryConfig struct {
	Enabled bool     `mapstructure:"enabled" yaml:"enabled"`
	Path    string   `mapstructure:"path" yaml:"path,omitempty"` // empty = XDG data dir
	Skip    []string `mapstructure:"skip" yaml:"skip,omitempty"` // glob patterns of prompts never recorded
}

// TelegramConfig configures the Telegram publication sink.
type TelegramConfig struct {
	Token  string `mapstructure:"token" yaml:"token,omitempty"`
	ChatID int64  `mapstructure:"chat_id" yaml:"chat_id,omitempty"`
}

// DebugConfig configures JSONL debug logging.
type DebugConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir,omitempty"` // empty = XDG data dir
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model  string `mapstructure:"model" yaml:"model"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model  string `mapstructure:"model" yaml:"model"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model  string `mapstructure:"model" yaml:"model"`
}

type LoremConfig struct {
	Model string `mapstructure:"model" yaml:"model"`
}

func Load() (*Config, error) {
	configPath, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath(".")

	// Set defaults
	viper.SetDefault("provider", "lorem")
	viper.SetDefault("play.cadence_ms", 20)
	viper.SetDefault("play.style", "auto")
	viper.SetDefault("markdown.require_link_url", true)
	viper.SetDefault("markdown.track_fences", false)
	viper.SetDefault("history.enabled", true)
	viper.SetDefault("anthropic.model", "claude-sonnet-4-5")
	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("gemini.model", "gemini-2.5-flash")
	viper.SetDefault("lorem.model", "lorem")

	// Read config file (optional - won't error if missing)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	resolveCredentials(&cfg)
	cfg.History.Skip = validSkipPatterns(cfg.History.Skip)

	return &cfg, nil
}

// ApplyOverrides applies provider and model overrides to the config.
// If provider is non-empty, it overrides the global provider.
// If model is non-empty, it overrides the model for the active provider.
func (c *Config) ApplyOverrides(provider, model string) {
	if provider != "" {
		c.Provider = provider
	}
	if model != "" {
		switch c.Provider {
		case "anthropic":
			c.Anthropic.Model = model
		case "openai":
			c.OpenAI.Model = model
		case "gemini":
			c.Gemini.Model = model
		case "lorem":
			c.Lorem.Model = model
		}
	}
}

func resolveCredentials(cfg *Config) {
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	if cfg.Anthropic.APIKey == "" {
		cfg.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	cfg.OpenAI.APIKey = expandEnv(cfg.OpenAI.APIKey)
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	cfg.Gemini.APIKey = expandEnv(cfg.Gemini.APIKey)
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	cfg.Telegram.Token = expandEnv(cfg.Telegram.Token)
	if cfg.Telegram.Token == "" {
		cfg.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
}

// validSkipPatterns drops history skip globs that fail to compile, so
// one bad pattern does not disable the rest.
func validSkipPatterns(patterns []string) []string {
	valid := patterns[:0]
	for _, p := range patterns {
		if _, err := glob.Compile(p); err != nil {
			slog.Warn("ignoring invalid history skip pattern", "pattern", p, "error", err)
			continue
		}
		valid = append(valid, p)
	}
	return valid
}

// expandEnv expands ${VAR} or $VAR in a string
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}
	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}
	return s
}

// GetConfigDir returns the XDG config directory for streammd.
// Uses $XDG_CONFIG_HOME if set, otherwise ~/.config
func GetConfigDir() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, "streammd"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "streammd"), nil
}

// GetConfigPath returns the path where the config file should be located
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// GetDataDir returns the XDG data directory for streammd (history
// database, debug logs). Uses $XDG_DATA_HOME if set, otherwise
// ~/.local/share
func GetDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "streammd")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "streammd-data") // fallback
	}
	return filepath.Join(homeDir, ".local", "share", "streammd")
}

// HistoryPath returns the configured history database path, or the
// default location under the data dir.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return expandEnv(c.History.Path)
	}
	return filepath.Join(GetDataDir(), "history.db")
}

// DebugLogDir returns the configured debug log directory, or the
// default location under the data dir.
func (c *Config) DebugLogDir() string {
	if c.Debug.Dir != "" {
		return expandEnv(c.Debug.Dir)
	}
	return filepath.Join(GetDataDir(), "debug")
}

// Exists returns true if a config file exists
func Exists() bool {
	path, err := GetConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Save writes a starter config to disk.
func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content := fmt.Sprintf(`provider: %s

play:
  cadence_ms: %d
  style: %s

markdown:
  # Hold links open until their URL part starts. Set false to let a
  # bare "]" close a link.
  require_link_url: %t
  # Carry code fence state across lines instead of judging each line
  # on its own.
  track_fences: %t

history:
  enabled: %t
  # Prompts matching these globs are never recorded:
  # skip:
  #   - "*secret*"

anthropic:
  model: %s
  # api_key: ${ANTHROPIC_API_KEY}

openai:
  model: %s

gemini:
  model: %s
`, cfg.Provider, cfg.Play.CadenceMs, cfg.Play.Style,
		cfg.Markdown.RequireLinkURL, cfg.Markdown.TrackFences,
		cfg.History.Enabled,
		cfg.Anthropic.Model, cfg.OpenAI.Model, cfg.Gemini.Model)

	return os.WriteFile(path, []byte(content), 0600)
}
