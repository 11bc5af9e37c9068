package llm

import (
	"fmt"
	"strings"

	"github.com/samsaffron/streammd/internal/config"
)

// BuiltInProviderNames lists the providers accepted by provider flags
// and the "provider:" config key.
func BuiltInProviderNames() []string {
	return []string{"anthropic", "openai", "gemini", "lorem"}
}

// ParseProviderModel parses "provider:model" or just "provider" from a
// flag value. Model will be empty if not specified.
func ParseProviderModel(s string) (string, string, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) == 0 || strings.TrimSpace(parts[0]) == "" {
		return "", "", fmt.Errorf("invalid provider format: %q", s)
	}
	provider := strings.TrimSpace(parts[0])
	model := ""
	if len(parts) == 2 {
		model = strings.TrimSpace(parts[1])
	}

	for _, name := range BuiltInProviderNames() {
		if provider == name {
			return provider, model, nil
		}
	}
	return "", "", fmt.Errorf("unknown provider: %s (expected one of: %s)", provider, strings.Join(BuiltInProviderNames(), ", "))
}

// NewProvider creates the config's default provider, wrapped with
// automatic retry for rate limits and transient errors.
func NewProvider(cfg *config.Config) (Provider, error) {
	return NewProviderByName(cfg, cfg.Provider)
}

// NewProviderByName creates a provider by name. Missing credentials are
// reported here, before any request is made, so a misconfigured
// provider never reaches the network.
func NewProviderByName(cfg *config.Config, name string) (Provider, error) {
	provider, err := createProvider(cfg, name)
	if err != nil {
		return nil, err
	}
	return WrapWithRetry(provider, DefaultRetryConfig()), nil
}

func createProvider(cfg *config.Config, name string) (Provider, error) {
	switch name {
	case "anthropic":
		if cfg.Anthropic.APIKey == "" {
			return nil, missingKeyError(name, "ANTHROPIC_API_KEY", "anthropic.api_key")
		}
		return NewAnthropicProvider(cfg.Anthropic.APIKey, cfg.Anthropic.Model), nil

	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, missingKeyError(name, "OPENAI_API_KEY", "openai.api_key")
		}
		return NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.Model), nil

	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, missingKeyError(name, "GEMINI_API_KEY", "gemini.api_key")
		}
		return NewGeminiProvider(cfg.Gemini.APIKey, cfg.Gemini.Model), nil

	case "lorem":
		// Offline provider, no credentials needed
		return NewLoremProvider(cfg.Lorem.Model), nil

	default:
		return nil, fmt.Errorf("unknown provider: %s (expected one of: %s)", name, strings.Join(BuiltInProviderNames(), ", "))
	}
}

func missingKeyError(provider, envVar, configKey string) error {
	return fmt.Errorf("%s API key not configured: set %s or add %s to the config file", provider, envVar, configKey)
}
