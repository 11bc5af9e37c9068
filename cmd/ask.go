package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/samsaffron/streammd/internal/config"
	"github.com/samsaffron/streammd/internal/llm"
	"github.com/samsaffron/streammd/internal/publish"
	"github.com/samsaffron/streammd/internal/stream"
	"github.com/samsaffron/streammd/internal/term"
)

// defaultInstructions is sent as the system prompt unless the config
// overrides it. Answers come back as markdown, which is the input the
// incremental renderer expects.
const defaultInstructions = "Respond in markdown with proper formatting. " +
	"Use headings, lists, code fences and emphasis where they help."

var (
	askProvider  string
	askStyle     string
	askWidth     int
	askTUI       bool
	askHTML      bool
	askRaw       bool
	askTelegram  bool
	askMaxTokens int
	askNoHistory bool
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Stream a model answer as incrementally rendered markdown",
	Long: `ask sends a prompt to the configured provider and renders the streamed
answer as it arrives. The display only updates at points where the text
is renderable, so nothing ever flashes half-formatted.

Without a prompt argument, piped stdin is used, or an input prompt is
shown on a terminal. Ctrl+C stops the stream; whatever was already
shown stays.

Examples:
  streammd ask "compare btrfs and zfs for a home NAS"
  streammd ask -p anthropic:claude-sonnet-4-5 "explain io_uring"
  streammd ask --tui "write a long tutorial on cgroups"
  streammd ask --raw "draft release notes" > notes.md
  git diff | streammd ask --telegram`,
	Args: cobra.ArbitraryArgs,
	RunE: runAsk,
}

func init() {
	AddProviderFlag(askCmd, &askProvider)
	AddStyleFlag(askCmd, &askStyle)
	AddWidthFlag(askCmd, &askWidth)
	AddOutputFlags(askCmd, &askTUI, &askHTML)
	askCmd.Flags().BoolVar(&askRaw, "raw", false, "Print the final answer as unrendered markdown")
	askCmd.Flags().BoolVar(&askTelegram, "telegram", false, "Stream the answer into the configured Telegram chat")
	askCmd.Flags().IntVar(&askMaxTokens, "max-tokens", 0, "Cap the response length in tokens")
	AddNoHistoryFlag(askCmd, &askNoHistory)
	askCmd.MarkFlagsMutuallyExclusive("tui", "html", "raw", "telegram")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	name, model, err := askProviderModel(cfg)
	if err != nil {
		return err
	}
	cfg.ApplyOverrides(name, model)

	// Credentials are checked here, before any prompt is read or any
	// request goes out.
	provider, err := llm.NewProviderByName(cfg, cfg.Provider)
	if err != nil {
		return err
	}

	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		prompt, err = readPrompt(cmd)
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	if prompt == "" {
		return errors.New("nothing to ask")
	}

	style, width, err := resolveDisplay(cfg, askStyle, askWidth)
	if err != nil {
		return err
	}

	instructions := cfg.Ask.Instructions
	if instructions == "" {
		instructions = defaultInstructions
	}

	p := runParams{
		mode:      "ask",
		label:     provider.Name(),
		provider:  cfg.Provider,
		model:     activeModel(cfg),
		prompt:    prompt,
		style:     style,
		width:     width,
		noHistory: askNoHistory,
	}
	switch {
	case askTUI:
		p.output = outputTUI
	case askTelegram:
		tg, err := telegramSink(cfg)
		if err != nil {
			return err
		}
		p.output = outputTelegram
		p.telegram = tg
	case askRaw:
		p.output = outputText
	case askHTML || !term.IsTerminal(os.Stdout):
		p.output = outputHTML
	}

	llmStream, err := provider.Stream(cmd.Context(), llm.Request{
		System:    instructions,
		Prompt:    prompt,
		MaxTokens: askMaxTokens,
	})
	if err != nil {
		return err
	}

	return runStream(cmd, cfg, stream.NewLive(llmStream), p)
}

// askProviderModel resolves the provider name and model override from
// the flag and config, in that order.
func askProviderModel(cfg *config.Config) (string, string, error) {
	spec := askProvider
	if spec == "" {
		spec = cfg.Ask.Provider
	}
	if spec == "" {
		return cfg.Provider, cfg.Ask.Model, nil
	}
	name, model, err := llm.ParseProviderModel(spec)
	if err != nil {
		return "", "", err
	}
	if model == "" {
		model = cfg.Ask.Model
	}
	return name, model, nil
}

// activeModel reports the model the resolved provider will use, for the
// history record and the debug trace.
func activeModel(cfg *config.Config) string {
	switch cfg.Provider {
	case "anthropic":
		return cfg.Anthropic.Model
	case "openai":
		return cfg.OpenAI.Model
	case "gemini":
		return cfg.Gemini.Model
	case "lorem":
		return cfg.Lorem.Model
	}
	return ""
}

// readPrompt pulls the question from piped stdin, or asks for it
// interactively on a terminal.
func readPrompt(cmd *cobra.Command) (string, error) {
	if !term.IsTerminal(os.Stdin) {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	var prompt string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("What do you want to ask?").
				Value(&prompt),
		),
	).WithShowHelp(false)
	if err := form.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(prompt), nil
}

func telegramSink(cfg *config.Config) (*publish.Telegram, error) {
	if cfg.Telegram.Token == "" {
		return nil, errors.New("telegram token not configured: set TELEGRAM_BOT_TOKEN or telegram.token in the config file")
	}
	if cfg.Telegram.ChatID == 0 {
		return nil, errors.New("telegram chat not configured: set telegram.chat_id in the config file")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	return publish.NewTelegram(bot, cfg.Telegram.ChatID), nil
}
