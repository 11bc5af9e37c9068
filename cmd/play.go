package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/samsaffron/streammd/internal/clipboard"
	"github.com/samsaffron/streammd/internal/config"
	"github.com/samsaffron/streammd/internal/stream"
	"github.com/samsaffron/streammd/internal/term"
)

var (
	playText      string
	playScript    string
	playClipboard bool
	playCadence   int
	playStyle     string
	playWidth     int
	playTUI       bool
	playHTML      bool
	playNoHistory bool
)

var playCmd = &cobra.Command{
	Use:   "play [file]",
	Short: "Replay markdown into the terminal one character at a time",
	Long: `play feeds existing markdown through the incremental renderer, the way
a model response would arrive, one character per tick. The document only
updates at points where the text renders cleanly.

The file argument accepts ** globs; the first match plays. Without a
source, piped stdin plays, and on a terminal a built-in demo does.

Examples:
  streammd play README.md
  streammd play "docs/**/*.md"
  streammd play --text "# Hello **world**"
  streammd play --clipboard
  streammd play --script testdata/chunks.yaml
  cat notes.md | streammd play
  streammd play --cadence 5 --tui`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&playText, "text", "", "Play this literal markdown instead of a file")
	playCmd.Flags().StringVar(&playScript, "script", "", "Replay chunks from a YAML script, with their recorded delays")
	playCmd.Flags().BoolVar(&playClipboard, "clipboard", false, "Play the markdown currently on the clipboard")
	playCmd.Flags().IntVar(&playCadence, "cadence", 0, "Milliseconds between characters (overrides config)")
	AddStyleFlag(playCmd, &playStyle)
	AddWidthFlag(playCmd, &playWidth)
	AddOutputFlags(playCmd, &playTUI, &playHTML)
	AddNoHistoryFlag(playCmd, &playNoHistory)
	playCmd.MarkFlagsMutuallyExclusive("text", "script", "clipboard")
	playCmd.MarkFlagsMutuallyExclusive("tui", "html")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if playCadence > 0 {
		cfg.Play.CadenceMs = playCadence
	}

	style, width, err := resolveDisplay(cfg, playStyle, playWidth)
	if err != nil {
		return err
	}

	src, label, prompt, err := playSource(cmd, cfg, args)
	if err != nil {
		return err
	}

	output := outputTerm
	switch {
	case playTUI:
		output = outputTUI
	case playHTML || !term.IsTerminal(os.Stdout):
		output = outputHTML
	}

	return runStream(cmd, cfg, src, runParams{
		mode:      "play",
		label:     label,
		prompt:    prompt,
		style:     style,
		width:     width,
		output:    output,
		noHistory: playNoHistory,
	})
}

// playSource picks the text to replay. Precedence: --script, --text,
// --clipboard, file argument, piped stdin, demo document.
func playSource(cmd *cobra.Command, cfg *config.Config, args []string) (stream.Source, string, string, error) {
	if len(args) > 0 && (playText != "" || playScript != "" || playClipboard) {
		return nil, "", "", fmt.Errorf("cannot combine a file argument with --text, --script or --clipboard")
	}
	cadence := cfg.Play.Cadence()

	switch {
	case playScript != "":
		script, err := stream.LoadScript(playScript)
		if err != nil {
			return nil, "", "", err
		}
		return script, filepath.Base(playScript), playScript, nil

	case playText != "":
		return stream.NewPlayback(playText, cadence), "text", playText, nil

	case playClipboard:
		text, err := clipboard.ReadText()
		if err != nil {
			return nil, "", "", err
		}
		if strings.TrimSpace(text) == "" {
			return nil, "", "", fmt.Errorf("clipboard is empty")
		}
		return stream.NewPlayback(text, cadence), "clipboard", "(clipboard)", nil

	case len(args) > 0:
		path, err := expandPlayPattern(cmd, args[0])
		if err != nil {
			return nil, "", "", err
		}
		text, err := os.ReadFile(path)
		if err != nil {
			return nil, "", "", fmt.Errorf("read source: %w", err)
		}
		return stream.NewPlayback(string(text), cadence), filepath.Base(path), path, nil

	case !term.IsTerminal(os.Stdin):
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, "", "", fmt.Errorf("read stdin: %w", err)
		}
		return stream.NewPlayback(string(data), cadence), "stdin", "(stdin)", nil

	default:
		return stream.NewPlayback(demoDocument, cadence), "demo", "(demo)", nil
	}
}

// expandPlayPattern resolves a possibly-globbed path to one file.
func expandPlayPattern(cmd *cobra.Command, pattern string) (string, error) {
	if !strings.ContainsAny(pattern, "*?[{") {
		return pattern, nil
	}
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return "", fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no files match %q", pattern)
	}
	sort.Strings(matches)
	if len(matches) > 1 {
		fmt.Fprintf(cmd.ErrOrStderr(), "playing %s (%d other matches ignored)\n", matches[0], len(matches)-1)
	}
	return matches[0], nil
}

// demoDocument plays when no source is given, so a bare `streammd play`
// shows the renderer working.
const demoDocument = `# streammd

Text arrives in pieces, but **bold runs**, *emphasis*, and
[links](https://example.com) only appear once they are whole.

## What to watch for

1. The document grows without flicker.
2. Markers like ` + "`**`" + ` never show up half-open.
3. Code fences wait for their closing line:

` + "```go" + `
func Complete(text string) bool {
	// the tail line decides
	return true
}
` + "```" + `

> Blockquotes hold back until the line under the cursor
> can render on its own.

That is the whole trick: publish only prefixes that stand alone.
`
