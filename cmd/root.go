package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/samsaffron/streammd/internal/update"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

func init() {
	rootCmd.Version = Version
	update.SetupUpdateChecks(rootCmd, Version)
	rootCmd.PersistentFlags().BoolVar(&debugTrace, "debug", false, "Write a JSONL trace of the run to the debug log directory")
}

var rootCmd = &cobra.Command{
	Use:   "streammd",
	Short: "Stream markdown without half-rendered fragments",
	Long: `streammd renders markdown that arrives in pieces. Output is republished
only when the text ends in a renderable state, so readers never see a
dangling **bold marker, a half-open link, or a broken code fence.

Examples:
  streammd play notes.md                  # replay a file into the terminal
  streammd play --text "# Hi" --tui       # scrollable viewport
  streammd ask "compare btrfs and zfs"    # stream a model answer
  streammd ask -p anthropic "why is the sky blue" --telegram
  streammd history search "btrfs"         # find an old run

  streammd config show                    # view configuration
  streammd styles                         # list render styles`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

var debugTrace bool

// errReported marks run failures a sink has already shown to the user,
// so Execute exits nonzero without repeating them.
var errReported = errors.New("run failed")

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
