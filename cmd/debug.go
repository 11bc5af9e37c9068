package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samsaffron/streammd/internal/config"
	"github.com/samsaffron/streammd/internal/debuglog"
)

var (
	debugChunks     bool
	debugTimestamps bool
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Inspect stream traces recorded with --debug",
	Long: `debug lists and prints the JSONL traces that --debug records: every
source chunk, every publication, and the run outcome. Traces older
than a week are cleaned up automatically.

Examples:
  streammd ask --debug "why is the sky blue"
  streammd debug                 # recent traces
  streammd debug show 1          # newest trace
  streammd debug show 1 --chunks --timestamps
  streammd debug path`,
	RunE: runDebugList,
}

var debugListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded traces",
	Args:  cobra.NoArgs,
	RunE:  runDebugList,
}

var debugShowCmd = &cobra.Command{
	Use:   "show [number|run-id]",
	Short: "Print one trace",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDebugShow,
}

var debugPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the trace directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cfg.DebugLogDir())
		return nil
	},
}

func init() {
	debugShowCmd.Flags().BoolVar(&debugChunks, "chunks", false, "Include per-chunk entries")
	debugShowCmd.Flags().BoolVar(&debugTimestamps, "timestamps", false, "Prefix entries with wall time")
	debugCmd.AddCommand(debugListCmd, debugShowCmd, debugPathCmd)
	rootCmd.AddCommand(debugCmd)
}

func runDebugList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	traces, err := debuglog.ListTraces(cfg.DebugLogDir())
	if err != nil {
		return err
	}
	debuglog.FormatTraceList(cmd.OutOrStdout(), traces)
	return nil
}

func runDebugShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	identifier := "1"
	if len(args) > 0 {
		identifier = args[0]
	}

	summary, err := debuglog.ResolveTrace(cfg.DebugLogDir(), identifier)
	if err != nil {
		return err
	}
	if summary == nil {
		return fmt.Errorf("no trace matches %q", identifier)
	}

	trace, err := debuglog.ParseTrace(summary.Path)
	if err != nil {
		return err
	}
	debuglog.FormatTrace(cmd.OutOrStdout(), trace, debuglog.FormatOptions{
		ShowChunks:     debugChunks,
		ShowTimestamps: debugTimestamps,
	})
	return nil
}
