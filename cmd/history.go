package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/samsaffron/streammd/internal/clipboard"
	"github.com/samsaffron/streammd/internal/config"
	"github.com/samsaffron/streammd/internal/history"
	"github.com/samsaffron/streammd/internal/render"
	"github.com/samsaffron/streammd/internal/term"
)

var (
	historyLimit int
	historyRaw   bool
	historyCopy  bool
	historyForce bool
)

var dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#928374"))

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List, reread, and search past runs",
	Long: `history works with the run archive. Every finished play or ask run is
recorded (unless history is disabled, --no-history was set, or the
prompt matches a history.skip pattern).

Examples:
  streammd history                      # recent runs
  streammd history show 42              # re-render one run
  streammd history show 42 --raw        # original markdown
  streammd history show 42 --copy       # markdown onto the clipboard
  streammd history search "code fences"
  streammd history rm 42`,
	RunE: runHistoryList,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over prompts and documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHistorySearch,
}

var historyRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete one recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryRm,
}

func init() {
	historyCmd.PersistentFlags().IntVar(&historyLimit, "limit", 20, "Maximum rows to show")
	historyShowCmd.Flags().BoolVar(&historyRaw, "raw", false, "Print the stored markdown without rendering")
	historyShowCmd.Flags().BoolVar(&historyCopy, "copy", false, "Copy the stored markdown to the clipboard")
	historyShowCmd.MarkFlagsMutuallyExclusive("raw", "copy")
	historyRmCmd.Flags().BoolVar(&historyForce, "force", false, "Delete without confirmation")
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historySearchCmd, historyRmCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory() (*history.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg.HistoryPath(), cfg.History.Skip)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded yet")
		return nil
	}

	width := term.Width(os.Stdout, 100)
	// Fixed columns: id, time, mode, provider, status. The prompt gets
	// whatever is left.
	promptWidth := width - 4 - 1 - 12 - 1 - 4 - 1 - 9 - 1 - 7 - 1
	if promptWidth < 10 {
		promptWidth = 10
	}

	for _, r := range runs {
		provider := r.Provider
		if provider == "" {
			provider = "-"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%4d %s %-4s %-9s %-7s %s\n",
			r.ID,
			dimStyle.Render(r.CreatedAt.Local().Format("Jan 02 15:04")),
			r.Mode,
			runewidth.Truncate(provider, 9, "…"),
			r.Status,
			runewidth.Truncate(oneLine(r.Prompt), promptWidth, "…"),
		)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q", args[0])
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %d not found", id)
	}

	if historyCopy {
		if err := clipboard.CopyText(run.Markdown); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "copied run %d to clipboard\n", id)
		return nil
	}

	header := fmt.Sprintf("#%d  %s  %s", run.ID, run.Mode, run.CreatedAt.Local().Format("Jan 02 15:04"))
	if run.Provider != "" {
		header += fmt.Sprintf("  %s/%s", run.Provider, run.Model)
	}
	header += fmt.Sprintf("  %s  %s  %d publications", run.Status, run.Duration.Round(time.Millisecond), run.Publications)
	fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render(header))
	if run.Error != "" {
		fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("error: "+run.Error))
	}
	fmt.Fprintln(cmd.OutOrStdout())

	if historyRaw || !term.IsTerminal(os.Stdout) {
		fmt.Fprintln(cmd.OutOrStdout(), run.Markdown)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	style, width, err := resolveDisplay(cfg, "", 0)
	if err != nil {
		return err
	}
	out, err := render.Terminal(run.Markdown, style, width)
	if err != nil {
		out = run.Markdown
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func runHistorySearch(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	query := strings.Join(args, " ")
	results, err := store.Search(cmd.Context(), query, historyLimit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no runs match %q\n", query)
		return nil
	}

	width := term.Width(os.Stdout, 100)
	for _, r := range results {
		snippetWidth := width - 4 - 1 - 12 - 1
		if snippetWidth < 10 {
			snippetWidth = 10
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%4d %s %s\n",
			r.ID,
			dimStyle.Render(r.CreatedAt.Local().Format("Jan 02 15:04")),
			runewidth.Truncate(oneLine(r.Snippet), snippetWidth, "…"),
		)
	}
	return nil
}

func runHistoryRm(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q", args[0])
	}

	if !historyForce && term.IsTerminal(os.Stdin) {
		var confirmed bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Delete run %d?", id)).
					Affirmative("Yes").
					Negative("No").
					Value(&confirmed),
			),
		).WithShowHelp(false)
		if err := form.Run(); err != nil {
			return err
		}
		if !confirmed {
			return nil
		}
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted run %d\n", id)
	return nil
}

// oneLine flattens a prompt or snippet for column display.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
