package debuglog

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var (
	fmtMuted = lipgloss.NewStyle().Foreground(lipgloss.Color("#928374"))
	fmtError = lipgloss.NewStyle().Foreground(lipgloss.Color("#fb4934"))
	fmtGood  = lipgloss.NewStyle().Foreground(lipgloss.Color("#b8bb26"))
	fmtBold  = lipgloss.NewStyle().Bold(true)
)

// FormatOptions controls how a trace is printed.
type FormatOptions struct {
	ShowChunks     bool // include per-chunk entries
	ShowTimestamps bool // prefix each entry with its wall time
}

// FormatTraceList prints traces as numbered rows, newest first.
func FormatTraceList(w io.Writer, traces []TraceSummary) {
	if len(traces) == 0 {
		fmt.Fprintln(w, "no traces found")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "run any command with --debug to record one")
		return
	}

	for i, t := range traces {
		errMark := " "
		if t.HasError {
			errMark = fmtError.Render("!")
		}

		label := t.Mode
		if t.Provider != "" {
			label += " " + t.Provider
			if t.Model != "" {
				label += "/" + t.Model
			}
		}
		if len(label) > 36 {
			label = label[:33] + "..."
		}

		fmt.Fprintf(w, "%s%3d. %s  %-36s %s\n",
			errMark,
			i+1,
			fmtMuted.Render(t.StartTime.Local().Format("Jan 02 15:04")),
			label,
			traceStats(t),
		)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, fmtMuted.Render("use `streammd debug show 1` to view a trace"))
}

// traceStats renders the compact status column of a listing row.
func traceStats(t TraceSummary) string {
	status := t.Status
	switch {
	case t.HasError:
		status = fmtError.Render(status)
	case t.Status == "done":
		status = fmtGood.Render(status)
	default:
		status = fmtMuted.Render(status)
	}
	return fmt.Sprintf("%s  %d pubs  %s", status, t.Publications, compactBytes(t.SourceBytes))
}

// compactBytes formats a byte count the way humans scan it.
func compactBytes(n int) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%dB", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1fKB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1fMB", float64(n)/(1024*1024))
	}
}

// FormatTrace prints one trace: a header, then its entries in order.
func FormatTrace(w io.Writer, trace *Trace, opts FormatOptions) {
	s := trace.Summary

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", fmtBold.Render("Trace:"), s.RunID)
	fmt.Fprintf(w, "%s %s\n", fmtMuted.Render("Mode:"), s.Mode)
	if s.Provider != "" {
		fmt.Fprintf(w, "%s %s/%s\n", fmtMuted.Render("Provider:"), s.Provider, s.Model)
	}
	if s.Prompt != "" {
		prompt := strings.Join(strings.Fields(s.Prompt), " ")
		fmt.Fprintf(w, "%s %s\n", fmtMuted.Render("Prompt:"), runewidth.Truncate(prompt, 110, "…"))
	}
	fmt.Fprintf(w, "%s %s\n", fmtMuted.Render("Started:"), s.StartTime.Local().Format("2006-01-02 15:04:05"))
	if s.Duration > 0 {
		fmt.Fprintf(w, "%s %s\n", fmtMuted.Render("Duration:"), s.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(w, "%s %s  %d publications  %d chunks  %s\n",
		fmtMuted.Render("Result:"),
		s.Status, s.Publications, s.Chunks, compactBytes(s.SourceBytes))
	if s.Error != "" {
		fmt.Fprintf(w, "%s %s\n", fmtMuted.Render("Error:"), fmtError.Render(s.Error))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, fmtMuted.Render(strings.Repeat("─", 60)))
	fmt.Fprintln(w)

	for _, entry := range trace.Entries {
		formatEntry(w, entry, opts)
	}

	if s.Truncated {
		fmt.Fprintln(w, fmtError.Render("trace cut off: the run never wrote its run_end entry"))
	}
}

func formatEntry(w io.Writer, entry TraceEntry, opts FormatOptions) {
	ts := ""
	if opts.ShowTimestamps {
		ts = fmtMuted.Render(entry.Timestamp.Local().Format("15:04:05.000")) + " "
	}

	switch entry.Type {
	case "run_start":
		fmt.Fprintf(w, "%s%s\n", ts, fmtBold.Render("RUN_START"))

	case "chunk":
		if !opts.ShowChunks {
			return
		}
		bytes, _ := entry.Data["bytes"].(float64)
		total, _ := entry.Data["total"].(float64)
		fmt.Fprintf(w, "%s%s +%d (total %s)\n",
			ts, fmtMuted.Render("CHUNK"), int(bytes), compactBytes(int(total)))

	case "publication":
		seq, _ := entry.Data["seq"].(float64)
		bytes, _ := entry.Data["bytes"].(float64)
		fmt.Fprintf(w, "%s%s #%d %s\n",
			ts, fmtBold.Render("PUBLICATION"), int(seq), compactBytes(int(bytes)))

	case "run_end":
		status, _ := entry.Data["status"].(string)
		pubs, _ := entry.Data["publications"].(float64)
		secs, _ := entry.Data["duration_secs"].(float64)
		rendered := fmtGood.Render("RUN_END")
		if errMsg, _ := entry.Data["error"].(string); errMsg != "" {
			rendered = fmtError.Render("RUN_END")
			fmt.Fprintf(w, "%s%s %s (%d publications in %.2fs): %s\n",
				ts, rendered, status, int(pubs), secs, errMsg)
			return
		}
		fmt.Fprintf(w, "%s%s %s (%d publications in %.2fs)\n",
			ts, rendered, status, int(pubs), secs)

	default:
		fmt.Fprintf(w, "%s%s\n", ts, entry.Type)
	}
}
