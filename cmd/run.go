package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/samsaffron/streammd/internal/config"
	"github.com/samsaffron/streammd/internal/debuglog"
	"github.com/samsaffron/streammd/internal/history"
	"github.com/samsaffron/streammd/internal/markdown"
	"github.com/samsaffron/streammd/internal/publish"
	"github.com/samsaffron/streammd/internal/render"
	"github.com/samsaffron/streammd/internal/stream"
	"github.com/samsaffron/streammd/internal/term"
	"github.com/samsaffron/streammd/internal/tui"
)

// runOutput selects where publications go.
type runOutput int

const (
	outputTerm     runOutput = iota // in-place redraw on the terminal
	outputTUI                       // scrollable viewport
	outputHTML                      // final document as HTML on stdout
	outputText                      // final raw markdown on stdout
	outputTelegram                  // edits a Telegram message in place
)

// runParams carries everything runStream needs beyond the source
// itself: what to call the run, how to display it, and how to record
// it.
type runParams struct {
	mode      string // "play" or "ask"
	label     string // shown in the viewport status line
	provider  string
	model     string
	prompt    string
	style     string
	width     int
	output    runOutput
	telegram  *publish.Telegram // set when output is outputTelegram
	noHistory bool
}

// runStream drives src to the selected sink and blocks until the run
// winds down, then records it. SIGINT and SIGTERM cancel the run;
// cancellation is silent and whatever was already published stands.
func runStream(cmd *cobra.Command, cfg *config.Config, src stream.Source, p runParams) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var logger *debuglog.Logger
	if debugTrace {
		l, err := debuglog.New(cfg.DebugLogDir(), debuglog.NewRunID())
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: debug trace disabled: %v\n", err)
		} else {
			logger = l
			defer logger.Close()
		}
	}
	logger.LogRunStart(p.mode, p.provider, p.model, p.prompt)

	src = debuglog.TraceSource(src, logger)
	opts := stream.Options{Classify: classifier(cfg)}
	counter := &countingSink{}
	started := time.Now()

	var (
		finalErr error
		finished = true
		reported bool // a sink already showed the error to the user
	)

	switch p.output {
	case outputTUI:
		model := tui.New(p.label, p.style)
		counter.inner = debuglog.TraceSink(model.Sink(), logger)
		run := stream.Start(ctx, src, counter, opts)
		model.SetRun(run)

		prog := tea.NewProgram(model, tea.WithoutSignalHandler())
		final, err := prog.Run()
		if err != nil {
			run.Stop()
			<-run.Done()
			return fmt.Errorf("viewport failed: %w", err)
		}
		run.Stop()
		<-run.Done()
		finalErr = run.Err()
		finished = final.(*tui.Model).Finished()
		reported = true // the status line stays on screen after exit

	case outputTelegram:
		if err := p.telegram.Placeholder(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "streaming to Telegram, ctrl+c to stop")
		counter.inner = debuglog.TraceSink(p.telegram, logger)
		run := stream.Start(ctx, src, counter, opts)
		<-run.Done()
		finalErr = run.Err()

	case outputHTML, outputText:
		counter.inner = debuglog.TraceSink(nopSink{}, logger)
		run := stream.Start(ctx, src, counter, opts)
		<-run.Done()
		finalErr = run.Err()

		if _, doc := counter.snapshot(); doc != "" {
			if p.output == outputHTML {
				out, err := render.HTML(doc)
				if err != nil {
					out = render.ErrorFragment
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), doc)
			}
		}

	default:
		opts.Render = func(md string) (string, error) {
			return render.Terminal(md, p.style, p.width)
		}
		counter.inner = debuglog.TraceSink(term.NewSink(cmd.OutOrStdout(), p.width), logger)
		run := stream.Start(ctx, src, counter, opts)
		<-run.Done()
		finalErr = run.Err()
		reported = true // the sink prints the failure under the document
	}

	status := history.StatusDone
	switch {
	case finalErr != nil:
		status = history.StatusError
	case !finished || ctx.Err() != nil:
		status = history.StatusStopped
	}

	pubs, doc := counter.snapshot()
	recordRun(cmd, cfg, p, status, finalErr, doc, pubs, time.Since(started))
	logger.LogRunEnd(status, finalErr, pubs, time.Since(started))

	if finalErr != nil {
		if reported {
			return fmt.Errorf("%w: %v", errReported, finalErr)
		}
		return finalErr
	}
	if p.telegram != nil {
		if err := p.telegram.Err(); err != nil {
			return err
		}
	}
	return nil
}

// recordRun stores the finished run. Recording failures are warnings: a
// broken history database must not make a successful run look failed.
func recordRun(cmd *cobra.Command, cfg *config.Config, p runParams, status string, runErr error, doc string, pubs int, elapsed time.Duration) {
	if !cfg.History.Enabled || p.noHistory {
		return
	}
	store, err := history.Open(cfg.HistoryPath(), cfg.History.Skip)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: history not recorded: %v\n", err)
		return
	}
	defer store.Close()

	rec := &history.Run{
		Mode:         p.mode,
		Provider:     p.provider,
		Model:        p.model,
		Prompt:       p.prompt,
		Markdown:     doc,
		Status:       status,
		Duration:     elapsed,
		Publications: pubs,
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	// The run's context may already be cancelled; recording still counts.
	if err := store.Add(cmd.Context(), rec); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: history not recorded: %v\n", err)
	}
}

// classifier builds the publication gate from the configured markdown
// policy.
func classifier(cfg *config.Config) func(string) bool {
	opts := markdown.Options{
		RequireLinkURL:        cfg.Markdown.RequireLinkURL,
		TrackFenceAcrossLines: cfg.Markdown.TrackFences,
	}
	return func(text string) bool { return markdown.CompleteWith(text, opts) }
}

// resolveDisplay turns style and width flags plus config into concrete
// render parameters.
func resolveDisplay(cfg *config.Config, styleFlag string, widthFlag int) (string, int, error) {
	name := styleFlag
	if name == "" {
		name = cfg.Play.Style
	}
	style, err := render.ResolveStyle(name)
	if err != nil {
		return "", 0, err
	}

	width := widthFlag
	if width <= 0 {
		width = cfg.Play.Width
	}
	if width <= 0 {
		width = term.Width(os.Stdout, 80)
	}
	return style, width, nil
}

// countingSink tracks what the driver actually published, for the
// history record and the debug trace summary.
type countingSink struct {
	mu    sync.Mutex
	inner stream.Publisher
	count int
	last  string
}

func (s *countingSink) Publish(p stream.Publication) {
	s.mu.Lock()
	s.count++
	s.last = p.Markdown
	s.mu.Unlock()
	s.inner.Publish(p)
}

func (s *countingSink) Finish(err error) {
	s.inner.Finish(err)
}

func (s *countingSink) snapshot() (int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count, s.last
}

type nopSink struct{}

func (nopSink) Publish(stream.Publication) {}
func (nopSink) Finish(error)               {}
