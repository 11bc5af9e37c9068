// Package stream drives incremental markdown output from a source to a
// publisher. Each increment is appended to the run's buffer; the buffer
// is published only when it classifies as renderable, so a sink never
// shows a syntactically broken fragment. Publications grow strictly by
// prefix and the final buffer is flushed exactly once.
package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/samsaffron/streammd/internal/markdown"
	"github.com/samsaffron/streammd/internal/render"
)

// Source yields text increments until io.EOF.
type Source interface {
	Next(ctx context.Context) (string, error)
}

// Publication is one snapshot delivered to the sink: a prefix of the
// run's buffer plus its rendered form.
type Publication struct {
	Seq      int
	Markdown string
	Rendered string
}

// Publisher receives monotonically growing snapshots of a run, then a
// single Finish call. A nil error means the run ended cleanly or was
// cancelled; cancellation is not an error.
type Publisher interface {
	Publish(p Publication)
	Finish(err error)
}

// Options tunes a run.
type Options struct {
	// Classify decides whether a buffer snapshot may be published.
	// Defaults to markdown.Complete.
	Classify func(text string) bool
	// Render produces the published form of a snapshot. A nil Render
	// publishes the raw markdown. A render error substitutes the fixed
	// error fragment and does not terminate the run.
	Render func(markdown string) (string, error)
}

// Run is the handle for one streaming run.
type Run struct {
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
	err      error // valid once done is closed
}

// Start begins consuming src and publishing to sink. The buffer always
// starts empty. The returned handle reports completion via Done and
// failure via Err.
func Start(ctx context.Context, src Source, sink Publisher, opts Options) *Run {
	ctx, cancel := context.WithCancel(ctx)
	r := &Run{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go r.loop(ctx, src, sink, opts)
	return r
}

// Stop cancels the run. Idempotent and silent: stopping does not count
// as a failure, and publications made so far stand.
func (r *Run) Stop() {
	r.stopOnce.Do(r.cancel)
}

// Done is closed when the run has fully wound down.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Err reports the run's terminal error. It is nil until Done is closed,
// nil after a clean or cancelled run, and the transport error otherwise.
func (r *Run) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

func (r *Run) loop(ctx context.Context, src Source, sink Publisher, opts Options) {
	defer close(r.done)
	defer r.cancel()

	classify := opts.Classify
	if classify == nil {
		classify = markdown.Complete
	}

	var buf strings.Builder
	lastPublished := 0
	seq := 0

	publish := func(text string) {
		rendered := text
		if opts.Render != nil {
			out, err := opts.Render(text)
			if err != nil {
				out = render.ErrorFragment
			}
			rendered = out
		}
		seq++
		sink.Publish(Publication{Seq: seq, Markdown: text, Rendered: rendered})
		lastPublished = len(text)
	}

	for {
		chunk, err := src.Next(ctx)
		if chunk != "" {
			buf.WriteString(chunk)
			if text := buf.String(); len(text) > lastPublished && classify(text) {
				publish(text)
			}
		}

		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF):
			// Flush the full buffer unless it was already the last
			// publication, so the final text goes out exactly once.
			if text := buf.String(); len(text) > lastPublished {
				publish(text)
			}
			sink.Finish(nil)
			return
		case errors.Is(err, context.Canceled):
			sink.Finish(nil)
			return
		default:
			r.err = err
			sink.Finish(err)
			return
		}
	}
}
