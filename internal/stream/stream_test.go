package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samsaffron/streammd/internal/markdown"
	"github.com/samsaffron/streammd/internal/render"
)

// chunkSource yields fixed chunks then io.EOF.
type chunkSource struct {
	chunks []string
	pos    int
}

func (s *chunkSource) Next(ctx context.Context) (string, error) {
	if s.pos >= len(s.chunks) {
		return "", io.EOF
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}

// errSource yields fixed chunks then a terminal error.
type errSource struct {
	chunks []string
	pos    int
	err    error
}

func (s *errSource) Next(ctx context.Context) (string, error) {
	if s.pos >= len(s.chunks) {
		return "", s.err
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}

// blockSource blocks until the run is cancelled.
type blockSource struct {
	started chan struct{}
	once    sync.Once
}

func (s *blockSource) Next(ctx context.Context) (string, error) {
	s.once.Do(func() { close(s.started) })
	<-ctx.Done()
	return "", ctx.Err()
}

// recordingSink captures publications for assertions.
type recordingSink struct {
	mu       sync.Mutex
	pubs     []Publication
	finished bool
	err      error
}

func (s *recordingSink) Publish(p Publication) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pubs = append(s.pubs, p)
}

func (s *recordingSink) Finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = true
	s.err = err
}

func (s *recordingSink) snapshot() ([]Publication, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Publication(nil), s.pubs...), s.finished, s.err
}

func waitDone(t *testing.T, r *Run) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}
}

func TestRunPublishesOnlyCompletePrefixes(t *testing.T) {
	src := &chunkSource{chunks: []string{"hello ", "**wor", "ld** done"}}
	sink := &recordingSink{}

	r := Start(context.Background(), src, sink, Options{})
	waitDone(t, r)

	pubs, finished, err := sink.snapshot()
	if err != nil {
		t.Fatalf("sink error = %v", err)
	}
	if !finished {
		t.Fatal("sink was never finished")
	}

	want := []string{"hello ", "hello **world** done"}
	if len(pubs) != len(want) {
		t.Fatalf("publications = %d, want %d: %+v", len(pubs), len(want), pubs)
	}
	for i, w := range want {
		if pubs[i].Markdown != w {
			t.Errorf("pub[%d].Markdown = %q, want %q", i, pubs[i].Markdown, w)
		}
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v, want nil", r.Err())
	}
}

func TestRunFlushesFinalBufferWhenIncomplete(t *testing.T) {
	// The buffer never classifies as complete, so only the end-of-stream
	// flush publishes it.
	src := &chunkSource{chunks: []string{"see [docs](http://exam", "ple.com"}}
	sink := &recordingSink{}

	r := Start(context.Background(), src, sink, Options{})
	waitDone(t, r)

	pubs, _, _ := sink.snapshot()
	if len(pubs) != 1 {
		t.Fatalf("publications = %d, want 1: %+v", len(pubs), pubs)
	}
	if want := "see [docs](http://example.com"; pubs[0].Markdown != want {
		t.Errorf("final flush = %q, want %q", pubs[0].Markdown, want)
	}
}

func TestRunPublishesFinalBufferExactlyOnce(t *testing.T) {
	// The last increment classifies as complete, so the end-of-stream
	// flush must not publish it a second time.
	src := &chunkSource{chunks: []string{"all done."}}
	sink := &recordingSink{}

	r := Start(context.Background(), src, sink, Options{})
	waitDone(t, r)

	pubs, finished, _ := sink.snapshot()
	if len(pubs) != 1 {
		t.Fatalf("publications = %d, want 1: %+v", len(pubs), pubs)
	}
	if !finished {
		t.Error("sink was never finished")
	}
}

func TestRunPublicationsGrowStrictlyByPrefix(t *testing.T) {
	doc := "# Title\n\nhello **world** and `code` here.\n\n- one\n- two\n"
	var chunks []string
	for _, r := range doc {
		chunks = append(chunks, string(r))
	}
	sink := &recordingSink{}

	r := Start(context.Background(), &chunkSource{chunks: chunks}, sink, Options{})
	waitDone(t, r)

	pubs, _, _ := sink.snapshot()
	if len(pubs) == 0 {
		t.Fatal("no publications")
	}
	prev := ""
	for i, p := range pubs {
		if p.Seq != i+1 {
			t.Errorf("pub[%d].Seq = %d, want %d", i, p.Seq, i+1)
		}
		if len(p.Markdown) <= len(prev) {
			t.Errorf("pub[%d] did not grow: %q after %q", i, p.Markdown, prev)
		}
		if !strings.HasPrefix(p.Markdown, prev) {
			t.Errorf("pub[%d] = %q is not an extension of %q", i, p.Markdown, prev)
		}
		if !markdown.Complete(p.Markdown) {
			t.Errorf("pub[%d] = %q is not renderable", i, p.Markdown)
		}
		prev = p.Markdown
	}
	if last := pubs[len(pubs)-1].Markdown; last != doc {
		t.Errorf("last publication = %q, want the full document", last)
	}
}

func TestRunStopIsSilentAndIdempotent(t *testing.T) {
	src := &blockSource{started: make(chan struct{})}
	sink := &recordingSink{}

	r := Start(context.Background(), src, sink, Options{})
	<-src.started

	r.Stop()
	r.Stop() // second stop must be a no-op
	waitDone(t, r)

	if err := r.Err(); err != nil {
		t.Errorf("Err() after Stop = %v, want nil", err)
	}
	pubs, finished, err := sink.snapshot()
	if len(pubs) != 0 {
		t.Errorf("publications after stop = %+v, want none", pubs)
	}
	if !finished || err != nil {
		t.Errorf("sink finished=%v err=%v, want finished with nil", finished, err)
	}
}

func TestRunSurfacesTransportError(t *testing.T) {
	wantErr := errors.New("connection reset by peer")
	src := &errSource{chunks: []string{"partial text "}, err: wantErr}
	sink := &recordingSink{}

	r := Start(context.Background(), src, sink, Options{})
	waitDone(t, r)

	if !errors.Is(r.Err(), wantErr) {
		t.Errorf("Err() = %v, want %v", r.Err(), wantErr)
	}
	pubs, finished, err := sink.snapshot()
	if !finished || !errors.Is(err, wantErr) {
		t.Errorf("sink finished=%v err=%v, want the transport error", finished, err)
	}
	// What was already published stays; the buffer is not flushed on error.
	if len(pubs) != 1 || pubs[0].Markdown != "partial text " {
		t.Errorf("publications = %+v, want the one complete prefix", pubs)
	}
}

func TestRunRenderFailureSubstitutesFragment(t *testing.T) {
	src := &chunkSource{chunks: []string{"fine ", "boom"}}
	sink := &recordingSink{}

	opts := Options{
		Render: func(md string) (string, error) {
			if strings.Contains(md, "boom") {
				return "", errors.New("renderer exploded")
			}
			return "<p>" + md + "</p>", nil
		},
	}
	r := Start(context.Background(), src, sink, opts)
	waitDone(t, r)

	if r.Err() != nil {
		t.Fatalf("render failure must not terminate the run: %v", r.Err())
	}
	pubs, finished, err := sink.snapshot()
	if !finished || err != nil {
		t.Fatalf("sink finished=%v err=%v, want clean finish", finished, err)
	}
	if len(pubs) != 2 {
		t.Fatalf("publications = %d, want 2: %+v", len(pubs), pubs)
	}
	if pubs[0].Rendered != "<p>fine </p>" {
		t.Errorf("pub[0].Rendered = %q", pubs[0].Rendered)
	}
	if pubs[1].Rendered != render.ErrorFragment {
		t.Errorf("pub[1].Rendered = %q, want the error fragment", pubs[1].Rendered)
	}
	if pubs[1].Markdown != "fine boom" {
		t.Errorf("pub[1].Markdown = %q, want the raw buffer", pubs[1].Markdown)
	}
}

func TestRunEmptySourcePublishesNothing(t *testing.T) {
	sink := &recordingSink{}
	r := Start(context.Background(), &chunkSource{}, sink, Options{})
	waitDone(t, r)

	pubs, finished, err := sink.snapshot()
	if len(pubs) != 0 {
		t.Errorf("publications = %+v, want none", pubs)
	}
	if !finished || err != nil {
		t.Errorf("sink finished=%v err=%v, want clean finish", finished, err)
	}
}

func TestRunCustomClassify(t *testing.T) {
	// A classifier that holds everything back forces a single final flush.
	src := &chunkSource{chunks: []string{"one ", "two ", "three"}}
	sink := &recordingSink{}

	opts := Options{Classify: func(string) bool { return false }}
	r := Start(context.Background(), src, sink, opts)
	waitDone(t, r)

	pubs, _, _ := sink.snapshot()
	if len(pubs) != 1 || pubs[0].Markdown != "one two three" {
		t.Errorf("publications = %+v, want single final flush", pubs)
	}
}

func ExampleStart() {
	src := NewScript([]ScriptStep{
		{Chunk: "hello "},
		{Chunk: "**wor"},
		{Chunk: "ld**"},
	})
	sink := &printSink{}
	r := Start(context.Background(), src, sink, Options{})
	<-r.Done()
	// Output:
	// hello
	// hello **world**
	// done
}

type printSink struct{}

func (printSink) Publish(p Publication) { fmt.Println(strings.TrimSpace(p.Markdown)) }
func (printSink) Finish(err error)      { fmt.Println("done") }
