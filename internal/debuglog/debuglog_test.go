package debuglog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/samsaffron/streammd/internal/stream"
)

func readEntries(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("bad JSONL line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggerWritesRunTrace(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir, "run-test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.LogRunStart("ask", "anthropic", "claude-sonnet-4-5", "explain channels")
	l.LogChunk(5, 5)
	l.LogChunk(3, 8)
	l.LogPublication(1, 8)
	l.LogRunEnd("done", nil, 1, 250*time.Millisecond)
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries := readEntries(t, filepath.Join(dir, "run-test.jsonl"))
	wantTypes := []string{"run_start", "chunk", "chunk", "publication", "run_end"}
	if len(entries) != len(wantTypes) {
		t.Fatalf("got %d entries, want %d", len(entries), len(wantTypes))
	}
	for i, want := range wantTypes {
		if entries[i]["type"] != want {
			t.Errorf("entry %d type = %v, want %q", i, entries[i]["type"], want)
		}
		if entries[i]["run_id"] != "run-test" {
			t.Errorf("entry %d run_id = %v", i, entries[i]["run_id"])
		}
	}
	if entries[0]["provider"] != "anthropic" {
		t.Errorf("run_start provider = %v", entries[0]["provider"])
	}
	if entries[4]["publications"] != float64(1) {
		t.Errorf("run_end publications = %v, want 1", entries[4]["publications"])
	}
}

func TestLoggerRecordsErrors(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir, "run-err")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.LogRunEnd("error", errors.New("connection reset"), 0, time.Second)
	l.Close()

	entries := readEntries(t, filepath.Join(dir, "run-err.jsonl"))
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0]["error"] != "connection reset" {
		t.Errorf("error = %v", entries[0]["error"])
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.LogRunStart("play", "", "", "")
	l.LogChunk(1, 1)
	l.LogPublication(1, 1)
	l.LogRunEnd("done", nil, 1, 0)
	l.Flush()
	if err := l.Close(); err != nil {
		t.Errorf("nil Close = %v, want nil", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	l, err := New(t.TempDir(), "run-close")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	// Writes after close are dropped, not crashed.
	l.LogChunk(1, 1)
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()

	old := filepath.Join(dir, "ancient.jsonl")
	if err := os.WriteFile(old, []byte("{}\n"), 0600); err != nil {
		t.Fatal(err)
	}
	stale := time.Now().Add(-8 * 24 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatal(err)
	}

	fresh := filepath.Join(dir, "recent.jsonl")
	if err := os.WriteFile(fresh, []byte("{}\n"), 0600); err != nil {
		t.Fatal(err)
	}
	other := filepath.Join(dir, "keep.txt")
	if err := os.WriteFile(other, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(other, stale, stale); err != nil {
		t.Fatal(err)
	}

	if err := CleanupOldLogs(dir, maxLogAge); err != nil {
		t.Fatalf("CleanupOldLogs: %v", err)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old trace should have been removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("recent trace should survive")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("non-jsonl files should never be touched")
	}
}

func TestNewRunIDIsUnique(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	if !strings.HasPrefix(a, "run-") {
		t.Errorf("id = %q, want run- prefix", a)
	}
	if a == b {
		t.Errorf("two ids collided: %q", a)
	}
}

// scriptedSource yields fixed chunks then EOF.
type scriptedSource struct {
	chunks []string
}

func (s *scriptedSource) Next(ctx context.Context) (string, error) {
	if len(s.chunks) == 0 {
		return "", io.EOF
	}
	chunk := s.chunks[0]
	s.chunks = s.chunks[1:]
	return chunk, nil
}

type countingSink struct {
	pubs int
	done bool
}

func (c *countingSink) Publish(p stream.Publication) { c.pubs++ }
func (c *countingSink) Finish(err error)             { c.done = true }

func TestTraceWrappersPassThrough(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir, "run-trace")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	src := TraceSource(&scriptedSource{chunks: []string{"hello ", "world"}}, l)
	sink := &countingSink{}
	traced := TraceSink(sink, l)

	for {
		chunk, err := src.Next(context.Background())
		if chunk != "" {
			traced.Publish(stream.Publication{Seq: sink.pubs + 1, Markdown: chunk})
		}
		if err != nil {
			traced.Finish(nil)
			break
		}
	}
	l.Close()

	if sink.pubs != 2 || !sink.done {
		t.Fatalf("inner sink saw %d publications, done=%v", sink.pubs, sink.done)
	}

	entries := readEntries(t, filepath.Join(dir, "run-trace.jsonl"))
	var chunks, pubs int
	for _, e := range entries {
		switch e["type"] {
		case "chunk":
			chunks++
		case "publication":
			pubs++
		}
	}
	if chunks != 2 || pubs != 2 {
		t.Errorf("trace has %d chunks and %d publications, want 2 and 2", chunks, pubs)
	}
}

func TestTraceWrappersNilLogger(t *testing.T) {
	src := &scriptedSource{}
	if got := TraceSource(src, nil); got != stream.Source(src) {
		t.Error("TraceSource(nil logger) should return the source unchanged")
	}
	sink := &countingSink{}
	if got := TraceSink(sink, nil); got != stream.Publisher(sink) {
		t.Error("TraceSink(nil logger) should return the sink unchanged")
	}
}
