package term

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/samsaffron/streammd/internal/stream"
)

func init() {
	// Pin the color profile so assertions see plain text regardless of
	// the environment running the tests.
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		name     string
		width    int
		rendered string
		want     int
	}{
		{name: "empty", width: 80, rendered: "", want: 0},
		{name: "single line no newline", width: 80, rendered: "hello", want: 1},
		{name: "trailing newline not counted twice", width: 80, rendered: "hello\n", want: 1},
		{name: "blank line counts", width: 80, rendered: "a\n\nb\n", want: 3},
		{name: "wrapping", width: 10, rendered: strings.Repeat("x", 25) + "\n", want: 3},
		{name: "exact width does not wrap", width: 10, rendered: strings.Repeat("x", 10) + "\n", want: 1},
		{name: "ansi sequences ignored", width: 10, rendered: "\x1b[31mred\x1b[0m\n", want: 1},
		{name: "zero width assumes no wrap", width: 0, rendered: strings.Repeat("x", 500) + "\n", want: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newController(&bytes.Buffer{}, tc.width)
			if got := c.CountLines(tc.rendered); got != tc.want {
				t.Errorf("CountLines(%q) = %d, want %d", tc.rendered, got, tc.want)
			}
		})
	}
}

func TestClearLines(t *testing.T) {
	var buf bytes.Buffer
	c := newController(&buf, 80)

	if err := c.ClearLines(0); err != nil {
		t.Fatalf("ClearLines(0) error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("ClearLines(0) wrote %q, want nothing", buf.String())
	}

	if err := c.ClearLines(3); err != nil {
		t.Fatalf("ClearLines(3) error = %v", err)
	}
	want := ansi.CursorUp(3) + ansi.CursorHorizontalAbsolute(1) + ansi.EraseDisplay(0)
	if got := buf.String(); got != want {
		t.Errorf("ClearLines(3) wrote %q, want %q", got, want)
	}
}

func TestSinkRedrawsInPlace(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf, 80)

	sink.Publish(stream.Publication{Seq: 1, Markdown: "hello", Rendered: "hello\n"})
	if got, want := buf.String(), "hello\n"; got != want {
		t.Fatalf("first draw = %q, want %q (no cursor movement)", got, want)
	}

	sink.Publish(stream.Publication{Seq: 2, Markdown: "hello world", Rendered: "hello world\n"})
	erase := ansi.CursorUp(1) + ansi.CursorHorizontalAbsolute(1) + ansi.EraseDisplay(0)
	if got, want := buf.String(), "hello\n"+erase+"hello world\n"; got != want {
		t.Errorf("second draw = %q, want %q", got, want)
	}
}

func TestSinkFinish(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf, 80)

	sink.Finish(nil)
	if buf.Len() != 0 {
		t.Errorf("clean finish wrote %q, want nothing", buf.String())
	}

	sink.Finish(errors.New("connection reset"))
	if !strings.Contains(buf.String(), "stream failed: connection reset") {
		t.Errorf("error finish output = %q", buf.String())
	}
}
