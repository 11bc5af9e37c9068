package llm

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestLoremProviderStreamsFullDocument(t *testing.T) {
	p := NewLoremProvider("lorem-fast")

	stream, err := p.Stream(context.Background(), Request{Prompt: "Test Topic"})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	defer stream.Close()

	var text string
	var done bool
	for {
		event, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Recv() error = %v", err)
		}
		switch event.Type {
		case EventTextDelta:
			text += event.Text
		case EventDone:
			done = true
		}
	}

	if !done {
		t.Error("expected a done event before EOF")
	}
	if !strings.HasPrefix(text, "# Test Topic\n") {
		t.Errorf("document should open with the prompt as a heading, got %q", firstLine(text))
	}
	for _, want := range []string{"**", "- ", "](", "```go", "```"} {
		if !strings.Contains(text, want) {
			t.Errorf("document missing %q", want)
		}
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func TestSplitWordChunksRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "plain words", text: "one two three"},
		{name: "newlines preserved", text: "# Title\n\nbody text\n"},
		{name: "leading space", text: "  indented start"},
		{name: "tabs in code", text: "```go\n\tindented()\n```"},
		{name: "empty", text: ""},
		{name: "only whitespace", text: " \n\t"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := strings.Join(splitWordChunks(tc.text), "")
			if got != tc.text {
				t.Errorf("chunks rejoin to %q, want %q", got, tc.text)
			}
		})
	}
}

func TestStreamDelay(t *testing.T) {
	fallback := streamDelay("lorem", 0)
	if fallback != 0 {
		t.Errorf("plain model delay = %v, want fallback 0", fallback)
	}
	if slow, fast := streamDelay("lorem-slow", 0), streamDelay("lorem-fast", 0); slow <= fast {
		t.Errorf("slow delay %v should exceed fast delay %v", slow, fast)
	}
}
