package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	lorem "github.com/bozaro/golorem"
)

// LoremProvider is an offline provider that streams generated filler
// markdown word by word. It needs no credentials or network access and
// is used by demos and tests to exercise the full streaming path.
//
// Model names modulate pacing: anything containing "slow" streams at
// two words per second, "fast" at thirty.
type LoremProvider struct {
	model     string
	delay     time.Duration
	generator *lorem.Lorem
}

func NewLoremProvider(model string) *LoremProvider {
	if model == "" {
		model = "lorem"
	}
	return &LoremProvider{
		model:     model,
		delay:     streamDelay(model, 40*time.Millisecond),
		generator: lorem.New(),
	}
}

func (p *LoremProvider) Name() string {
	return fmt.Sprintf("Lorem (%s)", p.model)
}

func (p *LoremProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		delay := streamDelay(chooseModel(req.Model, p.model), p.delay)
		for _, chunk := range splitWordChunks(p.document(req.Prompt)) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			events <- Event{Type: EventTextDelta, Text: chunk}
		}
		events <- Event{Type: EventDone}
		return nil
	}), nil
}

// document produces markdown with enough structure (emphasis, links,
// lists, a fenced block) to make incremental rendering interesting.
func (p *LoremProvider) document(topic string) string {
	g := p.generator
	title := strings.TrimSpace(topic)
	if title == "" {
		title = g.Sentence(2, 4)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "%s **%s** %s\n\n", g.Sentence(6, 12), g.Word(4, 8), g.Sentence(5, 10))
	fmt.Fprintf(&b, "- %s\n- %s\n- *%s* %s\n\n", g.Sentence(3, 6), g.Sentence(3, 6), g.Word(4, 9), g.Sentence(3, 6))
	fmt.Fprintf(&b, "See [%s](%s) for details.\n\n", g.Word(4, 8), g.Url())
	fmt.Fprintf(&b, "```go\nfunc %s() string {\n\treturn %q\n}\n```\n\n", g.Word(3, 7), g.Word(4, 9))
	fmt.Fprintf(&b, "%s\n", g.Paragraph(2, 3))
	return b.String()
}

// streamDelay returns the per-word delay implied by the model name.
func streamDelay(model string, fallback time.Duration) time.Duration {
	switch {
	case strings.Contains(model, "slow"):
		return 500 * time.Millisecond
	case strings.Contains(model, "fast"):
		return 33 * time.Millisecond
	}
	return fallback
}

// splitWordChunks splits text into chunks of one word plus its trailing
// whitespace, so concatenating the chunks reproduces the text exactly.
func splitWordChunks(text string) []string {
	var chunks []string
	start := 0
	inSpace := false
	for i, r := range text {
		isSpace := r == ' ' || r == '\n' || r == '\t'
		if inSpace && !isSpace {
			chunks = append(chunks, text[start:i])
			start = i
		}
		inSpace = isSpace
	}
	if start < len(text) {
		chunks = append(chunks, text[start:])
	}
	return chunks
}
