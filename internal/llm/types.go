// Package llm streams model output from hosted providers (Anthropic,
// OpenAI, Gemini) and from an offline filler-text provider used by
// demos and tests. Every provider exposes the same pull-based Stream of
// text deltas so callers never care which backend produced the words.
package llm

import "context"

// Provider streams model output for a request.
type Provider interface {
	Name() string
	Stream(ctx context.Context, req Request) (Stream, error)
}

// Request represents a single model turn.
type Request struct {
	Model     string // overrides the provider's configured model when set
	System    string
	Prompt    string
	MaxTokens int
}

// Stream yields events until io.EOF.
type Stream interface {
	Recv() (Event, error)
	Close() error
}

// EventType describes streaming events.
type EventType string

const (
	EventTextDelta EventType = "text_delta"
	EventRetry     EventType = "retry" // emitted when retrying after a transient error
	EventDone      EventType = "done"
)

// Event represents a streamed output update.
type Event struct {
	Type EventType
	Text string

	// Retry fields (for EventRetry)
	RetryAttempt     int
	RetryMaxAttempts int
	RetryWaitSecs    float64
}
