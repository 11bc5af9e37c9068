package llm

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

// scriptedProvider plays a fixed sequence of stream producers, one per
// Stream call.
type scriptedProvider struct {
	scripts []func(ctx context.Context, events chan<- Event) error
	calls   int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	if p.calls >= len(p.scripts) {
		return nil, errors.New("scripted provider exhausted")
	}
	script := p.scripts[p.calls]
	p.calls++
	return newEventStream(ctx, script), nil
}

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
	}
}

func collectEvents(t *testing.T, stream Stream) ([]Event, error) {
	t.Helper()
	defer stream.Close()

	var events []Event
	for {
		event, err := stream.Recv()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}
}

func TestRetryProviderRetriesTransientErrors(t *testing.T) {
	inner := &scriptedProvider{scripts: []func(ctx context.Context, events chan<- Event) error{
		func(ctx context.Context, events chan<- Event) error {
			return errors.New("429 too many requests")
		},
		func(ctx context.Context, events chan<- Event) error {
			events <- Event{Type: EventTextDelta, Text: "recovered"}
			events <- Event{Type: EventDone}
			return nil
		},
	}}

	p := WrapWithRetry(inner, fastRetryConfig())
	stream, err := p.Stream(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	events, err := collectEvents(t, stream)
	if err != nil {
		t.Fatalf("collect error = %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner Stream calls = %d, want 2", inner.calls)
	}

	var text string
	retries := 0
	for _, event := range events {
		switch event.Type {
		case EventTextDelta:
			text += event.Text
		case EventRetry:
			retries++
			if event.RetryAttempt != 1 || event.RetryMaxAttempts != 3 {
				t.Errorf("retry event = attempt %d/%d, want 1/3", event.RetryAttempt, event.RetryMaxAttempts)
			}
		}
	}
	if text != "recovered" {
		t.Errorf("text = %q, want %q", text, "recovered")
	}
	if retries != 1 {
		t.Errorf("retry events = %d, want 1", retries)
	}
}

func TestRetryProviderDoesNotRetryPermanentErrors(t *testing.T) {
	wantErr := errors.New("invalid api key")
	inner := &scriptedProvider{scripts: []func(ctx context.Context, events chan<- Event) error{
		func(ctx context.Context, events chan<- Event) error {
			return wantErr
		},
	}}

	p := WrapWithRetry(inner, fastRetryConfig())
	stream, err := p.Stream(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	if _, err := collectEvents(t, stream); !errors.Is(err, wantErr) {
		t.Fatalf("collect error = %v, want %v", err, wantErr)
	}
	if inner.calls != 1 {
		t.Errorf("inner Stream calls = %d, want 1", inner.calls)
	}
}

func TestRetryProviderStopsRetryingAfterText(t *testing.T) {
	streamErr := errors.New("connection reset by peer")
	inner := &scriptedProvider{scripts: []func(ctx context.Context, events chan<- Event) error{
		func(ctx context.Context, events chan<- Event) error {
			events <- Event{Type: EventTextDelta, Text: "partial output "}
			return streamErr
		},
		func(ctx context.Context, events chan<- Event) error {
			t.Error("provider must not be retried after forwarding text")
			return nil
		},
	}}

	p := WrapWithRetry(inner, fastRetryConfig())
	stream, err := p.Stream(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	events, err := collectEvents(t, stream)
	if !errors.Is(err, streamErr) {
		t.Fatalf("collect error = %v, want %v", err, streamErr)
	}
	if len(events) != 1 || events[0].Text != "partial output " {
		t.Errorf("events = %+v, want the single partial text delta", events)
	}
	if inner.calls != 1 {
		t.Errorf("inner Stream calls = %d, want 1", inner.calls)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "rate limit", err: errors.New("429 Too Many Requests"), want: true},
		{name: "overloaded", err: errors.New("anthropic streaming error: Overloaded"), want: true},
		{name: "bad gateway", err: errors.New("502 Bad Gateway"), want: true},
		{name: "timeout", err: errors.New("dial tcp: i/o timeout"), want: true},
		{name: "auth failure", err: errors.New("401 unauthorized"), want: false},
		{name: "bad request", err: errors.New("400 invalid request body"), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRetryable(tc.err); got != tc.want {
				t.Errorf("isRetryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestCalculateBackoffHonorsRetryAfter(t *testing.T) {
	r := &RetryProvider{config: fastRetryConfig()}

	wait := r.calculateBackoff(1, errors.New("429: retry-after: 2"))
	if wait != r.config.MaxBackoff {
		t.Errorf("wait = %v, want capped at %v", wait, r.config.MaxBackoff)
	}

	wait = r.calculateBackoff(1, errors.New("plain transient error"))
	if wait <= 0 || wait > r.config.MaxBackoff {
		t.Errorf("backoff wait = %v, want within (0, %v]", wait, r.config.MaxBackoff)
	}
}
