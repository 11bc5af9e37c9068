package stream

import (
	"context"

	"github.com/samsaffron/streammd/internal/llm"
)

// Live adapts a model stream to the Source interface. Transport errors
// propagate to the run; cancelling the run closes the underlying
// stream so its producer winds down.
type Live struct {
	stream  llm.Stream
	watched bool
}

func NewLive(stream llm.Stream) *Live {
	return &Live{stream: stream}
}

func (l *Live) Next(ctx context.Context) (string, error) {
	if !l.watched {
		l.watched = true
		go func() {
			<-ctx.Done()
			l.stream.Close()
		}()
	}

	for {
		event, err := l.stream.Recv()
		if err != nil {
			// io.EOF and context errors pass through untouched; the
			// driver maps them to clean end and silent cancel.
			return "", err
		}
		if event.Type == llm.EventTextDelta && event.Text != "" {
			return event.Text, nil
		}
		// Retry notices, done markers and empty deltas carry no text.
	}
}
