package llm

import (
	"context"
	"io"
	"sync"
)

// eventStream adapts a producer function to the pull-based Stream
// interface. The producer runs in its own goroutine; its terminal error
// is surfaced to the consumer only after all buffered events have been
// delivered.
type eventStream struct {
	cancel context.CancelFunc
	events chan Event
	errc   chan error

	closeOnce sync.Once
	err       error
	done      bool
}

// newEventStream starts produce in a goroutine and returns a Stream fed
// by it. The producer should return nil after sending its final event,
// or the error that ended the stream early. Streams have a single
// consumer; Recv is not safe for concurrent use.
func newEventStream(ctx context.Context, produce func(ctx context.Context, events chan<- Event) error) Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &eventStream{
		cancel: cancel,
		events: make(chan Event, 64),
		errc:   make(chan error, 1),
	}
	go func() {
		s.errc <- produce(ctx, s.events)
		close(s.events)
	}()
	return s
}

func (s *eventStream) Recv() (Event, error) {
	if s.done {
		return Event{}, s.terminalErr()
	}
	ev, ok := <-s.events
	if !ok {
		s.done = true
		s.err = <-s.errc
		return Event{}, s.terminalErr()
	}
	return ev, nil
}

func (s *eventStream) terminalErr() error {
	if s.err != nil {
		return s.err
	}
	return io.EOF
}

// Close cancels the producer and drains any events still in flight so
// the producer goroutine can exit. Safe to call more than once.
func (s *eventStream) Close() error {
	s.cancel()
	s.closeOnce.Do(func() {
		go func() {
			for range s.events {
			}
		}()
	})
	return nil
}
