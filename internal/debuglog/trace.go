package debuglog

import (
	"context"

	"github.com/samsaffron/streammd/internal/stream"
)

// TraceSource wraps src so every increment is recorded. A nil logger
// returns src unchanged.
func TraceSource(src stream.Source, l *Logger) stream.Source {
	if l == nil {
		return src
	}
	return &tracedSource{src: src, log: l}
}

type tracedSource struct {
	src   stream.Source
	log   *Logger
	total int
}

func (t *tracedSource) Next(ctx context.Context) (string, error) {
	chunk, err := t.src.Next(ctx)
	if chunk != "" {
		t.total += len(chunk)
		t.log.LogChunk(len(chunk), t.total)
	}
	return chunk, err
}

// TraceSink wraps sink so every publication is recorded. A nil logger
// returns sink unchanged.
func TraceSink(sink stream.Publisher, l *Logger) stream.Publisher {
	if l == nil {
		return sink
	}
	return &tracedSink{sink: sink, log: l}
}

type tracedSink struct {
	sink stream.Publisher
	log  *Logger
}

func (t *tracedSink) Publish(p stream.Publication) {
	t.log.LogPublication(p.Seq, len(p.Markdown))
	t.sink.Publish(p)
}

func (t *tracedSink) Finish(err error) {
	t.sink.Finish(err)
}
