package stream

import (
	"context"
	"io"
	"time"
)

// Playback replays a fixed document one rune per tick. This is the
// local simulation mode: the full text is known up front and the
// cadence controls how fast it appears to arrive.
type Playback struct {
	runes   []rune
	pos     int
	cadence time.Duration
	ticker  *time.Ticker
}

func NewPlayback(text string, cadence time.Duration) *Playback {
	return &Playback{
		runes:   []rune(text),
		cadence: cadence,
	}
}

func (p *Playback) Next(ctx context.Context) (string, error) {
	if p.pos >= len(p.runes) {
		if p.ticker != nil {
			p.ticker.Stop()
		}
		return "", io.EOF
	}

	// Lazy ticker: the clock starts on the first increment, not at
	// construction time.
	if p.ticker == nil {
		p.ticker = time.NewTicker(p.cadence)
	}

	select {
	case <-ctx.Done():
		p.ticker.Stop()
		return "", ctx.Err()
	case <-p.ticker.C:
	}

	r := p.runes[p.pos]
	p.pos++
	return string(r), nil
}
