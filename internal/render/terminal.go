package render

import (
	"sync"

	"github.com/charmbracelet/glamour"
)

// Building a glamour renderer is expensive; cache one per style+width.
// Streaming re-renders the whole document on every publication, so the
// same renderer is hit constantly.
type termKey struct {
	style string
	width int
}

var termRenderers sync.Map // map[termKey]*glamour.TermRenderer

func terminalRenderer(style string, width int) (*glamour.TermRenderer, error) {
	key := termKey{style: style, width: width}
	if cached, ok := termRenderers.Load(key); ok {
		return cached.(*glamour.TermRenderer), nil
	}

	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" || style == StyleAuto {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}

	// Race-safe: a renderer stored by another goroutine first just wins.
	termRenderers.Store(key, renderer)
	return renderer, nil
}

// Terminal renders markdown to ANSI-styled text wrapped for the given
// width. Style names are glamour built-ins; see ResolveStyle.
func Terminal(markdown, style string, width int) (string, error) {
	renderer, err := terminalRenderer(style, width)
	if err != nil {
		return "", err
	}
	return renderer.Render(markdown)
}
