// Package render is the boundary between accumulated markdown and what a
// sink displays: HTML for web-ish targets, ANSI for terminals. Callers
// that stream snapshots substitute ErrorFragment when a conversion fails
// and keep going; a bad snapshot never kills a run.
package render

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// ErrorFragment replaces the rendered output for a snapshot that could not
// be converted.
const ErrorFragment = "<p><em>Sorry, this part of the response could not be rendered.</em></p>"

// htmlMarkdown is the shared converter. GFM covers tables, strikethrough
// and autolinks; fenced code blocks go through chroma (see highlight.go).
var htmlMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		renderer.WithNodeRenderers(
			util.Prioritized(&codeHighlighter{style: "monokai"}, 200),
		),
	),
)

// HTML converts markdown to an HTML fragment. The output is trusted
// renderer output and is meant to be injected verbatim by the caller.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := htmlMarkdown.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
