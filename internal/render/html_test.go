package render

import (
	"strings"
	"testing"
)

func TestHTML(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		contains []string
	}{
		{
			name:     "heading",
			markdown: "# Title\n",
			contains: []string{"<h1>Title</h1>"},
		},
		{
			name:     "bold and italic",
			markdown: "some **bold** and *italic* text\n",
			contains: []string{"<strong>bold</strong>", "<em>italic</em>"},
		},
		{
			name:     "link",
			markdown: "see [docs](http://example.com)\n",
			contains: []string{`<a href="http://example.com">docs</a>`},
		},
		{
			name:     "gfm strikethrough",
			markdown: "~~gone~~\n",
			contains: []string{"<del>gone</del>"},
		},
		{
			name:     "gfm table",
			markdown: "| a | b |\n|---|---|\n| 1 | 2 |\n",
			contains: []string{"<table>", "<td>1</td>"},
		},
		{
			name:     "fenced code is highlighted",
			markdown: "```go\nfunc main() {}\n```\n",
			contains: []string{"<pre", "main"},
		},
		{
			name:     "fenced code without language",
			markdown: "```\nplain text\n```\n",
			contains: []string{"<pre", "plain text"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HTML(tt.markdown)
			if err != nil {
				t.Fatalf("HTML(%q) error: %v", tt.markdown, err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("HTML(%q) = %q, missing %q", tt.markdown, got, want)
				}
			}
		})
	}
}

func TestHTMLHighlightUsesInlineStyles(t *testing.T) {
	got, err := HTML("```python\nprint(\"hi\")\n```\n")
	if err != nil {
		t.Fatalf("HTML() error: %v", err)
	}
	if !strings.Contains(got, "style=") {
		t.Errorf("highlighted block should carry inline styles, got %q", got)
	}
	if strings.Contains(got, "print(&quot;hi&quot;)</code></pre>") && !strings.Contains(got, "style=") {
		t.Errorf("fenced block fell through to the plain renderer: %q", got)
	}
}

func TestErrorFragmentIsStable(t *testing.T) {
	// Sinks display this verbatim when a conversion fails; it has to be a
	// self-contained fragment.
	if !strings.HasPrefix(ErrorFragment, "<p>") || !strings.HasSuffix(ErrorFragment, "</p>") {
		t.Errorf("ErrorFragment = %q, want a self-contained paragraph", ErrorFragment)
	}
}
