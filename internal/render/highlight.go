package render

import (
	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// codeHighlighter replaces goldmark's plain <pre><code> output for fenced
// blocks with chroma-highlighted HTML (inline styles, no stylesheet).
type codeHighlighter struct {
	style string
}

func (h *codeHighlighter) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, h.renderFencedCode)
}

func (h *codeHighlighter) renderFencedCode(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)

	var code []byte
	for i := 0; i < n.Lines().Len(); i++ {
		line := n.Lines().At(i)
		code = append(code, source[line.Start:line.Stop]...)
	}

	lexer := lexers.Get(string(n.Language(source)))
	if lexer == nil {
		lexer = lexers.Analyse(string(code))
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromastyles.Get(h.style)
	if style == nil {
		style = chromastyles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, string(code))
	if err != nil {
		return ast.WalkStop, err
	}
	if err := chromahtml.New().Format(w, style, iterator); err != nil {
		return ast.WalkStop, err
	}
	return ast.WalkContinue, nil
}
