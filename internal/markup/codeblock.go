package markup

import (
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// DiagramLanguage is the fence info string left untouched for the diagram pass.
const DiagramLanguage = "mermaid"

// funcCapture records the functions a NodeRenderer registers so they can be
// called from another renderer.
type funcCapture map[ast.NodeKind]renderer.NodeRendererFunc

func (c funcCapture) Register(kind ast.NodeKind, fn renderer.NodeRendererFunc) {
	c[kind] = fn
}

// codeBlockRenderer highlights fenced code with chroma classes but emits
// diagram fences as plain <pre><code class="language-mermaid"> blocks, which
// is the shape the diagram processor looks for.
type codeBlockRenderer struct {
	highlighted renderer.NodeRendererFunc
}

func newCodeBlockRenderer() *codeBlockRenderer {
	capture := funcCapture{}
	highlighting.NewHTMLRenderer(
		highlighting.WithFormatOptions(
			chromahtml.WithClasses(true), // CSS classes for smaller HTML and external stylesheet control
		),
	).RegisterFuncs(capture)

	return &codeBlockRenderer{highlighted: capture[ast.KindFencedCodeBlock]}
}

func (r *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *codeBlockRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.FencedCodeBlock)
	if string(n.Language(source)) != DiagramLanguage && r.highlighted != nil {
		return r.highlighted(w, source, node, entering)
	}
	if !entering {
		return ast.WalkContinue, nil
	}

	_, _ = w.WriteString(`<pre><code class="language-` + DiagramLanguage + `">`)
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		_, _ = w.Write(util.EscapeHTML(line.Value(source)))
	}
	_, _ = w.WriteString("</code></pre>\n")
	return ast.WalkSkipChildren, nil
}
