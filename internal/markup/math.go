package markup

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"strings"

	mathjax "github.com/litao91/goldmark-mathjax"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// ErrUnbalancedBraces reports a LaTeX expression whose braces do not pair up.
var ErrUnbalancedBraces = errors.New("unbalanced braces in math expression")

// MathEngine renders a LaTeX expression to HTML.
// Engines should be tolerant and return an error only for expressions they
// cannot represent at all; the caller turns the error into an inline span.
type MathEngine interface {
	Render(latex string, display bool) (string, error)
}

// MathJaxEngine emits the expression inside MathJax delimiters so a client
// side typesetter can finish the job. It rejects unbalanced braces, which
// MathJax would otherwise render as a red block mid-paragraph.
type MathJaxEngine struct{}

// Render implements MathEngine.
func (MathJaxEngine) Render(latex string, display bool) (string, error) {
	if err := checkBraces(latex); err != nil {
		return "", err
	}
	escaped := html.EscapeString(latex)
	if display {
		return `<div class="math-display">\[` + escaped + `\]</div>`, nil
	}
	return `<span class="math-inline">\(` + escaped + `\)</span>`, nil
}

// checkBraces verifies that unescaped { and } are balanced.
func checkBraces(latex string) error {
	depth := 0
	for i := 0; i < len(latex); i++ {
		switch latex[i] {
		case '\\':
			i++ // skip escaped character
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unexpected '}' at offset %d", ErrUnbalancedBraces, i)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: %d unclosed '{'", ErrUnbalancedBraces, depth)
	}
	return nil
}

// mathErrorSpan is the inline placeholder for an expression the engine rejected.
func mathErrorSpan(latex string) string {
	return `<span class="math-error">` + html.EscapeString(latex) + `</span>`
}

// mathExtension registers the mathjax parsers with a renderer backed by a MathEngine.
type mathExtension struct {
	engine MathEngine
}

func (e *mathExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithBlockParsers(
			util.Prioritized(mathjax.NewMathJaxBlockParser(), 701),
		),
		parser.WithInlineParsers(
			util.Prioritized(mathjax.NewInlineMathParser(), 501),
		),
	)
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&mathRenderer{engine: e.engine}, 502),
	))
}

type mathRenderer struct {
	engine MathEngine
}

func (r *mathRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(mathjax.KindInlineMath, r.renderInlineMath)
	reg.Register(mathjax.KindMathBlock, r.renderBlockMath)
}

func (r *mathRenderer) renderInlineMath(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		text, ok := c.(*ast.Text)
		if !ok {
			continue
		}
		value := text.Segment.Value(source)
		if bytes.HasSuffix(value, []byte("\n")) {
			buf.Write(value[:len(value)-1])
			if c != n.LastChild() {
				buf.WriteByte(' ')
			}
		} else {
			buf.Write(value)
		}
	}

	_, _ = w.WriteString(r.render(strings.TrimSpace(buf.String()), false))
	return ast.WalkSkipChildren, nil
}

func (r *mathRenderer) renderBlockMath(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}

	_, _ = w.WriteString(r.render(strings.TrimSpace(buf.String()), true))
	_ = w.WriteByte('\n')
	return ast.WalkSkipChildren, nil
}

func (r *mathRenderer) render(latex string, display bool) string {
	out, err := r.engine.Render(latex, display)
	if err != nil {
		return mathErrorSpan(latex)
	}
	return out
}
