// Package markup turns markdown chunks into sanitized HTML fragments.
//
// Rendering runs in three steps: math spans are rendered through a MathEngine
// while parsing, Goldmark produces HTML (GFM, footnotes, typographer,
// highlighted code), and the result is filtered through an allow-list
// sanitizer that keeps inline SVG so embedded diagrams survive.
package markup

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// ErrorFragment replaces the output of a chunk whose rendering failed.
const ErrorFragment = `<p class="markdown-error">Error parsing content chunk.</p>`

// Renderer converts one chunk of markdown into sanitized HTML.
// Implementations must be pure for a given input and must not panic.
type Renderer interface {
	Render(source string) string
}

// Option configures a Goldmark renderer.
type Option func(*Goldmark)

// WithMathEngine replaces the default MathJax-delimiter engine.
func WithMathEngine(e MathEngine) Option {
	return func(g *Goldmark) {
		g.math = e
	}
}

// WithPolicy replaces the default sanitizer policy.
func WithPolicy(p *bluemonday.Policy) Option {
	return func(g *Goldmark) {
		g.policy = p
	}
}

// Goldmark renders markdown with goldmark and sanitizes with bluemonday.
type Goldmark struct {
	md     goldmark.Markdown
	math   MathEngine
	policy *bluemonday.Policy
}

// Compile-time interface check.
var _ Renderer = (*Goldmark)(nil)

// NewGoldmark creates a renderer with GFM, footnotes, math and highlighting.
func NewGoldmark(opts ...Option) *Goldmark {
	g := &Goldmark{
		math:   MathJaxEngine{},
		policy: NewPolicy(),
	}
	for _, opt := range opts {
		opt(g)
	}

	g.md = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,         // Tables, strikethrough, autolinks, task lists
			extension.Footnote,    // [^1] footnotes
			extension.Typographer, // Smart quotes and dashes
			&mathExtension{engine: g.math},
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
			// Raw HTML passes through goldmark; the sanitizer is the gate.
			html.WithUnsafe(),
			renderer.WithNodeRenderers(
				util.Prioritized(newCodeBlockRenderer(), 100),
			),
		),
	)
	return g
}

// Render converts source to sanitized HTML. Any failure, including a panic
// inside an extension, yields ErrorFragment.
func (g *Goldmark) Render(source string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = ErrorFragment
		}
	}()

	var buf bytes.Buffer
	if err := g.md.Convert([]byte(source), &buf); err != nil {
		return ErrorFragment
	}
	return g.policy.Sanitize(buf.String())
}
