// Package diagram replaces mermaid code blocks in rendered markup with SVG
// produced by an external engine.
package diagram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single diagram render.
const DefaultTimeout = 5 * time.Second

// ErrTimeout is reported when the engine does not answer within the
// per-diagram timeout.
var ErrTimeout = errors.New("diagram render timed out")

// blockPattern matches the fenced blocks emitted by the markup renderer.
// Rendered containers use <div>, so substituted output is never matched again.
var blockPattern = regexp.MustCompile(`<pre><code class="language-mermaid">([\s\S]*?)</code></pre>`)

// Theme carries the colors used to initialize the engine.
type Theme struct {
	Name       string // "light" or "dark"
	Text       string
	Background string
}

// LightTheme and DarkTheme are the two built-in themes.
var (
	LightTheme = Theme{Name: "light", Text: "#24292f", Background: "#ffffff"}
	DarkTheme  = Theme{Name: "dark", Text: "#c9d1d9", Background: "#0d1117"}
)

// ThemeByName returns the built-in theme for name, defaulting to light.
func ThemeByName(name string) Theme {
	if strings.EqualFold(name, DarkTheme.Name) {
		return DarkTheme
	}
	return LightTheme
}

// Engine renders diagram source to SVG markup.
type Engine interface {
	Initialize(ctx context.Context, theme Theme) error
	Render(ctx context.Context, code, elementID string) (string, error)
}

// Report summarizes one Process call.
type Report struct {
	Found    int
	Rendered int
	Failed   int
}

// Option configures a Processor.
type Option func(*Processor)

// WithTimeout sets the per-diagram timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger used for per-diagram failures.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}

// WithIDFunc overrides element id generation.
func WithIDFunc(fn func() string) Option {
	return func(p *Processor) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// Processor substitutes diagram blocks. It keeps no render cache.
type Processor struct {
	engine  Engine
	timeout time.Duration
	log     *zap.Logger
	newID   func() string

	// runMu serializes Process calls: engine theme state is global, so a
	// call's renders must not interleave with another call's Initialize.
	runMu sync.Mutex

	mu          sync.Mutex
	initialized bool
	theme       Theme
}

// NewProcessor creates a Processor backed by engine.
func NewProcessor(engine Engine, opts ...Option) *Processor {
	p := &Processor{
		engine:  engine,
		timeout: DefaultTimeout,
		log:     zap.NewNop(),
		newID:   func() string { return "mermaid-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Has reports whether markup contains at least one diagram block.
func Has(markup string) bool {
	return blockPattern.MatchString(markup)
}

// Process renders every diagram block in markup with the given theme.
// Markup without diagram blocks is returned unchanged and the engine is not
// touched. Individual failures become inline error blocks.
func (p *Processor) Process(ctx context.Context, markup string, theme Theme) (string, Report) {
	matches := blockPattern.FindAllStringSubmatchIndex(markup, -1)
	if len(matches) == 0 {
		return markup, Report{}
	}

	p.runMu.Lock()
	defer p.runMu.Unlock()

	report := Report{Found: len(matches)}
	if err := p.ensureInitialized(ctx, theme); err != nil {
		p.log.Warn("diagram engine initialization failed", zap.Error(err))
		var b strings.Builder
		last := 0
		for _, m := range matches {
			b.WriteString(markup[last:m[0]])
			b.WriteString(errorBlock(err))
			last = m[1]
		}
		b.WriteString(markup[last:])
		report.Failed = len(matches)
		return b.String(), report
	}

	var b strings.Builder
	b.Grow(len(markup))
	last := 0
	for _, m := range matches {
		b.WriteString(markup[last:m[0]])
		last = m[1]

		code := html.UnescapeString(markup[m[2]:m[3]])
		svg, err := p.renderOne(ctx, code)
		if err != nil {
			report.Failed++
			p.log.Warn("diagram render failed",
				zap.String("type", DetectType(code)),
				zap.Error(err))
			b.WriteString(errorBlock(err))
			continue
		}
		report.Rendered++
		b.WriteString(`<div class="mermaid-container">`)
		b.WriteString(svg)
		b.WriteString(`</div>`)
	}
	b.WriteString(markup[last:])
	return b.String(), report
}

// ensureInitialized initializes the engine once per theme.
func (p *Processor) ensureInitialized(ctx context.Context, theme Theme) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized && p.theme == theme {
		return nil
	}
	if err := p.engine.Initialize(ctx, theme); err != nil {
		return err
	}
	p.initialized = true
	p.theme = theme
	return nil
}

// renderOne runs the engine under the per-diagram timeout. The engine call
// runs in its own goroutine so an engine that ignores ctx cannot block the
// document.
func (p *Processor) renderOne(ctx context.Context, code string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type result struct {
		svg string
		err error
	}
	done := make(chan result, 1)
	id := p.newID()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("diagram engine panic: %v", r)}
			}
		}()
		svg, err := p.engine.Render(ctx, code, id)
		done <- result{svg: svg, err: err}
	}()

	select {
	case r := <-done:
		return r.svg, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, p.timeout)
		}
		return "", ctx.Err()
	}
}

func errorBlock(err error) string {
	return `<div class="mermaid-error">Failed to render diagram: ` + html.EscapeString(err.Error()) + `</div>`
}

// diagramTypes maps the leading keyword of a mermaid definition to a name.
var diagramTypes = []struct {
	prefix string
	name   string
}{
	{"sequenceDiagram", "sequence"},
	{"classDiagram", "class"},
	{"stateDiagram", "state"},
	{"erDiagram", "er"},
	{"journey", "journey"},
	{"gantt", "gantt"},
	{"pie", "pie"},
	{"gitGraph", "git"},
	{"mindmap", "mindmap"},
	{"timeline", "timeline"},
	{"quadrantChart", "quadrant"},
	{"graph", "flowchart"},
	{"flowchart", "flowchart"},
}

// DetectType names the diagram kind from its first non-blank line.
func DetectType(code string) string {
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "%%") {
			continue
		}
		for _, t := range diagramTypes {
			if strings.HasPrefix(line, t.prefix) {
				return t.name
			}
		}
		return "unknown"
	}
	return "unknown"
}
