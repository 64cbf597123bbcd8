package mdrender

import (
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-mdrender/internal/diagram"
	"github.com/alnah/go-mdrender/internal/markup"
)

// MarkupRenderer turns markdown into sanitized HTML. Render must not fail;
// broken input yields an inline error fragment.
type MarkupRenderer interface {
	Render(source string) string
}

// MathEngine renders one LaTeX span to HTML.
type MathEngine = markup.MathEngine

// DiagramEngine renders diagram source to SVG.
type DiagramEngine = diagram.Engine

// DiagramTheme carries the colors a DiagramEngine is initialized with.
type DiagramTheme = diagram.Theme

// BrowserOptions configures the headless browser launched by the default
// rasterizer and diagram engine.
type BrowserOptions struct {
	Bin       string // browser binary; empty lets rod find or download one
	NoSandbox bool   // required in most containers
	ScriptURL string // diagram library loaded into the diagram page
}

// Option configures a Service.
type Option func(*Service)

// serviceConfig holds internal configuration for Service.
type serviceConfig struct {
	cacheSize        int
	chunkCacheSize   int
	maxPending       int
	diagramTimeout   time.Duration
	diagramBudget    time.Duration
	rasterizeTimeout time.Duration
	previewTheme     string // non-empty enables diagrams in RenderAsync
	assetPath        string
	workers          int
	browser          BrowserOptions
	clock            func() time.Time
	onStage          func(ExportState)
}

// Defaults for serviceConfig.
const (
	DefaultCacheSize      = 100
	DefaultChunkCacheSize = 100
	DefaultMaxPending     = 5
	DefaultScriptURL      = "https://cdn.jsdelivr.net/npm/mermaid@10.6.1/dist/mermaid.min.js"
)

func defaultServiceConfig() serviceConfig {
	return serviceConfig{
		cacheSize:        DefaultCacheSize,
		chunkCacheSize:   DefaultChunkCacheSize,
		maxPending:       DefaultMaxPending,
		diagramTimeout:   diagram.DefaultTimeout,
		diagramBudget:    DefaultDiagramBudget,
		rasterizeTimeout: DefaultRasterizeTimeout,
		browser:          BrowserOptions{ScriptURL: DefaultScriptURL},
		clock:            time.Now,
	}
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCacheSize sets the capacity of the whole-document and chunk caches.
func WithCacheSize(documents, chunks int) Option {
	return func(s *Service) {
		if documents > 0 {
			s.cfg.cacheSize = documents
		}
		if chunks > 0 {
			s.cfg.chunkCacheSize = chunks
		}
	}
}

// WithMaxPending sets how many async renders may wait before older ones are
// superseded.
func WithMaxPending(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.cfg.maxPending = n
		}
	}
}

// WithDiagramTimeout sets the per-diagram render timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithDiagramTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("mdrender: WithDiagramTimeout duration must be positive")
	}
	return func(s *Service) {
		s.cfg.diagramTimeout = d
	}
}

// WithDiagramBudget sets the time allowed for all diagrams of one export.
// Panics if d <= 0.
func WithDiagramBudget(d time.Duration) Option {
	if d <= 0 {
		panic("mdrender: WithDiagramBudget duration must be positive")
	}
	return func(s *Service) {
		s.cfg.diagramBudget = d
	}
}

// WithRasterizeTimeout sets the hard limit on capturing the surface bitmap.
// Panics if d <= 0.
func WithRasterizeTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("mdrender: WithRasterizeTimeout duration must be positive")
	}
	return func(s *Service) {
		s.cfg.rasterizeTimeout = d
	}
}

// WithPreviewDiagrams renders diagrams in RenderAsync results using the
// named theme.
func WithPreviewDiagrams(theme string) Option {
	return func(s *Service) {
		s.cfg.previewTheme = theme
		if theme == "" {
			s.cfg.previewTheme = ThemeLight
		}
	}
}

// WithAssetPath loads styles and the surface template from dir, falling
// back to the embedded assets.
func WithAssetPath(dir string) Option {
	return func(s *Service) {
		s.cfg.assetPath = dir
	}
}

// WithWorkers bounds concurrent strip encoding during assembly.
func WithWorkers(n int) Option {
	return func(s *Service) {
		s.cfg.workers = n
	}
}

// WithBrowser configures the headless browser used by the default backends.
func WithBrowser(o BrowserOptions) Option {
	return func(s *Service) {
		if o.ScriptURL == "" {
			o.ScriptURL = DefaultScriptURL
		}
		s.cfg.browser = o
	}
}

// WithRenderer replaces the goldmark markup renderer.
func WithRenderer(r MarkupRenderer) Option {
	return func(s *Service) {
		s.renderer = r
	}
}

// WithMathEngine sets the engine used by the default markup renderer.
func WithMathEngine(e MathEngine) Option {
	return func(s *Service) {
		s.math = e
	}
}

// WithRasterizer replaces the browser rasterizer.
func WithRasterizer(r Rasterizer) Option {
	return func(s *Service) {
		s.raster = r
	}
}

// WithDiagramEngine replaces the browser diagram engine.
func WithDiagramEngine(e DiagramEngine) Option {
	return func(s *Service) {
		s.engine = e
	}
}

// WithSink sets where exports are saved. Defaults to the working directory.
func WithSink(sink Sink) Option {
	return func(s *Service) {
		s.sink = sink
	}
}

// WithStageHook calls fn on every export stage change.
func WithStageHook(fn func(ExportState)) Option {
	return func(s *Service) {
		s.cfg.onStage = fn
	}
}

// WithClock overrides the time source for timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.cfg.clock = now
		}
	}
}
