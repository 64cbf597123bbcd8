package mdrender

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/alnah/go-mdrender/internal/assets"
	"github.com/alnah/go-mdrender/internal/cache"
	"github.com/alnah/go-mdrender/internal/chunk"
	"github.com/alnah/go-mdrender/internal/diagram"
	"github.com/alnah/go-mdrender/internal/hash"
	"github.com/alnah/go-mdrender/internal/markup"
	"github.com/alnah/go-mdrender/internal/queue"
	"github.com/alnah/go-mdrender/internal/surface"
)

// Compile-time interface checks.
var (
	_ MarkupRenderer = (*markup.Goldmark)(nil)
	_ Sink           = FileSink{}
)

// Service renders markdown for live preview and exports it to PDF or HTML.
// Create with New, and Close when done. A Service is safe for concurrent
// use; async renders are serialized through its queue.
type Service struct {
	cfg serviceConfig
	log *zap.Logger

	// injected or defaulted collaborators
	renderer MarkupRenderer
	math     MathEngine
	raster   Rasterizer
	engine   DiagramEngine
	sink     Sink

	docs     *cache.LRU[hash.Key, string]
	chunks   *cache.LRU[hash.Key, string]
	chunker  *chunk.Chunker
	queue    *queue.Queue
	diagrams *diagram.Processor
	surfaces *surface.Builder
	exporter *exporter
	browser  *browser // nil when both backends were injected

	closeOnce sync.Once
	closed    atomic.Bool
	closeErr  error
}

// New creates a Service. The headless browser is launched on first export,
// not here.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		cfg: defaultServiceConfig(),
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	var loader assets.Loader = assets.NewEmbeddedLoader()
	if s.cfg.assetPath != "" {
		resolver, err := assets.NewResolver(s.cfg.assetPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAssetPath, err)
		}
		loader = resolver
	}

	if s.renderer == nil {
		var mopts []markup.Option
		if s.math != nil {
			mopts = append(mopts, markup.WithMathEngine(s.math))
		}
		s.renderer = markup.NewGoldmark(mopts...)
	}
	if s.raster == nil || s.engine == nil {
		s.browser = newBrowser(s.cfg.browser, s.log)
	}
	if s.raster == nil {
		s.raster = newRodRasterizer(s.browser)
	}
	if s.engine == nil {
		s.engine = newRodDiagramEngine(s.browser, s.cfg.browser.ScriptURL)
	}
	if s.sink == nil {
		s.sink = FileSink{}
	}

	s.docs = cache.New[hash.Key, string](s.cfg.cacheSize)
	s.chunks = cache.New[hash.Key, string](s.cfg.chunkCacheSize)
	s.chunker = chunk.NewChunker(s.cfg.cacheSize)
	s.queue = queue.New(s.renderPreview, queue.WithMaxPending(s.cfg.maxPending))
	s.diagrams = diagram.NewProcessor(s.engine,
		diagram.WithTimeout(s.cfg.diagramTimeout),
		diagram.WithLogger(s.log.Named("diagram")))
	s.surfaces = surface.NewBuilder(loader, surface.WithClock(s.cfg.clock))
	s.exporter = &exporter{
		diagrams:         s.diagrams,
		surfaces:         s.surfaces,
		raster:           s.raster,
		sink:             s.sink,
		log:              s.log.Named("export"),
		diagramBudget:    s.cfg.diagramBudget,
		rasterizeTimeout: s.cfg.rasterizeTimeout,
		workers:          ResolvePoolSize(s.cfg.workers),
		onStage:          s.cfg.onStage,
		now:              s.cfg.clock,
	}
	return s, nil
}

// RenderAsync queues text for rendering and waits for the result. When a
// newer request supersedes this one, the result is marked Superseded and
// carries no HTML.
func (s *Service) RenderAsync(ctx context.Context, text string) (RenderResult, error) {
	if s.closed.Load() {
		return RenderResult{}, ErrServiceClosed
	}

	select {
	case r := <-s.queue.Submit(ctx, text):
		switch r.Status {
		case queue.StatusRendered:
			return RenderResult{HTML: r.HTML}, nil
		case queue.StatusSuperseded:
			return RenderResult{Superseded: true}, nil
		}
		if errors.Is(r.Err, queue.ErrClosed) {
			return RenderResult{}, ErrServiceClosed
		}
		return RenderResult{}, r.Err
	case <-ctx.Done():
		return RenderResult{}, ctx.Err()
	}
}

// RenderSync renders text on the calling goroutine, sharing the caches
// with RenderAsync. Large documents go through the chunk cache.
func (s *Service) RenderSync(text string) string {
	html, err := s.renderDocument(context.Background(), text, func() {})
	if err != nil {
		return markup.ErrorFragment
	}
	return html
}

// Export renders text and exports it to a paginated PDF saved through the
// sink. The result is returned even on failure, with State set to
// StateAborted and any warnings collected so far.
func (s *Service) Export(ctx context.Context, text string, opts ExportOptions) (*ExportResult, error) {
	html, opts, err := s.prepareExport(ctx, text, opts)
	if err != nil {
		return &ExportResult{State: StateAborted}, err
	}
	return s.exporter.export(ctx, html, opts)
}

// ExportHTML renders text into the standalone styled document used for
// export and saves it as <filename>.html. Diagrams are rendered unless
// opts.SkipDiagrams is set.
func (s *Service) ExportHTML(ctx context.Context, text string, opts ExportOptions) (*ExportResult, error) {
	html, opts, err := s.prepareExport(ctx, text, opts)
	if err != nil {
		return &ExportResult{State: StateAborted}, err
	}
	return s.exporter.exportHTML(ctx, html, opts)
}

func (s *Service) prepareExport(ctx context.Context, text string, opts ExportOptions) (string, ExportOptions, error) {
	if s.closed.Load() {
		return "", opts, ErrServiceClosed
	}
	if strings.TrimSpace(text) == "" {
		return "", opts, ErrEmptyMarkdown
	}
	if err := opts.Validate(); err != nil {
		return "", opts, err
	}
	html, err := s.renderDocument(ctx, text, func() {})
	if err != nil {
		return "", opts, err
	}
	return html, opts.withDefaults(), nil
}

// ClearCache drops every cached render and chunk list.
func (s *Service) ClearCache() {
	s.docs.Clear()
	s.chunks.Clear()
	s.chunker.Clear()
}

// CacheStats reports the size and hit counters of the render caches.
func (s *Service) CacheStats() CacheStats {
	return CacheStats{
		Documents:  CacheCounters(s.docs.Stats()),
		Chunks:     CacheCounters(s.chunks.Stats()),
		ChunkLists: CacheCounters(s.chunker.Stats()),
	}
}

// Close stops the render queue and shuts down the browser, if one was
// launched. Pending async renders complete as superseded.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.queue.Close()
		if c, ok := s.engine.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				s.log.Debug("closing diagram engine", zap.Error(err))
			}
		}
		if s.browser != nil {
			s.closeErr = s.browser.Close()
		}
	})
	return s.closeErr
}

// renderPreview is the queue's render function: the cached markdown render
// plus, when enabled, the diagram pass.
func (s *Service) renderPreview(ctx context.Context, text string, yield func()) (string, error) {
	html, err := s.renderDocument(ctx, text, yield)
	if err != nil {
		return "", err
	}
	if s.cfg.previewTheme != "" && diagram.Has(html) {
		html, _ = s.diagrams.Process(ctx, html, diagram.ThemeByName(s.cfg.previewTheme))
	}
	return html, nil
}

// renderDocument renders text through the caches. Documents under the
// chunk threshold are cached whole; larger ones are split and each chunk
// is cached on its own, so an edit re-renders only the chunks it touched.
func (s *Service) renderDocument(ctx context.Context, text string, yield func()) (string, error) {
	if len(text) < chunk.Threshold {
		return s.cached(s.docs, text), nil
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, c := range s.chunker.Split(text) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		b.WriteString(s.cached(s.chunks, c.Text))
		yield()
	}
	return b.String(), nil
}

func (s *Service) cached(lru *cache.LRU[hash.Key, string], text string) string {
	key := hash.Sum(text)
	if html, ok := lru.Get(key); ok {
		return html
	}
	html := s.render(text)
	lru.Set(key, html)
	return html
}

// render calls the markup renderer, turning a panic into the inline error
// fragment.
func (s *Service) render(text string) (html string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("markup renderer panicked", zap.Any("panic", r))
			html = markup.ErrorFragment
		}
	}()
	return s.renderer.Render(text)
}
