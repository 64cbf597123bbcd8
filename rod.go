package mdrender

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/alnah/go-mdrender/internal/diagram"
	"github.com/alnah/go-mdrender/internal/process"
)

// Compile-time interface checks.
var (
	_ Rasterizer     = (*rodRasterizer)(nil)
	_ diagram.Engine = (*rodDiagramEngine)(nil)
)

const (
	// initialViewportHeight is replaced by the content height when the
	// full-page screenshot is taken.
	initialViewportHeight = 800

	// imageTimeoutMS bounds the wait for each <img> on the surface.
	imageTimeoutMS = 10000
)

// browser lazily launches one headless Chromium shared by the rasterizer
// and the diagram engine. Rod downloads Chromium on first run if no binary
// is configured.
type browser struct {
	opts BrowserOptions
	log  *zap.Logger

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
}

func newBrowser(opts BrowserOptions, log *zap.Logger) *browser {
	return &browser{opts: opts, log: log}
}

// connect returns the running browser, launching it on first use.
func (b *browser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		return b.browser, nil
	}

	l := launcher.New()
	if b.opts.Bin != "" {
		l = l.Bin(b.opts.Bin)
	}
	if b.opts.NoSandbox {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	rb := rod.New().ControlURL(u)
	if err := rb.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	b.browser, b.launcher = rb, l
	b.log.Debug("browser launched", zap.Int("pid", l.PID()))
	return rb, nil
}

// page opens a blank page. The page is not bound to ctx so it can still
// be closed after ctx ends.
func (b *browser) page(ctx context.Context) (*rod.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rb, err := b.connect()
	if err != nil {
		return nil, err
	}
	p, err := rb.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("%w: opening page: %v", ErrBrowserConnect, err)
	}
	return p, nil
}

// Close shuts the browser down and kills whatever it left running.
func (b *browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	pid := b.launcher.PID()
	b.launcher.Kill()
	if kerr := process.KillTree(pid); kerr != nil {
		b.log.Debug("killing browser process tree", zap.Int("pid", pid), zap.Error(kerr))
	}
	b.browser, b.launcher = nil, nil
	return err
}

// rodSurface is a browser page holding a surface document.
type rodSurface struct {
	width int

	mu   sync.Mutex
	page *rod.Page // nil once destroyed
}

func (s *rodSurface) WidthPx() int { return s.width }

func (s *rodSurface) current(ctx context.Context) (*rod.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page == nil {
		return nil, fmt.Errorf("%w: surface destroyed", ErrInternal)
	}
	return s.page.Context(ctx), nil
}

func (s *rodSurface) take() *rod.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.page
	s.page = nil
	return p
}

// rodRasterizer implements Rasterizer with headless Chromium.
type rodRasterizer struct {
	browser *browser
	live    atomic.Int64
}

func newRodRasterizer(b *browser) *rodRasterizer {
	return &rodRasterizer{browser: b}
}

// Live returns the number of surfaces not yet destroyed.
func (r *rodRasterizer) Live() int64 {
	return r.live.Load()
}

// BuildSurface opens a page sized to the surface width and loads the
// document into it.
func (r *rodRasterizer) BuildSurface(ctx context.Context, spec SurfaceSpec) (Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, err := r.browser.page(ctx)
	if err != nil {
		return nil, err
	}
	r.live.Add(1)
	surf := &rodSurface{page: page, width: spec.WidthPx}

	fail := func(step string, err error) (Surface, error) {
		_ = r.DestroySurface(surf)
		return nil, fmt.Errorf("%w: %s: %v", ErrSurfaceBuild, step, err)
	}
	bound := page.Context(ctx)
	if err := bound.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             spec.WidthPx,
		Height:            initialViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fail("setting viewport", err)
	}
	if err := bound.SetDocumentContent(spec.HTML); err != nil {
		return fail("loading document", err)
	}
	if err := bound.WaitLoad(); err != nil {
		return fail("waiting for load", err)
	}
	return surf, nil
}

// preloadScript resolves once every image has loaded, failed or timed out.
const preloadScript = `(timeout) => Promise.all(Array.from(document.images).map(img => {
	if (img.complete) return Promise.resolve(img.naturalWidth > 0);
	return new Promise(resolve => {
		const timer = setTimeout(() => resolve(false), timeout);
		img.addEventListener('load', () => { clearTimeout(timer); resolve(true); }, { once: true });
		img.addEventListener('error', () => { clearTimeout(timer); resolve(false); }, { once: true });
	});
})).then(results => ({ total: results.length, failed: results.filter(ok => !ok).length }))`

// PreloadAssets waits for every image on the surface.
func (r *rodRasterizer) PreloadAssets(ctx context.Context, s Surface) (PreloadReport, error) {
	surf, err := asRodSurface(s)
	if err != nil {
		return PreloadReport{}, err
	}
	page, err := surf.current(ctx)
	if err != nil {
		return PreloadReport{}, err
	}
	res, err := page.Eval(preloadScript, imageTimeoutMS)
	if err != nil {
		return PreloadReport{}, err
	}
	total := res.Value.Get("total").Int()
	failed := res.Value.Get("failed").Int()
	return PreloadReport{Total: total, Loaded: total - failed, Failed: failed}, nil
}

// Rasterize captures the whole surface as one bitmap at scale.
func (r *rodRasterizer) Rasterize(ctx context.Context, s Surface, scale float64) (image.Image, error) {
	surf, err := asRodSurface(s)
	if err != nil {
		return nil, err
	}
	page, err := surf.current(ctx)
	if err != nil {
		return nil, err
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             surf.width,
		Height:            initialViewportHeight,
		DeviceScaleFactor: scale,
	}); err != nil {
		return nil, fmt.Errorf("setting scale: %w", err)
	}
	data, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format:                proto.PageCaptureScreenshotFormatPng,
		CaptureBeyondViewport: true,
	})
	if err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding screenshot: %w", err)
	}
	return img, nil
}

// DestroySurface closes the page. Safe to call more than once.
func (r *rodRasterizer) DestroySurface(s Surface) error {
	surf, err := asRodSurface(s)
	if err != nil {
		return err
	}
	page := surf.take()
	if page == nil {
		return nil
	}
	r.live.Add(-1)
	return page.Close()
}

func asRodSurface(s Surface) (*rodSurface, error) {
	surf, ok := s.(*rodSurface)
	if !ok || surf == nil {
		return nil, fmt.Errorf("%w: foreign surface %T", ErrInternal, s)
	}
	return surf, nil
}

// mermaidInit configures the diagram library for a theme.
const mermaidInit = `(theme) => {
	mermaid.initialize({
		startOnLoad: false,
		theme: theme.name === 'dark' ? 'dark' : 'default',
		securityLevel: 'strict',
		fontFamily: '-apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif',
		themeVariables: {
			primaryColor: '#667eea',
			primaryBorderColor: '#667eea',
			lineColor: '#667eea',
			secondaryColor: '#764ba2',
			primaryTextColor: theme.text,
			textColor: theme.text,
			nodeTextColor: theme.text,
			labelTextColor: theme.text,
			mainBkg: theme.background,
			labelBackground: theme.background,
			edgeLabelBackground: theme.background,
			noteBkgColor: theme.background,
			noteTextColor: theme.text,
		},
	});
}`

// mermaidRender renders one diagram and returns its SVG.
const mermaidRender = `async (code, id) => {
	const { svg } = await mermaid.render(id, code);
	return svg;
}`

// rodDiagramEngine renders diagrams in a dedicated page that has the
// diagram library loaded. Calls are serialized on that page.
type rodDiagramEngine struct {
	browser   *browser
	scriptURL string

	mu   sync.Mutex
	page *rod.Page
}

func newRodDiagramEngine(b *browser, scriptURL string) *rodDiagramEngine {
	return &rodDiagramEngine{browser: b, scriptURL: scriptURL}
}

// Initialize loads the library on first use and applies theme.
func (e *rodDiagramEngine) Initialize(ctx context.Context, theme diagram.Theme) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.page == nil {
		page, err := e.browser.page(ctx)
		if err != nil {
			return err
		}
		if err := page.Context(ctx).AddScriptTag(e.scriptURL, ""); err != nil {
			_ = page.Close()
			return fmt.Errorf("%w: loading %s: %v", ErrDiagramEngine, e.scriptURL, err)
		}
		e.page = page
	}
	_, err := e.page.Context(ctx).Eval(mermaidInit, map[string]string{
		"name":       theme.Name,
		"text":       theme.Text,
		"background": theme.Background,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDiagramEngine, err)
	}
	return nil
}

// Render returns the SVG for code, using elementID for the generated node.
func (e *rodDiagramEngine) Render(ctx context.Context, code, elementID string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.page == nil {
		return "", fmt.Errorf("%w: not initialized", ErrDiagramEngine)
	}
	res, err := e.page.Context(ctx).Eval(mermaidRender, code, elementID)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// Close releases the diagram page.
func (e *rodDiagramEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.page == nil {
		return nil
	}
	err := e.page.Close()
	e.page = nil
	return err
}
