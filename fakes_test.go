package mdrender

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"sync/atomic"

	"github.com/alnah/go-mdrender/internal/diagram"
	"github.com/alnah/go-mdrender/internal/markup"
)

// ---------------------------------------------------------------------------
// fakeRasterizer - in-memory Rasterizer counting live surfaces
// ---------------------------------------------------------------------------

type fakeSurface struct {
	width int
}

func (s *fakeSurface) WidthPx() int { return s.width }

type fakeRasterizer struct {
	heightCSS int // document height in CSS pixels; 0 means 1000

	buildErr     error
	preloadErr   error
	preloadPanic any
	rasterErr    error
	rasterPanic  any
	rasterBlock  bool // block until ctx is done
	report       PreloadReport

	mu        sync.Mutex
	live      int
	built     int
	destroyed int
	lastHTML  string
}

func (f *fakeRasterizer) BuildSurface(ctx context.Context, spec SurfaceSpec) (Surface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	f.live++
	f.built++
	f.lastHTML = spec.HTML
	return &fakeSurface{width: spec.WidthPx}, nil
}

func (f *fakeRasterizer) PreloadAssets(ctx context.Context, s Surface) (PreloadReport, error) {
	if f.preloadPanic != nil {
		panic(f.preloadPanic)
	}
	return f.report, f.preloadErr
}

func (f *fakeRasterizer) Rasterize(ctx context.Context, s Surface, scale float64) (image.Image, error) {
	if f.rasterPanic != nil {
		panic(f.rasterPanic)
	}
	if f.rasterBlock {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.rasterErr != nil {
		return nil, f.rasterErr
	}
	h := f.heightCSS
	if h == 0 {
		h = 1000
	}
	w := int(float64(s.WidthPx()) * scale)
	img := image.NewRGBA(image.Rect(0, 0, w, int(float64(h)*scale)))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return img, nil
}

func (f *fakeRasterizer) DestroySurface(s Surface) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live--
	f.destroyed++
	return nil
}

func (f *fakeRasterizer) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live
}

func (f *fakeRasterizer) HTML() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastHTML
}

// ---------------------------------------------------------------------------
// countingRenderer - goldmark renderer counting calls
// ---------------------------------------------------------------------------

type countingRenderer struct {
	inner *markup.Goldmark
	calls atomic.Int64
	panic bool
}

func newCountingRenderer() *countingRenderer {
	return &countingRenderer{inner: markup.NewGoldmark()}
}

func (r *countingRenderer) Render(source string) string {
	r.calls.Add(1)
	if r.panic {
		panic("renderer exploded")
	}
	return r.inner.Render(source)
}

// ---------------------------------------------------------------------------
// Diagram engines
// ---------------------------------------------------------------------------

// stubEngine returns a fixed SVG.
type stubEngine struct {
	inits atomic.Int64
}

func (e *stubEngine) Initialize(ctx context.Context, theme diagram.Theme) error {
	e.inits.Add(1)
	return nil
}

func (e *stubEngine) Render(ctx context.Context, code, elementID string) (string, error) {
	return `<svg id="` + elementID + `"><text>ok</text></svg>`, nil
}

// blockingEngine never finishes a render before ctx ends.
type blockingEngine struct{}

func (blockingEngine) Initialize(ctx context.Context, theme diagram.Theme) error { return nil }

func (blockingEngine) Render(ctx context.Context, code, elementID string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

// ---------------------------------------------------------------------------
// memorySink - Sink keeping artifacts in memory
// ---------------------------------------------------------------------------

type memorySink struct {
	err error

	mu    sync.Mutex
	files map[string][]byte
}

func newMemorySink() *memorySink {
	return &memorySink{files: make(map[string][]byte)}
}

func (m *memorySink) Save(ctx context.Context, data []byte, filename string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filename] = data
	return "memory://" + filename, nil
}

func (m *memorySink) File(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	return data, ok
}
