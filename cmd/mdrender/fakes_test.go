package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-mdrender"
)

// fakeSurface is a surface of fixed CSS width.
type fakeSurface struct{ width int }

func (s *fakeSurface) WidthPx() int { return s.width }

// fakeRasterizer produces a white bitmap instead of launching a browser.
type fakeRasterizer struct {
	heightCSS int
	err       error

	mu    sync.Mutex
	built int
}

func (r *fakeRasterizer) BuildSurface(_ context.Context, spec mdrender.SurfaceSpec) (mdrender.Surface, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.built++
	return &fakeSurface{width: spec.WidthPx}, nil
}

func (r *fakeRasterizer) PreloadAssets(context.Context, mdrender.Surface) (mdrender.PreloadReport, error) {
	return mdrender.PreloadReport{}, nil
}

func (r *fakeRasterizer) Rasterize(_ context.Context, s mdrender.Surface, scale float64) (image.Image, error) {
	if r.err != nil {
		return nil, r.err
	}
	h := r.heightCSS
	if h == 0 {
		h = 400
	}
	img := image.NewRGBA(image.Rect(0, 0, int(float64(s.WidthPx())*scale), int(float64(h)*scale)))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img, nil
}

func (r *fakeRasterizer) DestroySurface(mdrender.Surface) error { return nil }

func (r *fakeRasterizer) Built() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.built
}

// stubEngine renders every diagram to a fixed SVG.
type stubEngine struct{}

func (stubEngine) Initialize(context.Context, mdrender.DiagramTheme) error { return nil }

func (stubEngine) Render(_ context.Context, _, id string) (string, error) {
	return `<svg id="` + id + `"></svg>`, nil
}

// testEnv returns an environment writing to buffers, with fake backends.
func testEnv(t *testing.T, raster *fakeRasterizer) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	if raster == nil {
		raster = &fakeRasterizer{}
	}
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	env := &Environment{
		Now:    func() time.Time { return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC) },
		Stdin:  strings.NewReader(""),
		Stdout: stdout,
		Stderr: stderr,
		Vars:   &envConfig{},
		ServiceOptions: []mdrender.Option{
			mdrender.WithRasterizer(raster),
			mdrender.WithDiagramEngine(stubEngine{}),
		},
	}
	return env, stdout, stderr
}

// fakeExporter records exports and returns canned results.
type fakeExporter struct {
	err error

	mu    sync.Mutex
	calls []mdrender.ExportOptions
	html  int
}

func (e *fakeExporter) Export(_ context.Context, _ string, opts mdrender.ExportOptions) (*mdrender.ExportResult, error) {
	return e.record(opts, false)
}

func (e *fakeExporter) ExportHTML(_ context.Context, _ string, opts mdrender.ExportOptions) (*mdrender.ExportResult, error) {
	return e.record(opts, true)
}

func (e *fakeExporter) record(opts mdrender.ExportOptions, html bool) (*mdrender.ExportResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, opts)
	if html {
		e.html++
	}
	if e.err != nil {
		return &mdrender.ExportResult{State: mdrender.StateAborted}, e.err
	}
	return &mdrender.ExportResult{
		State:    mdrender.StateSaved,
		Location: "out/" + opts.Filename,
		Artifact: &mdrender.ExportArtifact{PageCount: 1},
		Warnings: []string{"1 of 2 images failed to load"},
	}, nil
}

// fakePool hands out a single exporter.
type fakePool struct {
	exporter   Exporter
	acquireErr error
	size       int

	mu       sync.Mutex
	acquired int
	released int
}

func (p *fakePool) Acquire() (Exporter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.acquired++
	return p.exporter, nil
}

func (p *fakePool) Release(Exporter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released++
}

func (p *fakePool) Size() int { return p.size }
