package mdrender

import (
	"context"
	"image"
)

// DeviceScale is the pixel ratio used when rasterizing a surface.
const DeviceScale = 2.0

// SurfaceSpec describes the off-screen document to build.
type SurfaceSpec struct {
	HTML    string
	WidthPx int // CSS pixels
}

// Surface is an off-screen render target owned by a Rasterizer.
type Surface interface {
	WidthPx() int
}

// PreloadReport counts the images a surface waited for.
type PreloadReport struct {
	Total  int
	Loaded int
	Failed int
}

// Rasterizer turns a surface document into a single bitmap.
// DestroySurface must be safe to call after any other method failed.
type Rasterizer interface {
	BuildSurface(ctx context.Context, spec SurfaceSpec) (Surface, error)
	PreloadAssets(ctx context.Context, s Surface) (PreloadReport, error)
	Rasterize(ctx context.Context, s Surface, scale float64) (image.Image, error)
	DestroySurface(s Surface) error
}
