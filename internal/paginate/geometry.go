package paginate

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Page sizes.
const (
	SizeA4     = "a4"
	SizeA3     = "a3"
	SizeLetter = "letter"
)

// Orientations.
const (
	Portrait  = "portrait"
	Landscape = "landscape"
)

// Band geometry in millimetres.
const (
	DefaultMarginMM = 12.0
	HeaderBandMM    = 12.0 // drawn header height
	HeaderReserveMM = 15.0 // space between margin and content when the header is on
	FooterBandMM    = 10.0 // drawn footer height
	FooterReserveMM = 15.0 // space kept free above the bottom margin
)

var (
	ErrUnknownPageSize    = errors.New("unknown page size")
	ErrUnknownOrientation = errors.New("unknown orientation")
	ErrNoContentBand      = errors.New("margins leave no room for content")
)

type dims struct {
	widthMM, heightMM float64
	surfacePx         int
}

var pageSizes = map[string]dims{
	SizeA4:     {210, 297, 900},
	SizeA3:     {297, 420, 1200},
	SizeLetter: {215.9, 279.4, 850},
}

// IsValidSize reports whether size names a supported page size.
func IsValidSize(size string) bool {
	_, ok := pageSizes[strings.ToLower(size)]
	return ok
}

// IsValidOrientation reports whether o names a supported orientation.
func IsValidOrientation(o string) bool {
	switch strings.ToLower(o) {
	case Portrait, Landscape:
		return true
	}
	return false
}

// SurfaceWidthPx returns the CSS pixel width of the off-screen surface for
// a page size. Unknown sizes get the A4 width.
func SurfaceWidthPx(size string) int {
	if d, ok := pageSizes[strings.ToLower(size)]; ok {
		return d.surfacePx
	}
	return pageSizes[SizeA4].surfacePx
}

// Layout is the page geometry shared by planning and assembly.
type Layout struct {
	WidthMM  float64
	HeightMM float64
	MarginMM float64
	Header   bool
	Footer   bool
}

// NewLayout resolves a page size and orientation into millimetres.
func NewLayout(size, orientation string, marginMM float64, header, footer bool) (Layout, error) {
	d, ok := pageSizes[strings.ToLower(size)]
	if !ok {
		return Layout{}, fmt.Errorf("%w: %q", ErrUnknownPageSize, size)
	}
	if !IsValidOrientation(orientation) {
		return Layout{}, fmt.Errorf("%w: %q", ErrUnknownOrientation, orientation)
	}

	l := Layout{
		WidthMM:  d.widthMM,
		HeightMM: d.heightMM,
		MarginMM: marginMM,
		Header:   header,
		Footer:   footer,
	}
	if strings.EqualFold(orientation, Landscape) {
		l.WidthMM, l.HeightMM = l.HeightMM, l.WidthMM
	}
	if l.ContentWidthMM() <= 0 || l.BandHeightMM() <= 0 {
		return Layout{}, fmt.Errorf("%w: margin %.1fmm on %.1fx%.1fmm", ErrNoContentBand, marginMM, l.WidthMM, l.HeightMM)
	}
	return l, nil
}

// ContentWidthMM is the printable width between the side margins.
func (l Layout) ContentWidthMM() float64 {
	return l.WidthMM - 2*l.MarginMM
}

// ContentTopMM is where the content band starts.
func (l Layout) ContentTopMM() float64 {
	if l.Header {
		return l.MarginMM + HeaderReserveMM
	}
	return l.MarginMM
}

// BandHeightMM is the height of the page content band.
func (l Layout) BandHeightMM() float64 {
	h := l.HeightMM - l.ContentTopMM() - l.MarginMM
	if l.Footer {
		h -= FooterReserveMM
	}
	return h
}

// BandHeightPx converts the content band into bitmap rows for a bitmap
// bitmapWidth pixels wide scaled to the content width. The result is
// floored so a strip never overflows its band, and is at least 1.
func (l Layout) BandHeightPx(bitmapWidth int) int {
	px := int(math.Floor(l.BandHeightMM() * float64(bitmapWidth) / l.ContentWidthMM()))
	if px < 1 {
		return 1
	}
	return px
}

// PxToMM converts a bitmap row count into millimetres on the page.
func (l Layout) PxToMM(px, bitmapWidth int) float64 {
	if bitmapWidth <= 0 {
		return 0
	}
	return float64(px) * l.ContentWidthMM() / float64(bitmapWidth)
}
