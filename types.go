package mdrender

import (
	"fmt"
	"strings"
	"time"

	"github.com/alnah/go-mdrender/internal/paginate"
)

// Page size constants.
const (
	PageSizeA4     = paginate.SizeA4
	PageSizeA3     = paginate.SizeA3
	PageSizeLetter = paginate.SizeLetter
)

// Orientation constants.
const (
	OrientationPortrait  = paginate.Portrait
	OrientationLandscape = paginate.Landscape
)

// Theme names.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Export option bounds.
const (
	DefaultMargin     = paginate.DefaultMarginMM // millimetres
	MinMargin         = 0.0
	MaxMargin         = 50.0
	DefaultFontSize   = 12 // CSS pixels
	MinFontSize       = 6
	MaxFontSize       = 48
	DefaultFontFamily = "Georgia"

	MaxFilenameLength   = 200
	MaxWatermarkLength  = 50
	MaxFontFamilyLength = 100
	MaxCustomCSSLength  = 64 << 10
)

// FooterCaption is printed in the footer band of every exported page.
const FooterCaption = "Generated by go-mdrender"

// ExportOptions controls one export.
type ExportOptions struct {
	Filename         string  // base name for the artifact; also shown in the header
	PageSize         string  // "a4", "a3", "letter"
	Orientation      string  // "portrait", "landscape"
	Margin           float64 // millimetres, applied to all sides
	FontSize         int     // CSS pixels
	FontFamily       string
	IncludeHeader    bool // header band with the filename on every page
	IncludeFooter    bool // footer band, caption and page numbers
	IncludeTimestamp bool // generation time in the surface metadata header
	TimestampFormat  string
	Watermark        string // empty disables the watermark
	SkipDiagrams     bool
	CustomCSS        string
	Theme            string // "light", "dark" or a custom asset style
	BaseDir          string // relative images under it are embedded; empty leaves them as-is
}

// DefaultExportOptions returns A4 portrait options with header and footer.
func DefaultExportOptions(filename string) ExportOptions {
	return ExportOptions{
		Filename:      filename,
		PageSize:      PageSizeA4,
		Orientation:   OrientationPortrait,
		Margin:        DefaultMargin,
		FontSize:      DefaultFontSize,
		FontFamily:    DefaultFontFamily,
		IncludeHeader: true,
		IncludeFooter: true,
		Theme:         ThemeLight,
	}
}

// withDefaults fills zero values.
func (o ExportOptions) withDefaults() ExportOptions {
	if o.PageSize == "" {
		o.PageSize = PageSizeA4
	}
	if o.Orientation == "" {
		o.Orientation = OrientationPortrait
	}
	if o.FontSize == 0 {
		o.FontSize = DefaultFontSize
	}
	if o.FontFamily == "" {
		o.FontFamily = DefaultFontFamily
	}
	if o.Theme == "" {
		o.Theme = ThemeLight
	}
	o.PageSize = strings.ToLower(o.PageSize)
	o.Orientation = strings.ToLower(o.Orientation)
	return o
}

// Validate checks that the options describe a printable page.
// Zero values are accepted and replaced by defaults at export time.
func (o ExportOptions) Validate() error {
	if strings.TrimSpace(o.Filename) == "" {
		return ErrEmptyFilename
	}
	if len(o.Filename) > MaxFilenameLength {
		return fmt.Errorf("%w: filename (%d chars, max %d)", ErrFieldTooLong, len(o.Filename), MaxFilenameLength)
	}
	if len(o.Watermark) > MaxWatermarkLength {
		return fmt.Errorf("%w: watermark (%d chars, max %d)", ErrFieldTooLong, len(o.Watermark), MaxWatermarkLength)
	}
	if len(o.FontFamily) > MaxFontFamilyLength {
		return fmt.Errorf("%w: font family (%d chars, max %d)", ErrFieldTooLong, len(o.FontFamily), MaxFontFamilyLength)
	}
	if len(o.CustomCSS) > MaxCustomCSSLength {
		return fmt.Errorf("%w: custom CSS (%d bytes, max %d)", ErrFieldTooLong, len(o.CustomCSS), MaxCustomCSSLength)
	}
	if o.PageSize != "" && !paginate.IsValidSize(o.PageSize) {
		return fmt.Errorf("%w: %q (must be a4, a3, or letter)", ErrInvalidPageSize, o.PageSize)
	}
	if o.Orientation != "" && !paginate.IsValidOrientation(o.Orientation) {
		return fmt.Errorf("%w: %q (must be portrait or landscape)", ErrInvalidOrientation, o.Orientation)
	}
	if o.Margin < MinMargin || o.Margin > MaxMargin {
		return fmt.Errorf("%w: %.1fmm (must be between %.0f and %.0f)", ErrInvalidMargin, o.Margin, MinMargin, MaxMargin)
	}
	if o.FontSize != 0 && (o.FontSize < MinFontSize || o.FontSize > MaxFontSize) {
		return fmt.Errorf("%w: %d (must be between %d and %d)", ErrInvalidFontSize, o.FontSize, MinFontSize, MaxFontSize)
	}
	return nil
}

// RenderResult is the outcome of an asynchronous render.
type RenderResult struct {
	HTML string
	// Superseded is set when a newer request replaced this one before it
	// ran. HTML is empty; the caller should wait on the newer request.
	Superseded bool
}

// ExportState is a stage of the export pipeline.
type ExportState int

// Export stages in order. StateAborted is reachable from any of them.
const (
	StateBuilding ExportState = iota
	StatePreloading
	StateRasterizing
	StateSlicing
	StateAssembling
	StateSaved
	StateAborted
)

var exportStateNames = [...]string{"building", "preloading", "rasterizing", "slicing", "assembling", "saved", "aborted"}

func (s ExportState) String() string {
	if s < 0 || int(s) >= len(exportStateNames) {
		return fmt.Sprintf("ExportState(%d)", int(s))
	}
	return exportStateNames[s]
}

// DiagramReport counts diagram blocks processed during an export.
type DiagramReport struct {
	Found    int
	Rendered int
	Failed   int
}

// Watermark describes the rotated text stamped on a page.
type Watermark struct {
	Text     string
	CenterX  float64 // mm
	CenterY  float64 // mm
	Angle    float64 // degrees, counter-clockwise
	FontSize float64 // points
}

// Page describes one page of an exported PDF.
type Page struct {
	Number    int
	SourceY   int // first bitmap row shown on the page
	HeightPx  int
	Header    string
	Watermark *Watermark
	Label     string // "Page N of TOTAL" when footers are on
}

// ExportArtifact is a finished export handed to the sink.
type ExportArtifact struct {
	Filename    string
	ContentType string
	PageCount   int
	Pages       []Page
	Data        []byte
}

// ExportResult reports how an export went.
type ExportResult struct {
	State    ExportState
	Artifact *ExportArtifact
	Location string // where the sink stored the artifact
	Diagrams DiagramReport
	Images   PreloadReport
	Warnings []string
	Duration time.Duration
}

// CacheCounters are the counters of one cache.
type CacheCounters struct {
	Len    int
	Hits   uint64
	Misses uint64
}

// CacheStats reports the render caches.
type CacheStats struct {
	Documents  CacheCounters
	Chunks     CacheCounters
	ChunkLists CacheCounters
}
