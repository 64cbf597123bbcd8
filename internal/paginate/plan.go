package paginate

import "fmt"

// WatermarkAngle is the counter-clockwise rotation of the watermark text.
const (
	WatermarkAngle    = 45.0
	WatermarkFontSize = 48.0
)

// Rect is a rectangle on the page in millimetres.
type Rect struct {
	X, Y, W, H float64
}

// Watermark describes the rotated text stamped at the page centre.
type Watermark struct {
	Text     string
	CenterX  float64
	CenterY  float64
	Angle    float64
	FontSize float64
}

// PagePlan is everything drawn on one page.
type PagePlan struct {
	Slice     PageSlice
	Image     Rect       // where the strip is placed; zero height means no image
	Header    string     // filename in the header band, empty when disabled
	Footer    bool       // footer band and caption drawn
	Watermark *Watermark // nil when disabled
	Label     string     // "Page N of TOTAL", set by the numbering pass
}

// Options controls what each page carries besides its strip.
type Options struct {
	Layout        Layout
	Title         string
	Watermark     string
	FooterCaption string
	Uncompressed  bool
}

// Plan lays out a bitmapWidth x bitmapHeight bitmap over pages.
func Plan(bitmapWidth, bitmapHeight int, opts Options) []PagePlan {
	l := opts.Layout
	slices := Slice(bitmapHeight, l.BandHeightPx(bitmapWidth))

	plans := make([]PagePlan, len(slices))
	for i, s := range slices {
		p := PagePlan{
			Slice: s,
			Image: Rect{
				X: l.MarginMM,
				Y: l.ContentTopMM(),
				W: l.ContentWidthMM(),
				H: l.PxToMM(s.HeightPx, bitmapWidth),
			},
			Footer: l.Footer,
		}
		if l.Header {
			p.Header = opts.Title
		}
		if opts.Watermark != "" {
			p.Watermark = &Watermark{
				Text:     opts.Watermark,
				CenterX:  l.WidthMM / 2,
				CenterY:  l.HeightMM / 2,
				Angle:    WatermarkAngle,
				FontSize: WatermarkFontSize,
			}
		}
		plans[i] = p
	}
	return plans
}

// Number fills in page labels. It runs after every page is planned since
// the label needs the total.
func Number(plans []PagePlan) {
	for i := range plans {
		if plans[i].Footer {
			plans[i].Label = fmt.Sprintf("Page %d of %d", i+1, len(plans))
		}
	}
}
