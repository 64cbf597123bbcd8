package paginate

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	fontFamily   = "Helvetica"
	ptPerMM      = 72.0 / 25.4
	footerTextMM = 10.0 // distance of footer text from the page edges
)

// Document is the assembled PDF and the plan it was drawn from.
type Document struct {
	PDF   []byte
	Pages []PagePlan
}

// Assemble draws plans onto a new PDF. strips[i] is the PNG for plans[i],
// or nil when that page has no image.
func Assemble(ctx context.Context, plans []PagePlan, strips [][]byte, opts Options) (*Document, error) {
	if len(strips) != len(plans) {
		return nil, fmt.Errorf("%d strips for %d pages", len(strips), len(plans))
	}

	l := opts.Layout
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: l.WidthMM, Ht: l.HeightMM},
	})
	pdf.SetCompression(!opts.Uncompressed)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCreator("go-mdrender", true)
	pdf.SetCreationDate(time.Now())
	if opts.Title != "" {
		pdf.SetTitle(opts.Title, true)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for i, p := range plans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pdf.AddPage()
		if p.Header != "" {
			drawHeader(pdf, l, tr(p.Header))
		}
		if strips[i] != nil {
			name := "page-" + strconv.Itoa(p.Slice.PageNumber)
			imgOpts := fpdf.ImageOptions{ImageType: "PNG"}
			pdf.RegisterImageOptionsReader(name, imgOpts, bytes.NewReader(strips[i]))
			pdf.ImageOptions(name, p.Image.X, p.Image.Y, p.Image.W, p.Image.H, false, imgOpts, 0, "")
		}
		if p.Watermark != nil {
			drawWatermark(pdf, *p.Watermark, tr(p.Watermark.Text))
		}
		if p.Footer {
			drawFooter(pdf, l, tr(opts.FooterCaption))
		}
		if pdf.Err() {
			return nil, pdf.Error()
		}
	}

	// Second pass: the total is known only now.
	Number(plans)
	for i, p := range plans {
		if p.Label == "" {
			continue
		}
		pdf.SetPage(i + 1)
		selectFont(pdf, "", 8)
		pdf.SetTextColor(100, 100, 100)
		label := tr(p.Label)
		pdf.Text(l.WidthMM-footerTextMM-pdf.GetStringWidth(label), l.HeightMM-4, label)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return &Document{PDF: buf.Bytes(), Pages: plans}, nil
}

// render plans, encodes and assembles img in one call.
func render(ctx context.Context, img image.Image, opts Options, workers int) (*Document, error) {
	b := img.Bounds()
	plans := Plan(b.Dx(), b.Dy(), opts)
	strips, err := EncodeStrips(ctx, img, plans, workers)
	if err != nil {
		return nil, err
	}
	return Assemble(ctx, plans, strips, opts)
}

// selectFont sets the font and always emits it into the current page
// stream. fpdf skips SetFont when nothing changed, which is wrong after
// SetPage moves back to an earlier page.
func selectFont(pdf *fpdf.Fpdf, style string, size float64) {
	pdf.SetFont(fontFamily, style, size+1)
	pdf.SetFont(fontFamily, style, size)
}

func drawHeader(pdf *fpdf.Fpdf, l Layout, title string) {
	pdf.SetFillColor(248, 249, 250)
	pdf.Rect(0, 0, l.WidthMM, HeaderBandMM, "F")
	pdf.SetDrawColor(220, 220, 220)
	pdf.SetLineWidth(0.3)
	pdf.Line(0, HeaderBandMM, l.WidthMM, HeaderBandMM)

	selectFont(pdf, "B", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.Text((l.WidthMM-pdf.GetStringWidth(title))/2, 8, title)
}

func drawFooter(pdf *fpdf.Fpdf, l Layout, caption string) {
	top := l.HeightMM - FooterBandMM
	pdf.SetFillColor(248, 249, 250)
	pdf.Rect(0, top, l.WidthMM, FooterBandMM, "F")
	pdf.SetDrawColor(220, 220, 220)
	pdf.SetLineWidth(0.3)
	pdf.Line(0, top, l.WidthMM, top)

	if caption == "" {
		return
	}
	selectFont(pdf, "", 7)
	pdf.SetTextColor(120, 120, 120)
	pdf.Text(footerTextMM, l.HeightMM-5, caption)
}

func drawWatermark(pdf *fpdf.Fpdf, w Watermark, text string) {
	selectFont(pdf, "", w.FontSize)
	pdf.SetTextColor(200, 200, 200)
	width := pdf.GetStringWidth(text)
	// Baseline sits a third of the em below the centre.
	ascent := w.FontSize / ptPerMM / 3

	pdf.TransformBegin()
	pdf.TransformRotate(w.Angle, w.CenterX, w.CenterY)
	pdf.Text(w.CenterX-width/2, w.CenterY+ascent, text)
	pdf.TransformEnd()
}
