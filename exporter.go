package mdrender

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-mdrender/internal/assets"
	"github.com/alnah/go-mdrender/internal/diagram"
	"github.com/alnah/go-mdrender/internal/fileutil"
	"github.com/alnah/go-mdrender/internal/paginate"
	"github.com/alnah/go-mdrender/internal/surface"
)

// Export time limits.
const (
	DefaultDiagramBudget    = 15 * time.Second
	DefaultRasterizeTimeout = 30 * time.Second
)

// exporter runs the Building → Saved pipeline for one document at a time.
// It holds no per-export state; concurrent exports are safe when the
// rasterizer is.
type exporter struct {
	diagrams         *diagram.Processor // nil disables the diagram pass
	surfaces         *surface.Builder
	raster           Rasterizer
	sink             Sink
	log              *zap.Logger
	diagramBudget    time.Duration
	rasterizeTimeout time.Duration
	workers          int
	onStage          func(ExportState)
	now              func() time.Time
	uncompressed     bool // leave PDF streams readable, for tests
}

// exportRun tracks one export. Stage changes go through enter so the hook
// and the logs see the same sequence.
type exportRun struct {
	e      *exporter
	res    *ExportResult
	start  time.Time
	fields []zap.Field
}

func (r *exportRun) enter(s ExportState) {
	r.res.State = s
	r.e.log.Debug("export stage", append(r.fields, zap.Stringer("stage", s))...)
	if r.e.onStage != nil {
		r.e.onStage(s)
	}
}

func (r *exportRun) warn(msg string, fields ...zap.Field) {
	r.res.Warnings = append(r.res.Warnings, msg)
	r.e.log.Warn(msg, append(r.fields, fields...)...)
}

// export turns rendered markup into a paginated PDF and hands it to the
// sink. The surface is destroyed on every path out, panics included.
func (e *exporter) export(ctx context.Context, markup string, opts ExportOptions) (res *ExportResult, err error) {
	run := &exportRun{
		e:      e,
		res:    &ExportResult{},
		start:  e.now(),
		fields: []zap.Field{zap.String("filename", opts.Filename)},
	}
	res = run.res

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("export panicked", append(run.fields, zap.Any("panic", r))...)
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
		res.Duration = e.now().Sub(run.start)
		if err != nil {
			run.enter(StateAborted)
			e.log.Debug("export aborted", append(run.fields, zap.Error(err))...)
		}
	}()

	// Building
	run.enter(StateBuilding)
	layout, err := paginate.NewLayout(opts.PageSize, opts.Orientation, opts.Margin, opts.IncludeHeader, opts.IncludeFooter)
	if err != nil {
		return res, layoutError(err)
	}
	if !opts.SkipDiagrams {
		markup = e.processDiagrams(ctx, run, markup, diagram.ThemeByName(opts.Theme))
	}
	markup = e.inlineImages(run, markup, opts.BaseDir)
	doc, err := e.surfaces.Build(ctx, surfaceSpec(markup, opts))
	if err != nil {
		return res, surfaceError(err)
	}
	run.fields = append(run.fields, zap.Int("images", doc.ImageCount))
	surf, err := e.raster.BuildSurface(ctx, SurfaceSpec{HTML: doc.HTML, WidthPx: doc.WidthPx})
	if err != nil {
		return res, wrapBackend(ErrSurfaceBuild, err)
	}
	defer e.destroy(surf, run.fields)

	// Preloading
	run.enter(StatePreloading)
	report, err := e.raster.PreloadAssets(ctx, surf)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		run.warn("image preload failed", zap.Error(err))
	}
	res.Images = report
	if report.Failed > 0 {
		run.warn(fmt.Sprintf("%d of %d images failed to load", report.Failed, report.Total))
	}

	// Rasterizing
	run.enter(StateRasterizing)
	img, err := e.rasterize(ctx, surf)
	if err != nil {
		return res, err
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 {
		return res, fmt.Errorf("%w: empty bitmap", ErrRasterize)
	}

	// Slicing
	run.enter(StateSlicing)
	popts := paginate.Options{
		Layout:       layout,
		Title:        opts.Filename,
		Watermark:    opts.Watermark,
		Uncompressed: e.uncompressed,
	}
	if opts.IncludeFooter {
		popts.FooterCaption = FooterCaption
	}
	plans := paginate.Plan(bounds.Dx(), bounds.Dy(), popts)
	run.fields = append(run.fields, zap.Int("pages", len(plans)))

	// Assembling
	run.enter(StateAssembling)
	strips, err := paginate.EncodeStrips(ctx, img, plans, e.workers)
	if err != nil {
		return res, wrapBackend(ErrAssemble, err)
	}
	pdf, err := paginate.Assemble(ctx, plans, strips, popts)
	if err != nil {
		return res, wrapBackend(ErrAssemble, err)
	}

	filename := artifactName(opts.Filename, ".pdf")
	location, err := e.sink.Save(ctx, pdf.PDF, filename)
	if err != nil {
		return res, wrapBackend(ErrSave, err)
	}

	res.Artifact = &ExportArtifact{
		Filename:    filename,
		ContentType: "application/pdf",
		PageCount:   len(pdf.Pages),
		Pages:       pages(pdf.Pages),
		Data:        pdf.PDF,
	}
	res.Location = location
	run.enter(StateSaved)
	e.log.Debug("export saved", append(run.fields,
		zap.String("location", location),
		zap.Duration("duration", e.now().Sub(run.start)))...)
	return res, nil
}

// exportHTML saves the surface document itself instead of a PDF.
func (e *exporter) exportHTML(ctx context.Context, markup string, opts ExportOptions) (res *ExportResult, err error) {
	run := &exportRun{
		e:      e,
		res:    &ExportResult{},
		start:  e.now(),
		fields: []zap.Field{zap.String("filename", opts.Filename), zap.String("format", "html")},
	}
	res = run.res

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("html export panicked", append(run.fields, zap.Any("panic", r))...)
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
		res.Duration = e.now().Sub(run.start)
		if err != nil {
			run.enter(StateAborted)
		}
	}()

	run.enter(StateBuilding)
	if !opts.SkipDiagrams {
		markup = e.processDiagrams(ctx, run, markup, diagram.ThemeByName(opts.Theme))
	}
	markup = e.inlineImages(run, markup, opts.BaseDir)
	doc, err := e.surfaces.Build(ctx, surfaceSpec(markup, opts))
	if err != nil {
		return res, surfaceError(err)
	}

	data := []byte(doc.HTML)
	filename := artifactName(opts.Filename, ".html")
	location, err := e.sink.Save(ctx, data, filename)
	if err != nil {
		return res, wrapBackend(ErrSave, err)
	}
	res.Artifact = &ExportArtifact{
		Filename:    filename,
		ContentType: "text/html; charset=utf-8",
		Data:        data,
	}
	res.Location = location
	run.enter(StateSaved)
	return res, nil
}

func surfaceSpec(markup string, opts ExportOptions) surface.Spec {
	return surface.Spec{
		Body:             markup,
		Filename:         opts.Filename,
		IncludeMetadata:  true,
		IncludeTimestamp: opts.IncludeTimestamp,
		TimestampFormat:  opts.TimestampFormat,
		PageSize:         opts.PageSize,
		FontFamily:       opts.FontFamily,
		FontSize:         opts.FontSize,
		Theme:            opts.Theme,
		CustomCSS:        opts.CustomCSS,
	}
}

// processDiagrams runs the diagram pass under the overall budget. When the
// budget runs out the unprocessed markup is used and a warning is recorded.
func (e *exporter) processDiagrams(ctx context.Context, run *exportRun, markup string, theme diagram.Theme) string {
	if e.diagrams == nil || !diagram.Has(markup) {
		return markup
	}

	ctx, cancel := context.WithTimeout(ctx, e.diagramBudget)
	defer cancel()

	type outcome struct {
		markup string
		report diagram.Report
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.log.Error("diagram pass panicked", zap.Any("panic", r))
				done <- outcome{markup: markup}
			}
		}()
		out, report := e.diagrams.Process(ctx, markup, theme)
		done <- outcome{markup: out, report: report}
	}()

	select {
	case o := <-done:
		run.res.Diagrams = DiagramReport(o.report)
		if o.report.Failed > 0 {
			run.warn(fmt.Sprintf("%d of %d diagrams failed to render", o.report.Failed, o.report.Found))
		}
		return o.markup
	case <-ctx.Done():
		run.warn("diagram rendering timed out, exporting diagram source", zap.Duration("budget", e.diagramBudget))
		return markup
	}
}

// rasterize captures the surface under the hard timeout. The backend call
// runs on its own goroutine so a hung browser cannot hold the export.
func (e *exporter) rasterize(ctx context.Context, surf Surface) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, e.rasterizeTimeout)
	defer cancel()

	type outcome struct {
		img image.Image
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: panic: %v", ErrRasterize, r)}
			}
		}()
		img, err := e.raster.Rasterize(ctx, surf, DeviceScale)
		done <- outcome{img: img, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrRasterizeTimeout
			}
			return nil, wrapBackend(ErrRasterize, o.err)
		}
		if o.img == nil {
			return nil, fmt.Errorf("%w: no bitmap", ErrRasterize)
		}
		return o.img, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrRasterizeTimeout
		}
		return nil, ctx.Err()
	}
}

// inlineImages embeds images referenced relative to baseDir. Failures
// leave the markup as it was.
func (e *exporter) inlineImages(run *exportRun, markup, baseDir string) string {
	if baseDir == "" {
		return markup
	}
	out, report, err := surface.InlineLocalImages(markup, baseDir)
	if err != nil {
		run.warn("local images not embedded", zap.Error(err))
		return markup
	}
	if report.Skipped > 0 {
		run.warn(fmt.Sprintf("%d local images could not be embedded", report.Skipped))
	}
	return out
}

// destroy releases the surface. It never panics.
func (e *exporter) destroy(surf Surface, fields []zap.Field) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("surface cleanup panicked", append(fields, zap.Any("panic", r))...)
		}
	}()
	if err := e.raster.DestroySurface(surf); err != nil {
		e.log.Warn("surface cleanup failed", append(fields, zap.Error(err))...)
	}
}

// wrapBackend tags err with kind unless it already carries a sentinel or a
// context error.
func wrapBackend(kind, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrBrowserConnect) || errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %v", kind, err)
}

func surfaceError(err error) error {
	if errors.Is(err, assets.ErrStyleNotFound) || errors.Is(err, assets.ErrInvalidAssetName) {
		return fmt.Errorf("%w: %v", ErrThemeNotFound, err)
	}
	return wrapBackend(ErrSurfaceBuild, err)
}

func layoutError(err error) error {
	switch {
	case errors.Is(err, paginate.ErrUnknownOrientation):
		return fmt.Errorf("%w: %v", ErrInvalidOrientation, err)
	case errors.Is(err, paginate.ErrNoContentBand):
		return fmt.Errorf("%w: %v", ErrInvalidMargin, err)
	}
	return fmt.Errorf("%w: %v", ErrInvalidPageSize, err)
}

// artifactName derives the saved file name from the document name:
// "notes.md" becomes "notes.pdf".
func artifactName(name, ext string) string {
	base := name
	for _, src := range []string{".markdown", ".md"} {
		if len(base) > len(src) && strings.EqualFold(base[len(base)-len(src):], src) {
			base = base[:len(base)-len(src)]
			break
		}
	}
	base, err := fileutil.SanitizeFilename(base)
	if err != nil {
		base = "document"
	}
	out, err := fileutil.WithExtension(base, ext)
	if err != nil {
		return base + ext
	}
	return out
}

// pages converts the assembly plan to the public page description.
func pages(plans []paginate.PagePlan) []Page {
	out := make([]Page, len(plans))
	for i, p := range plans {
		out[i] = Page{
			Number:   p.Slice.PageNumber,
			SourceY:  p.Slice.SourceY,
			HeightPx: p.Slice.HeightPx,
			Header:   p.Header,
			Label:    p.Label,
		}
		if p.Watermark != nil {
			w := Watermark(*p.Watermark)
			out[i].Watermark = &w
		}
	}
	return out
}
