// Package surface builds the standalone HTML document that is rasterized
// for export: themed CSS, page-width layout, an optional metadata header and
// the rendered markup.
package surface

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/alnah/go-mdrender/internal/assets"
	"github.com/alnah/go-mdrender/internal/dateutil"
	"github.com/alnah/go-mdrender/internal/paginate"
)

// Defaults applied when a Spec leaves a field empty.
const (
	DefaultFontFamily = "Georgia"
	DefaultFontSize   = 12
	DefaultTheme      = assets.LightStyleName
)

// ErrTemplate indicates the surface template could not be parsed or executed.
var ErrTemplate = errors.New("surface template failed")

// highlightStyles maps a theme to the chroma style used for code blocks.
var highlightStyles = map[string]string{
	assets.LightStyleName: "github",
	assets.DarkStyleName:  "monokai",
}

// fontFamilyPattern limits font family values to what a CSS font list needs.
var fontFamilyPattern = regexp.MustCompile(`^[A-Za-z0-9 ,'"_-]+$`)

// Spec describes one surface.
type Spec struct {
	Body             string // sanitized markup
	Filename         string
	IncludeMetadata  bool
	IncludeTimestamp bool
	TimestampFormat  string
	PageSize         string
	FontFamily       string
	FontSize         int
	Theme            string
	CustomCSS        string
}

// Document is a built surface.
type Document struct {
	HTML       string
	WidthPx    int
	Title      string
	ImageCount int
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// Builder renders surfaces from the surface template.
type Builder struct {
	loader assets.Loader
	now    func() time.Time

	mu        sync.Mutex
	tmpl      *template.Template
	highlight map[string]string
}

// NewBuilder creates a Builder loading themes and the template from loader.
func NewBuilder(loader assets.Loader, opts ...Option) *Builder {
	b := &Builder{
		loader:    loader,
		now:       time.Now,
		highlight: make(map[string]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type templateData struct {
	Title        string
	ThemeCSS     template.CSS
	HighlightCSS template.CSS
	LayoutCSS    template.CSS
	CustomCSS    template.CSS
	Filename     string
	Timestamp    string
	Body         template.HTML
}

// Build renders spec into a standalone document.
func (b *Builder) Build(ctx context.Context, spec Spec) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	theme := spec.Theme
	if theme == "" {
		theme = DefaultTheme
	}
	themeCSS, err := b.loader.LoadStyle(theme)
	if err != nil {
		return nil, err
	}
	tmpl, err := b.template()
	if err != nil {
		return nil, err
	}

	info, err := Inspect(spec.Body)
	if err != nil {
		return nil, err
	}
	title := spec.Filename
	if title == "" {
		title = info.Title
	}

	width := paginate.SurfaceWidthPx(spec.PageSize)
	data := templateData{
		Title:        title,
		ThemeCSS:     template.CSS(sanitizeCSS(themeCSS)),
		HighlightCSS: template.CSS(b.highlightCSS(theme)),
		LayoutCSS:    template.CSS(layoutCSS(width, spec.FontFamily, spec.FontSize)),
		CustomCSS:    template.CSS(sanitizeCSS(spec.CustomCSS)),
		Body:         template.HTML(spec.Body), // #nosec G203 -- sanitized by markup renderer
	}
	if spec.IncludeMetadata {
		data.Filename = spec.Filename
		if spec.IncludeTimestamp {
			ts, err := dateutil.Format(b.now(), spec.TimestampFormat)
			if err != nil {
				return nil, err
			}
			data.Timestamp = ts
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}

	return &Document{
		HTML:       buf.String(),
		WidthPx:    width,
		Title:      title,
		ImageCount: info.ImageCount,
	}, nil
}

func (b *Builder) template() (*template.Template, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tmpl != nil {
		return b.tmpl, nil
	}
	content, err := b.loader.LoadTemplate(assets.SurfaceTemplateName)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New(assets.SurfaceTemplateName).Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	b.tmpl = tmpl
	return tmpl, nil
}

// highlightCSS returns chroma class CSS for a theme, generated once.
func (b *Builder) highlightCSS(theme string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if css, ok := b.highlight[theme]; ok {
		return css
	}
	name, ok := highlightStyles[theme]
	if !ok {
		name = highlightStyles[assets.LightStyleName]
	}
	var buf bytes.Buffer
	if err := chromahtml.New(chromahtml.WithClasses(true)).WriteCSS(&buf, styles.Get(name)); err != nil {
		return ""
	}
	b.highlight[theme] = buf.String()
	return b.highlight[theme]
}

func layoutCSS(widthPx int, family string, size int) string {
	if family == "" || !fontFamilyPattern.MatchString(family) {
		family = DefaultFontFamily
	}
	if size <= 0 {
		size = DefaultFontSize
	}
	return fmt.Sprintf(".surface { width: %dpx; font-family: %s, serif; font-size: %dpx; }", widthPx, family, size)
}

// sanitizeCSS escapes sequences that could close the <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

// Info is what the surface builder learns from the markup.
type Info struct {
	Title      string // text of the first h1, if any
	ImageCount int
}

// Inspect parses markup and reports its first heading and image count.
func Inspect(markup string) (Info, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return Info{}, fmt.Errorf("parsing markup: %w", err)
	}
	return Info{
		Title:      strings.TrimSpace(doc.Find("h1").First().Text()),
		ImageCount: doc.Find("img").Length(),
	}, nil
}
