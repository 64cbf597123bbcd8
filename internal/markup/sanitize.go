package markup

import "github.com/microcosm-cc/bluemonday"

// svgElements are kept so inline diagrams and hand-written SVG survive.
var svgElements = []string{
	"svg", "g", "path", "rect", "circle", "ellipse", "line", "polyline", "polygon",
	"text", "tspan", "defs", "marker", "foreignobject", "clippath", "use", "symbol",
	"title", "desc",
}

// svgAttrs are presentation and geometry attributes used by SVG output.
// Names are lowercase because the HTML tokenizer folds attribute case.
var svgAttrs = []string{
	"viewbox", "xmlns", "xmlns:xlink", "width", "height", "fill", "stroke",
	"stroke-width", "stroke-dasharray", "d", "x", "y", "x1", "y1", "x2", "y2",
	"cx", "cy", "r", "rx", "ry", "transform", "text-anchor", "dominant-baseline",
	"alignment-baseline", "font-size", "font-family", "font-weight", "font-style",
	"opacity", "points", "marker-start", "marker-end", "marker-mid", "dx", "dy",
	"lengthadjust", "textlength", "preserveaspectratio", "refx", "refy",
	"markerwidth", "markerheight", "orient",
}

// NewPolicy returns the allow-list used for rendered markup. Anything not
// listed is stripped; script, event handlers and javascript: URLs never pass.
func NewPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()

	p.AllowElements("details", "summary", "span", "div", "mark")
	p.AllowAttrs("open").OnElements("details")
	p.AllowAttrs("class", "id").Globally()
	p.AllowDataAttributes()
	p.AllowAttrs("target").Matching(bluemonday.Paragraph).OnElements("a")

	p.AllowElements(svgElements...)
	p.AllowAttrs(svgAttrs...).OnElements(svgElements...)

	// Task list checkboxes from GFM.
	p.AllowElements("input")
	p.AllowAttrs("type").Matching(bluemonday.SpaceSeparatedTokens).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")

	return p
}
