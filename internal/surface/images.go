package surface

import (
	"encoding/base64"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MaxInlineImageSize caps a local image embedded into a surface.
const MaxInlineImageSize = 10 << 20

// ErrImageTooLarge is returned for a local image over MaxInlineImageSize.
var ErrImageTooLarge = errors.New("image exceeds inline size limit")

// InlineReport counts the local images InlineLocalImages saw.
type InlineReport struct {
	Inlined int
	Skipped int // missing, too large, not an image, or outside the base dir
}

// InlineLocalImages replaces relative img sources with data: URIs read
// from baseDir, so the surface renders them without file access. URLs,
// absolute paths and paths escaping baseDir are left as they are.
// An empty baseDir returns the markup unchanged.
func InlineLocalImages(markup, baseDir string) (string, InlineReport, error) {
	var report InlineReport
	if baseDir == "" || !strings.Contains(markup, "<img") {
		return markup, report, nil
	}

	absDir, err := filepath.Abs(baseDir)
	if err != nil {
		return "", report, err
	}

	body := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return "", report, err
	}

	for _, n := range nodes {
		inlineImages(n, absDir, &report)
	}
	if report.Inlined == 0 {
		return markup, report, nil
	}

	var buf strings.Builder
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", report, err
		}
	}
	return buf.String(), report, nil
}

func inlineImages(n *html.Node, dir string, report *InlineReport) {
	if n.Type == html.ElementNode && n.DataAtom == atom.Img {
		for i, attr := range n.Attr {
			if attr.Key != "src" {
				continue
			}
			path, ok := localPath(attr.Val, dir)
			if !ok {
				break
			}
			uri, err := dataURI(path)
			if err != nil {
				report.Skipped++
				break
			}
			n.Attr[i].Val = uri
			report.Inlined++
			break
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		inlineImages(c, dir, report)
	}
}

// localPath resolves a relative src against dir. It reports false for
// URLs, anchors, absolute paths and traversal outside dir.
func localPath(src, dir string) (string, bool) {
	if src == "" || strings.HasPrefix(src, "#") || strings.HasPrefix(src, "//") {
		return "", false
	}
	u, err := url.Parse(src)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" {
		return "", false
	}
	rel := filepath.FromSlash(u.Path)
	if filepath.IsAbs(rel) || strings.HasPrefix(u.Path, "/") {
		return "", false
	}

	abs := filepath.Join(dir, rel)
	if !isUnderDir(abs, dir) {
		return "", false
	}
	return abs, true
}

// isUnderDir checks that path lies inside dir.
func isUnderDir(path, dir string) bool {
	cleanDir := filepath.Clean(dir)
	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}
	return strings.HasPrefix(filepath.Clean(path)+string(filepath.Separator), cleanDir)
}

// dataURI reads an image file and encodes it as a data: URI.
func dataURI(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", errors.New("is a directory")
	}
	if info.Size() > MaxInlineImageSize {
		return "", ErrImageTooLarge
	}

	data, err := os.ReadFile(path) // #nosec G304 -- confined to the base dir
	if err != nil {
		return "", err
	}

	ctype := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	ctype, _, _ = strings.Cut(ctype, ";")
	if !strings.HasPrefix(ctype, "image/") {
		return "", errors.New("not an image: " + ctype)
	}
	return "data:" + ctype + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
