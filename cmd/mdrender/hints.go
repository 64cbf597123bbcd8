package main

import (
	"errors"

	"github.com/alnah/go-mdrender"
	"github.com/alnah/go-mdrender/internal/config"
	"github.com/alnah/go-mdrender/internal/hints"
)

// hintFor returns an actionable hint for err, or "".
func hintFor(err error) string {
	switch {
	case errors.Is(err, mdrender.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, mdrender.ErrRasterizeTimeout):
		return hints.ForRasterizeTimeout()
	case errors.Is(err, mdrender.ErrDiagramEngine):
		return hints.ForDiagrams()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(nil)
	case errors.Is(err, mdrender.ErrSave):
		return hints.ForOutputDirectory()
	case errors.Is(err, mdrender.ErrThemeNotFound):
		return hints.ForThemeNotFound([]string{mdrender.ThemeLight, mdrender.ThemeDark})
	}
	return ""
}
