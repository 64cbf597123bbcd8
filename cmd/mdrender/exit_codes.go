package main

import (
	"errors"
	"os"

	"github.com/alnah/go-mdrender"
	"github.com/alnah/go-mdrender/internal/config"
)

// Exit codes for the mdrender CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, custom codes < 126.
const (
	ExitSuccess = 0 // All files processed
	ExitGeneral = 1 // General/unexpected error, or some files failed
	ExitUsage   = 2 // Invalid flags, config, or options
	ExitIO      = 3 // File not found, permission denied, save failed
	ExitBrowser = 4 // Browser, rasterization or timeout errors
)

// exitCodeFor returns the exit code for err. Callers must wrap with %w.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, mdrender.ErrBrowserConnect) ||
		errors.Is(err, mdrender.ErrSurfaceBuild) ||
		errors.Is(err, mdrender.ErrRasterize) ||
		errors.Is(err, mdrender.ErrRasterizeTimeout) {
		return ExitBrowser
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadMarkdown) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, ErrReadCSS) ||
		errors.Is(err, ErrInputTooLarge) ||
		errors.Is(err, mdrender.ErrSave) {
		return ExitIO
	}

	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrOutOfRange) ||
		errors.Is(err, config.ErrInputTooLarge) ||
		errors.Is(err, mdrender.ErrEmptyMarkdown) ||
		errors.Is(err, mdrender.ErrEmptyFilename) ||
		errors.Is(err, mdrender.ErrFieldTooLong) ||
		errors.Is(err, mdrender.ErrInvalidPageSize) ||
		errors.Is(err, mdrender.ErrInvalidOrientation) ||
		errors.Is(err, mdrender.ErrInvalidMargin) ||
		errors.Is(err, mdrender.ErrInvalidFontSize) ||
		errors.Is(err, mdrender.ErrThemeNotFound) ||
		errors.Is(err, mdrender.ErrInvalidAssetPath) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, errUsage) {
		return ExitUsage
	}

	return ExitGeneral
}
