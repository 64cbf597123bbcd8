package mdrender

import "errors"

// Sentinel errors for library operations.
var (
	ErrEmptyMarkdown    = errors.New("markdown content cannot be empty")
	ErrServiceClosed    = errors.New("service is closed")
	ErrInternal         = errors.New("internal error")
	ErrInvalidAssetPath = errors.New("invalid asset path")

	// Export option validation errors.
	ErrInvalidPageSize    = errors.New("invalid page size")
	ErrInvalidOrientation = errors.New("invalid orientation")
	ErrInvalidMargin      = errors.New("invalid margin")
	ErrInvalidFontSize    = errors.New("invalid font size")
	ErrEmptyFilename      = errors.New("filename cannot be empty")
	ErrFieldTooLong       = errors.New("field exceeds maximum length")
	ErrThemeNotFound      = errors.New("theme not found")

	// Export pipeline errors.
	ErrBrowserConnect   = errors.New("failed to connect to browser")
	ErrSurfaceBuild     = errors.New("failed to build export surface")
	ErrRasterize        = errors.New("rasterization failed")
	ErrRasterizeTimeout = errors.New("PDF generation timed out after 30 seconds - try simplifying diagrams")
	ErrAssemble         = errors.New("PDF assembly failed")
	ErrSave             = errors.New("failed to save export")
	ErrDiagramEngine    = errors.New("diagram engine failed")
)
