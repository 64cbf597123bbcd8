package assets

// Built-in asset names.
const (
	LightStyleName      = "light"
	DarkStyleName       = "dark"
	SurfaceTemplateName = "surface"
)

// Loader loads CSS styles and HTML templates by name.
type Loader interface {
	// LoadStyle loads a CSS style by name (without .css extension).
	LoadStyle(name string) (string, error)

	// LoadTemplate loads an HTML template by name (without .html extension).
	LoadTemplate(name string) (string, error)
}

// defaultLoader serves the package-level helpers.
var defaultLoader = NewEmbeddedLoader()

// LoadStyle loads a built-in CSS style.
func LoadStyle(name string) (string, error) {
	return defaultLoader.LoadStyle(name)
}

// LoadTemplate loads a built-in HTML template.
func LoadTemplate(name string) (string, error) {
	return defaultLoader.LoadTemplate(name)
}
