// Package assets provides the CSS themes and HTML templates used to build
// the off-screen export surface.
//
// # Loader Architecture
//
//	Loader (interface)
//	    │
//	    ├── EmbeddedLoader    - built-in themes and templates (go:embed)
//	    ├── FilesystemLoader  - user assets from a directory on disk
//	    └── Resolver          - custom-first lookup with embedded fallback
//
// # Directory Structure
//
//	{basePath}/
//	├── styles/
//	│   └── {theme}.css     # e.g. light.css, dark.css
//	└── templates/
//	    └── {name}.html     # e.g. surface.html
//
// Asset names are validated; FilesystemLoader resolves symlinks and refuses
// paths that escape basePath.
package assets
