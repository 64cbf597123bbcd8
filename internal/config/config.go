// Package config loads the YAML configuration shared by the CLI and library
// callers.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrOutOfRange      = errors.New("value out of range")
	ErrInputTooLarge   = errors.New("config exceeds maximum size")
)

// MaxInputSize caps config files at 1MB.
const MaxInputSize = 1 << 20

// Field limits.
const (
	MaxPageSizeLength    = 10
	MaxOrientationLength = 10
	MaxFontFamilyLength  = 100
	MaxWatermarkLength   = 50
	MaxFormatLength      = 50
	MaxThemeLength       = 30
	MaxPathLength        = 4096
	MaxURLLength         = 2048

	MinMarginMM   = 0.0
	MaxMarginMM   = 50.0
	MinFontSizePx = 6
	MaxFontSizePx = 48
	MaxCacheSize  = 10000
	MaxTimeout    = 300 // seconds
)

// Config holds all configuration.
type Config struct {
	Render   RenderConfig  `yaml:"render"`
	Export   ExportConfig  `yaml:"export"`
	Theme    ThemeConfig   `yaml:"theme"`
	Diagrams DiagramConfig `yaml:"diagrams"`
	Browser  BrowserConfig `yaml:"browser"`
	Assets   AssetsConfig  `yaml:"assets"`
}

// RenderConfig sizes the render caches and queue.
type RenderConfig struct {
	CacheSize      int `yaml:"cacheSize"`      // whole-document cache entries (0 = default)
	ChunkCacheSize int `yaml:"chunkCacheSize"` // chunk cache entries (0 = default)
	MaxPending     int `yaml:"maxPending"`     // queued requests before superseding (0 = default)
}

// ExportConfig holds export defaults; CLI flags override them.
type ExportConfig struct {
	PageSize        string  `yaml:"pageSize"`    // "a4", "a3", "letter"
	Orientation     string  `yaml:"orientation"` // "portrait", "landscape"
	Margin          float64 `yaml:"margin"`      // millimetres
	FontSize        int     `yaml:"fontSize"`    // CSS pixels
	FontFamily      string  `yaml:"fontFamily"`
	Header          bool    `yaml:"header"`
	Footer          bool    `yaml:"footer"`
	Timestamp       bool    `yaml:"timestamp"`
	TimestampFormat string  `yaml:"timestampFormat"`
	Watermark       string  `yaml:"watermark"`
	SkipDiagrams    bool    `yaml:"skipDiagrams"`
	OutputDir       string  `yaml:"outputDir"`
}

// ThemeConfig selects the color theme.
type ThemeConfig struct {
	Name string `yaml:"name"` // "light" or "dark"
}

// DiagramConfig configures the diagram engine.
type DiagramConfig struct {
	ScriptURL      string `yaml:"scriptURL"`      // mermaid bundle (empty = default CDN)
	TimeoutSeconds int    `yaml:"timeoutSeconds"` // per diagram (0 = default)
}

// BrowserConfig configures the headless browser.
type BrowserConfig struct {
	Bin       string `yaml:"bin"`       // empty = auto-download
	NoSandbox bool   `yaml:"noSandbox"` // required in most containers
}

// AssetsConfig defines asset loading options.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // empty = embedded assets
}

// DiagramTimeout returns the per-diagram timeout, zero when unset.
func (c *Config) DiagramTimeout() time.Duration {
	return time.Duration(c.Diagrams.TimeoutSeconds) * time.Second
}

// Validate checks field lengths and numeric ranges.
func (c *Config) Validate() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"export.pageSize", c.Export.PageSize, MaxPageSizeLength},
		{"export.orientation", c.Export.Orientation, MaxOrientationLength},
		{"export.fontFamily", c.Export.FontFamily, MaxFontFamilyLength},
		{"export.watermark", c.Export.Watermark, MaxWatermarkLength},
		{"export.timestampFormat", c.Export.TimestampFormat, MaxFormatLength},
		{"export.outputDir", c.Export.OutputDir, MaxPathLength},
		{"theme.name", c.Theme.Name, MaxThemeLength},
		{"diagrams.scriptURL", c.Diagrams.ScriptURL, MaxURLLength},
		{"browser.bin", c.Browser.Bin, MaxPathLength},
		{"assets.basePath", c.Assets.BasePath, MaxPathLength},
	}
	for _, f := range fields {
		if err := validateFieldLength(f.name, f.value, f.max); err != nil {
			return err
		}
	}

	if c.Export.Margin < MinMarginMM || c.Export.Margin > MaxMarginMM {
		return fmt.Errorf("%w: export.margin %.1f (must be between %.0f and %.0f)", ErrOutOfRange, c.Export.Margin, MinMarginMM, MaxMarginMM)
	}
	if c.Export.FontSize != 0 && (c.Export.FontSize < MinFontSizePx || c.Export.FontSize > MaxFontSizePx) {
		return fmt.Errorf("%w: export.fontSize %d (must be between %d and %d)", ErrOutOfRange, c.Export.FontSize, MinFontSizePx, MaxFontSizePx)
	}

	counts := []struct {
		name  string
		value int
		max   int
	}{
		{"render.cacheSize", c.Render.CacheSize, MaxCacheSize},
		{"render.chunkCacheSize", c.Render.ChunkCacheSize, MaxCacheSize},
		{"render.maxPending", c.Render.MaxPending, MaxCacheSize},
		{"diagrams.timeoutSeconds", c.Diagrams.TimeoutSeconds, MaxTimeout},
	}
	for _, n := range counts {
		if n.value < 0 || n.value > n.max {
			return fmt.Errorf("%w: %s %d (must be between 0 and %d)", ErrOutOfRange, n.name, n.value, n.max)
		}
	}
	return nil
}

func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Export: ExportConfig{
			PageSize:    "a4",
			Orientation: "portrait",
			Margin:      12,
			FontSize:    12,
			FontFamily:  "Georgia",
			Header:      true,
			Footer:      true,
		},
		Theme: ThemeConfig{Name: "light"},
	}
}

// Parse decodes YAML over the defaults, rejecting unknown fields.
func Parse(data []byte) (*Config, error) {
	if len(data) > MaxInputSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	}
	cfg := DefaultConfig()
	if len(data) == 0 {
		return cfg, nil
	}
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal encodes cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// LoadConfig loads configuration from a file path or config name.
// A value containing a path separator is a file path; otherwise it is a
// name searched in the current directory, then the user config directory.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !isFilePath(nameOrPath) {
		var err error
		if configPath, err = resolveConfigPath(nameOrPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath tries name.yaml then name.yml in the current directory,
// then in the user config directory under go-mdrender/.
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	tried := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		local := name + ext
		if fileExists(local) {
			return local, nil
		}
		tried = append(tried, local)
	}

	if dir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(dir, "go-mdrender", name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			tried = append(tried, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
