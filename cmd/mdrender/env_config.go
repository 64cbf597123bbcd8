package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/alnah/go-mdrender/internal/config"
)

// envConfig holds configuration from environment variables.
type envConfig struct {
	ConfigPath string // MDRENDER_CONFIG
	OutputDir  string // MDRENDER_OUTPUT_DIR
	PageSize   string // MDRENDER_PAGE_SIZE
	Theme      string // MDRENDER_THEME
	Watermark  string // MDRENDER_WATERMARK
	Workers    int    // MDRENDER_WORKERS

	// Browser settings shared with the rod tooling.
	BrowserBin string // ROD_BROWSER_BIN
	NoSandbox  bool   // ROD_NO_SANDBOX or CI=true
}

// knownEnvVars lists the MDRENDER_* variables, to catch typos.
var knownEnvVars = map[string]bool{
	"MDRENDER_CONFIG":     true,
	"MDRENDER_OUTPUT_DIR": true,
	"MDRENDER_PAGE_SIZE":  true,
	"MDRENDER_THEME":      true,
	"MDRENDER_WATERMARK":  true,
	"MDRENDER_WORKERS":    true,
}

// loadEnvConfig reads configuration from the process environment.
func loadEnvConfig() *envConfig {
	return parseEnvConfig(os.Getenv)
}

func parseEnvConfig(getenv func(string) string) *envConfig {
	cfg := &envConfig{
		ConfigPath: getenv("MDRENDER_CONFIG"),
		OutputDir:  getenv("MDRENDER_OUTPUT_DIR"),
		PageSize:   getenv("MDRENDER_PAGE_SIZE"),
		Theme:      getenv("MDRENDER_THEME"),
		Watermark:  getenv("MDRENDER_WATERMARK"),
		BrowserBin: getenv("ROD_BROWSER_BIN"),
	}
	if n, err := strconv.Atoi(getenv("MDRENDER_WORKERS")); err == nil && n > 0 {
		cfg.Workers = n
	}
	if v := getenv("ROD_NO_SANDBOX"); v != "" && v != "0" {
		cfg.NoSandbox = true
	}
	if getenv("CI") == "true" || cfg.BrowserBin != "" {
		cfg.NoSandbox = true
	}
	return cfg
}

// warnUnknownEnvVars reports MDRENDER_* variables that are not recognized.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	var unknown []string
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "MDRENDER_") && !knownEnvVars[name] {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		fmt.Fprintf(w, "warning: unknown environment variable %s\n", name)
	}
}

// applyEnvConfig overlays environment values on cfg. Flags are applied
// afterwards and win.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env == nil {
		return
	}
	if env.OutputDir != "" {
		cfg.Export.OutputDir = env.OutputDir
	}
	if env.PageSize != "" {
		cfg.Export.PageSize = env.PageSize
	}
	if env.Theme != "" {
		cfg.Theme.Name = env.Theme
	}
	if env.Watermark != "" {
		cfg.Export.Watermark = env.Watermark
	}
	if env.BrowserBin != "" && cfg.Browser.Bin == "" {
		cfg.Browser.Bin = env.BrowserBin
	}
	if env.NoSandbox {
		cfg.Browser.NoSandbox = true
	}
}
