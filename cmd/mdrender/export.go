package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/alnah/go-mdrender"
	"github.com/alnah/go-mdrender/internal/config"
)

// Output formats.
const (
	formatPDF  = "pdf"
	formatHTML = "html"
)

// Sentinel errors for the export command.
var (
	ErrInvalidFormat = errors.New("invalid output format")
	ErrReadCSS       = errors.New("failed to read CSS file")
	ErrBatchFailed   = errors.New("one or more exports failed")
)

// runExport exports every discovered markdown file.
func runExport(ctx context.Context, args []string, env *Environment) error {
	f, positional, err := parseExportFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if f.format != formatPDF && f.format != formatHTML {
		return fmt.Errorf("%w: %q (must be pdf or html)", ErrInvalidFormat, f.format)
	}

	cfg, err := loadConfig(f.common.config, env)
	if err != nil {
		return err
	}
	applyEnvConfig(env.Vars, cfg)
	applyExportFlags(f, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	workers := f.workers
	if workers == 0 && env.Vars != nil {
		workers = env.Vars.Workers
	}
	if err := validateWorkers(workers); err != nil {
		return err
	}

	opts, err := buildExportOptions(cfg, f)
	if err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	files, err := discoverFiles(positional, cfg.Export.OutputDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no markdown files found", ErrNoInput)
	}

	log := newLogger(env.Stderr, f.common)
	defer func() { _ = log.Sync() }()

	svcOpts := append([]mdrender.Option{mdrender.WithSink(dirSink{})}, serviceOptions(cfg, log, env)...)
	poolSize := min(mdrender.ResolvePoolSize(workers), len(files))
	pool := mdrender.NewServicePool(poolSize, svcOpts...)
	defer func() { _ = pool.Close() }()

	results := exportBatch(ctx, servicePool{pool}, files, &exportParams{format: f.format, opts: opts})
	failed := printResults(results, f.common.quiet, f.common.verbose, env)
	if failed == 0 {
		return nil
	}
	return newBatchError(results, failed)
}

// batchError reports failed exports. It unwraps to ErrBatchFailed and the
// first failure so the exit code reflects what went wrong.
type batchError struct {
	failed, total int
	first         error
}

func newBatchError(results []ExportJobResult, failed int) *batchError {
	e := &batchError{failed: failed, total: len(results)}
	for _, r := range results {
		if r.Err != nil {
			e.first = r.Err
			break
		}
	}
	return e
}

func (e *batchError) Error() string {
	return fmt.Sprintf("%v: %d of %d", ErrBatchFailed, e.failed, e.total)
}

func (e *batchError) Unwrap() []error {
	return []error{ErrBatchFailed, e.first}
}

// applyExportFlags overlays explicitly set flags on cfg.
func applyExportFlags(f *exportFlags, cfg *config.Config) {
	if f.output != "" {
		cfg.Export.OutputDir = f.output
	}
	if f.page.size != "" {
		cfg.Export.PageSize = f.page.size
	}
	if f.page.orientation != "" {
		cfg.Export.Orientation = f.page.orientation
	}
	if f.page.margin >= 0 {
		cfg.Export.Margin = f.page.margin
	}
	if f.typography.size != 0 {
		cfg.Export.FontSize = f.typography.size
	}
	if f.typography.family != "" {
		cfg.Export.FontFamily = f.typography.family
	}
	if f.bands.noHeader {
		cfg.Export.Header = false
	}
	if f.bands.noFooter {
		cfg.Export.Footer = false
	}
	if f.bands.timestamp {
		cfg.Export.Timestamp = true
	}
	if f.watermark != "" {
		cfg.Export.Watermark = f.watermark
	}
	if f.noDiagrams {
		cfg.Export.SkipDiagrams = true
	}
	if f.theme != "" {
		cfg.Theme.Name = f.theme
	}
	if f.assetPath != "" {
		cfg.Assets.BasePath = f.assetPath
	}
}

// buildExportOptions converts the effective config into per-file options.
// Filename is filled in per file.
func buildExportOptions(cfg *config.Config, f *exportFlags) (mdrender.ExportOptions, error) {
	opts := mdrender.ExportOptions{
		Filename:         "document.md",
		PageSize:         cfg.Export.PageSize,
		Orientation:      cfg.Export.Orientation,
		Margin:           cfg.Export.Margin,
		FontSize:         cfg.Export.FontSize,
		FontFamily:       cfg.Export.FontFamily,
		IncludeHeader:    cfg.Export.Header,
		IncludeFooter:    cfg.Export.Footer,
		IncludeTimestamp: cfg.Export.Timestamp,
		TimestampFormat:  cfg.Export.TimestampFormat,
		Watermark:        cfg.Export.Watermark,
		SkipDiagrams:     cfg.Export.SkipDiagrams,
		Theme:            cfg.Theme.Name,
	}
	if f.css != "" {
		data, err := os.ReadFile(f.css) // #nosec G304 -- user-provided CSS path
		if err != nil {
			return opts, fmt.Errorf("%w: %w", ErrReadCSS, err)
		}
		opts.CustomCSS = string(data)
	}
	return opts, nil
}
