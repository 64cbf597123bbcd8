package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// errHelpShown signals that usage was printed on request.
var errHelpShown = errors.New("help shown")

// errUsage wraps flag parsing failures.
var errUsage = errors.New("invalid usage")

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// pageFlags holds page layout flags.
type pageFlags struct {
	size        string
	orientation string
	margin      float64
}

// typographyFlags holds font flags.
type typographyFlags struct {
	size   int
	family string
}

// bandFlags toggles the header and footer bands.
type bandFlags struct {
	noHeader  bool
	noFooter  bool
	timestamp bool
}

// renderFlags holds all flags for the render command.
type renderFlags struct {
	common   commonFlags
	output   string
	theme    string
	diagrams bool
}

// exportFlags holds all flags for the export command.
type exportFlags struct {
	common     commonFlags
	output     string
	workers    int
	format     string
	theme      string
	css        string
	watermark  string
	noDiagrams bool
	assetPath  string
	page       pageFlags
	typography typographyFlags
	bands      bandFlags
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show detailed logs and timing")
}

// addPageFlags adds page layout flags to a FlagSet.
func addPageFlags(fs *flag.FlagSet, f *pageFlags) {
	fs.StringVarP(&f.size, "page-size", "p", "", "page size: a4, a3, letter")
	fs.StringVar(&f.orientation, "orientation", "", "page orientation: portrait, landscape")
	fs.Float64Var(&f.margin, "margin", -1, "page margin in millimetres (0-50)")
}

// addTypographyFlags adds font flags to a FlagSet.
func addTypographyFlags(fs *flag.FlagSet, f *typographyFlags) {
	fs.IntVar(&f.size, "font-size", 0, "base font size in pixels (6-48)")
	fs.StringVar(&f.family, "font-family", "", "CSS font family")
}

// addBandFlags adds header/footer flags to a FlagSet.
func addBandFlags(fs *flag.FlagSet, f *bandFlags) {
	fs.BoolVar(&f.noHeader, "no-header", false, "disable the filename header band")
	fs.BoolVar(&f.noFooter, "no-footer", false, "disable the footer band and page numbers")
	fs.BoolVar(&f.timestamp, "timestamp", false, "add the generation time to the metadata header")
}

// parseRenderFlags parses render command flags and returns positional args.
func parseRenderFlags(args []string, stderr io.Writer) (*renderFlags, []string, error) {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	f := &renderFlags{}

	fs.StringVarP(&f.output, "output", "o", "", "output file (default stdout)")
	fs.StringVar(&f.theme, "theme", "", "diagram theme: light, dark")
	fs.BoolVar(&f.diagrams, "diagrams", false, "render mermaid diagrams (launches a browser)")
	addCommonFlags(fs, &f.common)

	if err := parse(fs, args, stderr, printRenderUsage); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseExportFlags parses export command flags and returns positional args.
func parseExportFlags(args []string, stderr io.Writer) (*exportFlags, []string, error) {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	f := &exportFlags{}

	// I/O flags
	fs.StringVarP(&f.output, "output", "o", "", "output directory")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	fs.StringVarP(&f.format, "format", "f", formatPDF, "output format: pdf, html")

	// Styling
	fs.StringVar(&f.theme, "theme", "", "theme: light, dark, or a custom style name")
	fs.StringVar(&f.css, "css", "", "extra CSS file appended to the theme")
	fs.StringVar(&f.watermark, "wm-text", "", "watermark text")
	fs.BoolVar(&f.noDiagrams, "no-diagrams", false, "export diagram source instead of rendering")
	fs.StringVar(&f.assetPath, "asset-path", "", "custom asset directory")

	// Flag groups
	addCommonFlags(fs, &f.common)
	addPageFlags(fs, &f.page)
	addTypographyFlags(fs, &f.typography)
	addBandFlags(fs, &f.bands)

	if err := parse(fs, args, stderr, printExportUsage); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parse runs fs.Parse, printing usage for --help.
func parse(fs *flag.FlagSet, args []string, stderr io.Writer, usage func(io.Writer)) error {
	err := fs.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		usage(stderr)
		return errHelpShown
	}
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}
