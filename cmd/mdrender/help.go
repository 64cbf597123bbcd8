package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mdrender <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  render     Render markdown to an HTML fragment")
	fmt.Fprintln(w, "  export     Export markdown files to paginated PDF or standalone HTML")
	fmt.Fprintln(w, "  config     Print the effective configuration")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'mdrender help <command>' for details on a specific command.")
}

// printRenderUsage prints usage for the render command.
func printRenderUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mdrender render [file] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render markdown to a sanitized HTML fragment. Reads stdin when")
	fmt.Fprintln(w, "file is omitted or \"-\".")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -o, --output <path>       Output file (default stdout)")
	fmt.Fprintln(w, "      --diagrams            Render mermaid diagrams to SVG")
	fmt.Fprintln(w, "      --theme <s>           Diagram theme: light, dark")
	printCommonUsage(w)
}

// printExportUsage prints usage for the export command.
func printExportUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mdrender export <input>... [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Export markdown files or directories to paginated PDF.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <dir>        Output directory (default: next to input)")
	fmt.Fprintln(w, "  -f, --format <s>          Output format: pdf, html")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel workers (0 = auto)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Page:")
	fmt.Fprintln(w, "  -p, --page-size <s>       Page size: a4, a3, letter")
	fmt.Fprintln(w, "      --orientation <s>     Orientation: portrait, landscape")
	fmt.Fprintln(w, "      --margin <f>          Margin in millimetres (0-50)")
	fmt.Fprintln(w, "      --no-header           Disable the filename header band")
	fmt.Fprintln(w, "      --no-footer           Disable the footer band and page numbers")
	fmt.Fprintln(w, "      --timestamp           Add the generation time to the metadata header")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Styling:")
	fmt.Fprintln(w, "      --theme <s>           Theme: light, dark, or a custom style name")
	fmt.Fprintln(w, "      --css <path>          Extra CSS file")
	fmt.Fprintln(w, "      --font-size <n>       Base font size in pixels (6-48)")
	fmt.Fprintln(w, "      --font-family <s>     CSS font family")
	fmt.Fprintln(w, "      --wm-text <s>         Watermark text")
	fmt.Fprintln(w, "      --no-diagrams         Export diagram source instead of rendering")
	fmt.Fprintln(w, "      --asset-path <dir>    Custom asset directory")
	printCommonUsage(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  MDRENDER_CONFIG, MDRENDER_OUTPUT_DIR, MDRENDER_PAGE_SIZE,")
	fmt.Fprintln(w, "  MDRENDER_THEME, MDRENDER_WATERMARK, MDRENDER_WORKERS,")
	fmt.Fprintln(w, "  ROD_BROWSER_BIN, ROD_NO_SANDBOX")
}

// printConfigUsage prints usage for the config command.
func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mdrender config [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print the configuration after applying the config file and")
	fmt.Fprintln(w, "MDRENDER_* environment variables.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
}

func printCommonUsage(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Common:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show detailed logs and timing")
}

// runHelp prints help for a command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}
	switch args[0] {
	case "render":
		printRenderUsage(env.Stdout)
	case "export":
		printExportUsage(env.Stdout)
	case "config":
		printConfigUsage(env.Stdout)
	default:
		fmt.Fprintf(env.Stderr, "error: %v: %q\n", ErrUnknownCommand, args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
