package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alnah/go-mdrender"
	"github.com/alnah/go-mdrender/internal/fileutil"
)

// maxInputSize caps markdown read from a file or stdin.
const maxInputSize = 32 << 20

// ErrInputTooLarge is returned for markdown over maxInputSize.
var ErrInputTooLarge = errors.New("markdown input too large")

// runRender renders one document to an HTML fragment.
func runRender(ctx context.Context, args []string, env *Environment) error {
	f, positional, err := parseRenderFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) > 1 {
		return fmt.Errorf("%w: render takes at most one file", errUsage)
	}

	cfg, err := loadConfig(f.common.config, env)
	if err != nil {
		return err
	}
	applyEnvConfig(env.Vars, cfg)
	if f.theme != "" {
		cfg.Theme.Name = f.theme
	}

	source := "-"
	if len(positional) == 1 {
		source = positional[0]
	}
	text, err := readMarkdown(source, env.Stdin)
	if err != nil {
		return err
	}

	log := newLogger(env.Stderr, f.common)
	defer func() { _ = log.Sync() }()

	opts := serviceOptions(cfg, log, env)
	if f.diagrams {
		opts = append(opts, mdrender.WithPreviewDiagrams(cfg.Theme.Name))
	}
	svc, err := mdrender.New(opts...)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	var html string
	if f.diagrams {
		res, err := svc.RenderAsync(ctx, text)
		if err != nil {
			return err
		}
		html = res.HTML
	} else {
		html = svc.RenderSync(text)
	}

	if f.output == "" {
		_, err = io.WriteString(env.Stdout, html+"\n")
		return err
	}
	dir, name := filepath.Split(f.output)
	if dir == "" {
		dir = "."
	}
	path, err := fileutil.WriteAtomic(dir, name, []byte(html), 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", mdrender.ErrSave, err)
	}
	if !f.common.quiet {
		fmt.Fprintf(env.Stderr, "Created %s\n", path)
	}
	return nil
}

// readMarkdown reads path, or stdin for "-".
func readMarkdown(path string, stdin io.Reader) (string, error) {
	var r io.Reader = stdin
	if path != "-" {
		file, err := os.Open(path) // #nosec G304 -- user-provided input path
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrReadMarkdown, err)
		}
		defer file.Close()
		r = file
	}
	if r == nil {
		return "", ErrNoInput
	}

	data, err := io.ReadAll(io.LimitReader(r, maxInputSize+1))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReadMarkdown, err)
	}
	if len(data) > maxInputSize {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrInputTooLarge, path, maxInputSize)
	}
	return string(data), nil
}
