package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-mdrender"
)

// Sentinel errors for file discovery.
var (
	ErrNoInput            = errors.New("no input specified")
	ErrReadMarkdown       = errors.New("failed to read markdown file")
	ErrInvalidExtension   = errors.New("file must have .md or .markdown extension")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
)

// FileToExport is one markdown file and the directory its artifact goes to.
type FileToExport struct {
	InputPath string
	OutputDir string
}

// discoverFiles expands inputs into markdown files. Directories are walked
// and their layout is mirrored under outputDir.
func discoverFiles(inputs []string, outputDir string) ([]FileToExport, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInput
	}

	var files []FileToExport
	seen := make(map[string]bool)
	add := func(f FileToExport) {
		if !seen[f.InputPath] {
			seen[f.InputPath] = true
			files = append(files, f)
		}
	}

	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadMarkdown, err)
		}

		if !info.IsDir() {
			if err := validateMarkdownExtension(input); err != nil {
				return nil, err
			}
			add(FileToExport{InputPath: input, OutputDir: resolveOutputDir(input, outputDir, "")})
			continue
		}

		err = filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("scanning %s: %w", path, err)
			}
			if d.IsDir() || !isMarkdown(path) {
				return nil
			}
			add(FileToExport{InputPath: path, OutputDir: resolveOutputDir(path, outputDir, input)})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// resolveOutputDir picks the artifact directory for a markdown file.
func resolveOutputDir(inputPath, outputDir, baseInputDir string) string {
	if outputDir == "" {
		return filepath.Dir(inputPath)
	}
	if baseInputDir != "" {
		if rel, err := filepath.Rel(baseInputDir, inputPath); err == nil {
			return filepath.Join(outputDir, filepath.Dir(rel))
		}
	}
	return outputDir
}

func isMarkdown(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}

// validateMarkdownExtension checks that the file has a .md or .markdown extension.
func validateMarkdownExtension(path string) error {
	if !isMarkdown(path) {
		return fmt.Errorf("%w: got %q", ErrInvalidExtension, filepath.Ext(path))
	}
	return nil
}

// validateWorkers checks that the worker count is within valid bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > mdrender.MaxPoolSize {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, mdrender.MaxPoolSize)
	}
	return nil
}
