// Package fileutil provides file helpers for saving export artifacts.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Sentinel errors for file utility operations.
var (
	ErrExtensionEmpty         = errors.New("extension cannot be empty")
	ErrExtensionPathTraversal = errors.New("extension contains path separator or null byte")
	ErrEmptyFilename          = errors.New("filename is empty after sanitizing")
)

// MaxFilenameLength bounds the base name before the extension is added.
const MaxFilenameLength = 200

// ValidateExtension checks that an extension is safe to append to a name.
func ValidateExtension(extension string) error {
	if extension == "" {
		return ErrExtensionEmpty
	}
	if strings.ContainsAny(extension, "/\\\x00") {
		return ErrExtensionPathTraversal
	}
	return nil
}

// SanitizeFilename turns a user-supplied document name into a safe base
// name: path components are dropped, separators and control characters are
// replaced with '-', and the result is trimmed and truncated.
func SanitizeFilename(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return '-'
		case strings.ContainsRune(`:*?"<>|`, r):
			return '-'
		}
		return r
	}, name)
	cleaned = strings.Trim(strings.TrimSpace(cleaned), ".")

	if runes := []rune(cleaned); len(runes) > MaxFilenameLength {
		cleaned = string(runes[:MaxFilenameLength])
	}
	if cleaned == "" {
		return "", ErrEmptyFilename
	}
	return cleaned, nil
}

// WithExtension returns name with ext appended unless it already ends
// with it (case-insensitive).
func WithExtension(name, ext string) (string, error) {
	if err := ValidateExtension(ext); err != nil {
		return "", err
	}
	ext = "." + strings.TrimPrefix(ext, ".")
	if strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)) {
		return name, nil
	}
	return name + ext, nil
}

// WriteAtomic writes data to dir/name through a temp file in the same
// directory and a rename, so readers never observe a partial file. It
// returns the final path.
func WriteAtomic(dir, name string, data []byte, perm os.FileMode) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}

	final := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, ".mdrender-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		cleanup()
		return "", fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		cleanup()
		return "", fmt.Errorf("renaming into place: %w", err)
	}
	return final, nil
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// IsFilePath returns true if the string contains a path separator.
func IsFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// IsURL returns true if the string looks like an http(s) URL.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
