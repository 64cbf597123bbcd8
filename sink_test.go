package mdrender

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestFileSink_Save(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out", "nested")
	sink := FileSink{Dir: dir}

	path, err := sink.Save(context.Background(), []byte("first"), "doc.pdf")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if path != filepath.Join(dir, "doc.pdf") {
		t.Errorf("path = %q", path)
	}

	// Saving again replaces the file.
	if _, err := sink.Save(context.Background(), []byte("second"), "doc.pdf"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want second", data)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != filePermissions {
			t.Errorf("mode = %v, want %v", info.Mode().Perm(), os.FileMode(filePermissions))
		}
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only doc.pdf", len(entries))
	}
}

func TestFileSink_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FileSink{Dir: t.TempDir()}.Save(ctx, []byte("x"), "a.pdf")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Save() error = %v, want context.Canceled", err)
	}
}

func TestFileSink_UnwritableDirectory(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := FileSink{Dir: file}.Save(context.Background(), []byte("x"), "a.pdf")
	if !errors.Is(err, ErrSave) {
		t.Errorf("Save() error = %v, want ErrSave", err)
	}
}
