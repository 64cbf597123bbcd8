package main

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-mdrender"
)

func batchFiles(t *testing.T, names ...string) []FileToExport {
	t.Helper()
	dir := t.TempDir()
	files := make([]FileToExport, len(names))
	for i, name := range names {
		path := filepath.Join(dir, name)
		writeFile(t, path, "# "+name)
		files[i] = FileToExport{InputPath: path, OutputDir: dir}
	}
	return files
}

func TestExportBatch(t *testing.T) {
	t.Parallel()

	exp := &fakeExporter{}
	pool := &fakePool{exporter: exp, size: 2}
	files := batchFiles(t, "a.md", "b.md", "c.md")
	params := &exportParams{format: formatPDF, opts: mdrender.DefaultExportOptions("ignored.md")}

	results := exportBatch(context.Background(), pool, files, params)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, r := range results {
		if r.Err != nil {
			t.Errorf("results[%d].Err = %v", i, r.Err)
		}
		if r.InputPath != files[i].InputPath {
			t.Errorf("results[%d].InputPath = %q, want %q", i, r.InputPath, files[i].InputPath)
		}
		if want := "out/" + filepath.Base(files[i].InputPath); r.OutputPath != want {
			t.Errorf("results[%d].OutputPath = %q, want %q", i, r.OutputPath, want)
		}
	}
	if pool.acquired != 2 || pool.released != 2 {
		t.Errorf("acquired/released = %d/%d, want 2/2", pool.acquired, pool.released)
	}
	if exp.html != 0 {
		t.Errorf("html exports = %d, want 0", exp.html)
	}
	for _, opts := range exp.calls {
		if opts.Filename == "ignored.md" {
			t.Error("Filename should be set per file")
		}
	}
}

func TestExportBatch_HTMLFormat(t *testing.T) {
	t.Parallel()

	exp := &fakeExporter{}
	pool := &fakePool{exporter: exp, size: 1}
	params := &exportParams{format: formatHTML, opts: mdrender.DefaultExportOptions("x.md")}

	exportBatch(context.Background(), pool, batchFiles(t, "a.md"), params)

	if exp.html != 1 {
		t.Errorf("html exports = %d, want 1", exp.html)
	}
}

func TestExportBatch_Failures(t *testing.T) {
	t.Parallel()

	t.Run("acquire error fails every file", func(t *testing.T) {
		t.Parallel()
		pool := &fakePool{acquireErr: mdrender.ErrServiceClosed, size: 2}
		results := exportBatch(context.Background(), pool, batchFiles(t, "a.md", "b.md"), &exportParams{})
		for _, r := range results {
			if !errors.Is(r.Err, mdrender.ErrServiceClosed) {
				t.Errorf("%s: err = %v, want ErrServiceClosed", r.InputPath, r.Err)
			}
		}
	})

	t.Run("cancelled context skips files", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		exp := &fakeExporter{}
		results := exportBatch(ctx, &fakePool{exporter: exp, size: 1}, batchFiles(t, "a.md"), &exportParams{})
		if !errors.Is(results[0].Err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", results[0].Err)
		}
		if len(exp.calls) != 0 {
			t.Errorf("exporter called %d times, want 0", len(exp.calls))
		}
	})

	t.Run("export error is reported", func(t *testing.T) {
		t.Parallel()
		exp := &fakeExporter{err: mdrender.ErrRasterizeTimeout}
		results := exportBatch(context.Background(), &fakePool{exporter: exp, size: 1}, batchFiles(t, "a.md"), &exportParams{})
		if !errors.Is(results[0].Err, mdrender.ErrRasterizeTimeout) {
			t.Errorf("err = %v, want ErrRasterizeTimeout", results[0].Err)
		}
	})

	t.Run("unreadable file", func(t *testing.T) {
		t.Parallel()
		files := []FileToExport{{InputPath: filepath.Join(t.TempDir(), "gone.md")}}
		results := exportBatch(context.Background(), &fakePool{exporter: &fakeExporter{}, size: 1}, files, &exportParams{})
		if !errors.Is(results[0].Err, ErrReadMarkdown) {
			t.Errorf("err = %v, want ErrReadMarkdown", results[0].Err)
		}
	})
}

func TestExportBatch_Empty(t *testing.T) {
	t.Parallel()

	if got := exportBatch(context.Background(), &fakePool{size: 1}, nil, &exportParams{}); got != nil {
		t.Errorf("exportBatch(nil) = %v, want nil", got)
	}
}

func TestPrintResults(t *testing.T) {
	t.Parallel()

	results := []ExportJobResult{
		{InputPath: "a.md", OutputPath: "a.pdf", Pages: 2, Warnings: []string{"1 of 1 images failed to load"}, Duration: 1500 * time.Millisecond},
		{InputPath: "b.md", Err: mdrender.ErrSave},
	}

	tests := []struct {
		name        string
		quiet       bool
		verbose     bool
		wantStdout  []string
		avoidStdout []string
	}{
		{"default", false, false, []string{"Created a.pdf", "1 succeeded, 1 failed"}, nil},
		{"verbose", false, true, []string{"a.md -> a.pdf (2 pages, 1.5s)"}, []string{"Created"}},
		{"quiet", true, false, nil, []string{"Created", "succeeded"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env, stdout, stderr := testEnv(t, nil)

			failed := printResults(results, tt.quiet, tt.verbose, env)

			if failed != 1 {
				t.Errorf("failed = %d, want 1", failed)
			}
			if !strings.Contains(stderr.String(), "FAILED b.md") {
				t.Errorf("stderr = %q, want FAILED line", stderr)
			}
			if !tt.quiet && !strings.Contains(stderr.String(), "warning: a.md: 1 of 1 images failed to load") {
				t.Errorf("stderr = %q, want warning", stderr)
			}
			for _, want := range tt.wantStdout {
				if !strings.Contains(stdout.String(), want) {
					t.Errorf("stdout = %q, want %q", stdout, want)
				}
			}
			for _, avoid := range tt.avoidStdout {
				if strings.Contains(stdout.String(), avoid) {
					t.Errorf("stdout = %q, should not contain %q", stdout, avoid)
				}
			}
		})
	}
}

func TestServicePool_ReleaseForeignExporter(t *testing.T) {
	t.Parallel()

	pool := servicePool{mdrender.NewServicePool(1)}
	defer pool.Close()

	defer func() {
		r := recover()
		msg, ok := r.(string)
		if !ok || !strings.Contains(msg, "unexpected type") {
			t.Errorf("recover() = %v, want unexpected type panic", r)
		}
	}()
	pool.Release(&fakeExporter{})
}
