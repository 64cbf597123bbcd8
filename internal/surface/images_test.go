package surface

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// onePixelPNG is a valid 1x1 transparent PNG.
var onePixelPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")

func TestInlineLocalImages(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	docs := filepath.Join(root, "docs")
	mustWrite(t, filepath.Join(docs, "images", "logo.png"), onePixelPNG)
	mustWrite(t, filepath.Join(docs, "my pic.png"), onePixelPNG)
	mustWrite(t, filepath.Join(docs, "notes.txt"), []byte("plain text"))
	mustWrite(t, filepath.Join(root, "secret.png"), onePixelPNG)

	tests := []struct {
		name         string
		markup       string
		wantContains []string
		wantExcludes []string
		want         InlineReport
	}{
		{
			name:         "relative with dot slash",
			markup:       `<p><img src="./images/logo.png" alt="logo"></p>`,
			wantContains: []string{`src="data:image/png;base64,`, `alt="logo"`},
			want:         InlineReport{Inlined: 1},
		},
		{
			name:         "relative without dot slash",
			markup:       `<img src="images/logo.png">`,
			wantContains: []string{`src="data:image/png;base64,`},
			want:         InlineReport{Inlined: 1},
		},
		{
			name:         "percent-encoded name",
			markup:       `<img src="my%20pic.png">`,
			wantContains: []string{`src="data:image/png;base64,`},
			want:         InlineReport{Inlined: 1},
		},
		{
			name:         "http URL unchanged",
			markup:       `<img src="https://example.com/logo.png">`,
			wantContains: []string{`src="https://example.com/logo.png"`},
		},
		{
			name:         "data URI unchanged",
			markup:       `<img src="data:image/gif;base64,R0lGOD">`,
			wantContains: []string{`src="data:image/gif;base64,R0lGOD"`},
		},
		{
			name:         "absolute path unchanged",
			markup:       `<img src="/etc/logo.png">`,
			wantContains: []string{`src="/etc/logo.png"`},
		},
		{
			name:         "traversal unchanged",
			markup:       `<img src="../secret.png">`,
			wantContains: []string{`src="../secret.png"`},
			wantExcludes: []string{"data:"},
		},
		{
			name:         "missing file skipped",
			markup:       `<img src="gone.png">`,
			wantContains: []string{`src="gone.png"`},
			want:         InlineReport{Skipped: 1},
		},
		{
			name:         "non-image skipped",
			markup:       `<img src="notes.txt">`,
			wantContains: []string{`src="notes.txt"`},
			want:         InlineReport{Skipped: 1},
		},
		{
			name:         "links untouched",
			markup:       `<a href="images/logo.png">logo</a><img src="images/logo.png">`,
			wantContains: []string{`href="images/logo.png"`, `src="data:image/png`},
			want:         InlineReport{Inlined: 1},
		},
		{
			name:         "svg survives re-rendering",
			markup:       `<div class="mermaid-container"><svg viewBox="0 0 10 10"></svg></div><img src="images/logo.png">`,
			wantContains: []string{`viewBox="0 0 10 10"`, `data:image/png`},
			want:         InlineReport{Inlined: 1},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, report, err := InlineLocalImages(tt.markup, docs)
			if err != nil {
				t.Fatalf("InlineLocalImages: %v", err)
			}
			if report != tt.want {
				t.Errorf("report = %+v, want %+v", report, tt.want)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q:\n%s", want, got)
				}
			}
			for _, avoid := range tt.wantExcludes {
				if strings.Contains(got, avoid) {
					t.Errorf("output should not contain %q:\n%s", avoid, got)
				}
			}
		})
	}
}

func TestInlineLocalImages_Passthrough(t *testing.T) {
	t.Parallel()

	markup := `<p>no images &amp; <b>markup</b></p>`
	for _, dir := range []string{"", t.TempDir()} {
		got, report, err := InlineLocalImages(markup, dir)
		if err != nil {
			t.Fatalf("dir %q: %v", dir, err)
		}
		if got != markup {
			t.Errorf("dir %q: markup changed to %q", dir, got)
		}
		if report != (InlineReport{}) {
			t.Errorf("dir %q: report = %+v", dir, report)
		}
	}
}

func mustWrite(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
}
