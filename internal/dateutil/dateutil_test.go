package dateutil

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		format  string
		want    string
		wantErr error
	}{
		{name: "full date", format: "YYYY-MM-DD", want: "2006-01-02"},
		{name: "month is upper, minute is lower", format: "MM mm", want: "01 04"},
		{name: "24h clock", format: "HH:mm:ss", want: "15:04:05"},
		{name: "12h clock", format: "hh:mm A", want: "03:04 PM"},
		{name: "long month", format: "MMMM D, YYYY", want: "January 2, 2006"},
		{name: "short forms", format: "MMM D YY", want: "Jan 2 06"},
		{name: "bracket literal", format: "[Generated] YYYY", want: "Generated 2006"},
		{name: "bracket protects tokens", format: "[DD]", want: "DD"},
		{name: "empty", format: "", wantErr: ErrInvalidFormat},
		{name: "unclosed bracket", format: "[YYYY", wantErr: ErrInvalidFormat},
		{name: "too long", format: strings.Repeat("Y", MaxFormatLength+1), wantErr: ErrInvalidFormat},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseFormat(tt.format)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseFormat(%q) error = %v, want %v", tt.format, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFormat(%q) unexpected error: %v", tt.format, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, time.March, 7, 14, 5, 9, 0, time.UTC)

	tests := []struct {
		format string
		want   string
	}{
		{"", "2025-03-07 14:05"},
		{"iso", "2025-03-07"},
		{"ISO", "2025-03-07"},
		{"european", "07/03/2025 14:05"},
		{"us", "03/07/2025 02:05 PM"},
		{"long", "March 7, 2025 14:05"},
		{"[at] HH:mm:ss", "at 14:05:09"},
	}
	for _, tt := range tests {
		tt := tt
		got, err := Format(at, tt.format)
		if err != nil {
			t.Errorf("Format(%q) error: %v", tt.format, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Format(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}

	if _, err := Format(at, "[oops"); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Format with bad format error = %v", err)
	}
}
