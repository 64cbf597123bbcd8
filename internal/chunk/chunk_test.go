package chunk

import (
	"strings"
	"testing"
)

func join(chunks []Chunk) string {
	var b strings.Builder
	for i, c := range chunks {
		if c.Index != i {
			panic("chunk indexes out of order")
		}
		b.WriteString(c.Text)
	}
	return b.String()
}

func TestSplit_RoundTrip(t *testing.T) {
	t.Parallel()

	line := strings.Repeat("x", 99) + "\n"
	longLine := strings.Repeat("y", Size+10)

	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "small", text: "# Hi\n\nWorld"},
		{name: "large with trailing newline", text: strings.Repeat(line, 3000)},
		{name: "large without trailing newline", text: strings.Repeat(line, 3000) + "tail"},
		{name: "oversized single line", text: strings.Repeat(line, 1000) + longLine + "\n" + strings.Repeat(line, 1000)},
		{name: "only newlines", text: strings.Repeat("\n", Threshold+5)},
		{name: "crlf", text: strings.Repeat("abc\r\n", Threshold/5+1)},
		{name: "multibyte", text: strings.Repeat("héllo wörld ∑\n", Threshold/10)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			chunks := Split(tt.text)
			if got := join(chunks); got != tt.text {
				t.Errorf("Split() round trip mismatch: got %d bytes, want %d", len(got), len(tt.text))
			}
		})
	}
}

func TestSplit_SmallInputSingleChunk(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a\n", (Threshold-1)/2)
	chunks := Split(text)
	if len(chunks) != 1 {
		t.Fatalf("Split() returned %d chunks, want 1", len(chunks))
	}
	if chunks[0].Text != text {
		t.Error("single chunk should equal input")
	}
}

func TestSplit_BoundariesOnLines(t *testing.T) {
	t.Parallel()

	line := strings.Repeat("z", 999) + "\n"
	text := strings.Repeat(line, 250) // 250_000 bytes

	chunks := Split(text)
	if len(chunks) != 5 {
		t.Errorf("Split() returned %d chunks, want 5", len(chunks))
	}
	for _, c := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(c.Text, "\n") {
			t.Errorf("chunk %d does not end on a line boundary", c.Index)
		}
		if len(c.Text) > Size {
			t.Errorf("chunk %d has %d bytes, exceeds %d", c.Index, len(c.Text), Size)
		}
	}
}

func TestSplit_OversizedLineIsolated(t *testing.T) {
	t.Parallel()

	head := strings.Repeat("h\n", Threshold/2)
	long := strings.Repeat("L", Size*2) + "\n"
	chunks := Split(head + long)

	var found bool
	for _, c := range chunks {
		if c.Text == long {
			found = true
		}
	}
	if !found {
		t.Error("oversized line should form its own chunk")
	}
}

func TestChunker_Memoizes(t *testing.T) {
	t.Parallel()

	c := NewChunker(0)
	text := strings.Repeat("line of text\n", Threshold/10)

	first := c.Split(text)
	second := c.Split(text)

	if len(first) == 0 || &first[0] != &second[0] {
		t.Error("second Split() should return the memoized slice")
	}
	if s := c.Stats(); s.Hits != 1 || s.Len != 1 {
		t.Errorf("Stats() = %+v, want 1 hit and 1 entry", s)
	}

	c.Clear()
	if s := c.Stats(); s.Len != 0 {
		t.Errorf("Stats().Len after Clear = %d, want 0", s.Len)
	}
}

func TestChunker_SmallInputBypassesCache(t *testing.T) {
	t.Parallel()

	c := NewChunker(4)
	c.Split("short")
	if s := c.Stats(); s.Len != 0 || s.Misses != 0 {
		t.Errorf("Stats() = %+v, small input should not touch the cache", s)
	}
}
