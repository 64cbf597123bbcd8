package hash

import "testing"

func TestSum_Deterministic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "heading", text: "# Hi\n\nWorld"},
		{name: "unicode", text: "héllo — wörld ∑"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if Sum(tt.text) != Sum(tt.text) {
				t.Errorf("Sum(%q) is not deterministic", tt.text)
			}
		})
	}
}

func TestSum_DistinguishesTypicalEdits(t *testing.T) {
	t.Parallel()

	a := Sum("# Title\n\nbody")
	b := Sum("# Title\n\nbody.")
	if a == b {
		t.Errorf("Sum() returned identical keys for different texts: %d", a)
	}
}

func TestSumWith_Namespaces(t *testing.T) {
	t.Parallel()

	if SumWith("chunks", "abc") == SumWith("markup", "abc") {
		t.Error("SumWith() should differ across prefixes")
	}
	if SumWith("chunks", "abc") != SumWith("chunks", "abc") {
		t.Error("SumWith() should be deterministic")
	}
	if SumWith("a", "bc") == SumWith("ab", "c") {
		t.Error("SumWith() prefix boundary should be unambiguous")
	}
}
