package types

import "testing"

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"":        ModeBase,
		"base":    ModeBase,
		"TINY":    ModeTiny,
		" Small ": ModeSmall,
		"large":   ModeLarge,
		"gundam":  ModeGundam,
	}
	for in, want := range cases {
		got, err := ParseMode(in)
		if err != nil {
			t.Fatalf("ParseMode(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseMode(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseMode("huge"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestFixedVisionTokens(t *testing.T) {
	want := map[Mode]int{ModeTiny: 64, ModeSmall: 100, ModeBase: 256, ModeLarge: 400}
	for m, n := range want {
		got, ok := m.FixedVisionTokens()
		if !ok || got != n {
			t.Fatalf("%s: got %d ok=%v, want %d", m, got, ok, n)
		}
	}
	if _, ok := ModeGundam.FixedVisionTokens(); ok {
		t.Fatalf("gundam should be dynamic")
	}
}

func TestIsBlockType(t *testing.T) {
	if !IsBlockType("table") || IsBlockType("banner") {
		t.Fatalf("unexpected block type classification")
	}
}
