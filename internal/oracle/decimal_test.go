package oracle

import "testing"

func TestNormalizeExpoIdentity(t *testing.T) {
	got, err := normalizeExpo("75000000", -6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 75_000_000 {
		t.Fatalf("got %d, want 75000000", got)
	}
}

func TestNormalizeExpoDivides(t *testing.T) {
	// expo=-8: raw 7500000000 represents 75.00000000 -> 75_000_000 at 1e6 scale.
	got, err := normalizeExpo("7500000000", -8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 75_000_000 {
		t.Fatalf("got %d, want 75000000", got)
	}
}

// TestNormalizeExpoShallowExponent exercises the expo > -6 branch, which
// is present for completeness but unreachable for any feed ID currently
// configured (all carry expo <= -6).
func TestNormalizeExpoShallowExponent(t *testing.T) {
	got, err := normalizeExpo("75000", -3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 75 {
		t.Fatalf("got %d, want 75 (literal multiply-by-10^(-6-expo) behavior)", got)
	}
}

func TestNormalizeExpoRejectsGarbage(t *testing.T) {
	if _, err := normalizeExpo("not-a-number", -6); err == nil {
		t.Fatal("expected parse error")
	}
}
