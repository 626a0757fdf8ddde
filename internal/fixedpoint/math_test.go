package fixedpoint

import (
	"math"
	"testing"
)

func TestNotional(t *testing.T) {
	cases := []struct {
		name        string
		size, price uint64
		want        uint64
		wantErr     bool
	}{
		{"ten units at 75", 10_000_000, 75_000_000, 750_000_000, false},
		{"zero size", 0, 75_000_000, 0, false},
		{"overflow", math.MaxUint64, math.MaxUint64, 0, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Notional(c.size, c.price)
			if c.wantErr {
				if err == nil {
					t.Fatalf("expected overflow error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.want {
				t.Fatalf("got %d, want %d", got, c.want)
			}
		})
	}
}

func TestBpsApply(t *testing.T) {
	got, err := BpsApply(750_000, 500) // 5% of 750_000
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 37_500 {
		t.Fatalf("got %d, want 37500", got)
	}
}

func TestDeviationBps(t *testing.T) {
	got, err := DeviationBps(76_000_000, 75_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// |1_000_000| * 10000 / 75_000_000 = 133 (truncated)
	if got != 133 {
		t.Fatalf("got %d, want 133", got)
	}

	got, err = DeviationBps(100, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected 0 deviation for zero baseline, got %d", got)
	}
}

func TestSignedPnL(t *testing.T) {
	// S1 from spec: long size=10_000_000 entry=75_000_000 mark=76_500_000 -> +15_000_000
	pnl, err := SignedPnL(1, 10_000_000, 75_000_000, 76_500_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pnl != 15_000_000 {
		t.Fatalf("got %d, want 15000000", pnl)
	}

	// Short side flips the sign.
	pnl, err = SignedPnL(-1, 10_000_000, 75_000_000, 76_500_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pnl != -15_000_000 {
		t.Fatalf("got %d, want -15000000", pnl)
	}

	// S2 from spec: long size=10_000_000 entry=75_000_000 mark=68_000_000 -> -70_000_000
	pnl, err = SignedPnL(1, 10_000_000, 75_000_000, 68_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pnl != -70_000_000 {
		t.Fatalf("got %d, want -70000000", pnl)
	}
}

func TestSaturatingAdd(t *testing.T) {
	if got := SaturatingAdd(math.MaxUint64-1, 5); got != math.MaxUint64 {
		t.Fatalf("got %d, want MaxUint64", got)
	}
	if got := SaturatingAdd(10, 5); got != 15 {
		t.Fatalf("got %d, want 15", got)
	}
}

func TestSaturatingSub(t *testing.T) {
	if got := SaturatingSub(5, 10); got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
	if got := SaturatingSub(10, 3); got != 7 {
		t.Fatalf("got %d, want 7", got)
	}
}

func TestSaturatingAddSigned(t *testing.T) {
	if got := SaturatingAddSigned(100, 33); got != 133 {
		t.Fatalf("got %d, want 133", got)
	}
}
