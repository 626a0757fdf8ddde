// Package fixedpoint implements the 6-decimal fixed-point arithmetic shared
// by every ledger, AMM, MM-registry, and order-book computation.
//
// All prices and sizes share one scale: Scale = 1_000_000 (6 decimals).
// Ratios are expressed in basis points (BpsScale = 10_000). Every
// multiplicative operation widens to a 128-bit intermediate via math/bits
// and narrows back with an explicit overflow check — silent saturation on
// overflow is a bug, not a feature, so every helper here returns an error
// instead of clamping.
package fixedpoint

import (
	"errors"
	"math/bits"
)

const (
	// Scale is the fixed-point denominator for prices and sizes (6 decimals).
	Scale = 1_000_000
	// BpsScale is the denominator for basis-point ratios (10000 = 100%).
	BpsScale = 10_000
)

// ErrOverflow is returned by any operation whose result cannot be
// represented without loss.
var ErrOverflow = errors.New("fixedpoint: overflow")

// Notional returns size * price / Scale, checked for overflow.
func Notional(size, price uint64) (uint64, error) {
	return mulDiv(size, price, Scale)
}

// BpsApply returns x * bps / BpsScale, checked for overflow.
func BpsApply(x uint64, bps uint64) (uint64, error) {
	return mulDiv(x, bps, BpsScale)
}

// MulDiv computes a*b/d with a 128-bit intermediate product, checked for
// overflow. Exported for ratio computations outside this package (margin
// ratios, AMM skew ratios, collateral-lock sizing) that don't fit the
// Notional/BpsApply shapes.
func MulDiv(a, b, d uint64) (uint64, error) {
	return mulDiv(a, b, d)
}

// mulDiv computes a*b/d using a 128-bit intermediate product, returning
// ErrOverflow if the final result does not fit in 64 bits.
func mulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, errors.New("fixedpoint: division by zero")
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, d)
	return q, nil
}

// DeviationBps returns |a-b| * BpsScale / b, or 0 if b == 0.
func DeviationBps(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, nil
	}
	diff := a - b
	if a < b {
		diff = b - a
	}
	return mulDiv(diff, BpsScale, b)
}

// SignedPnL returns size * (mark - entry) / Scale, sign-flipped for Short.
// size, entry, mark are in Scale units; the result is signed because PnL
// can be negative.
func SignedPnL(side int64, size, entry, mark uint64) (int64, error) {
	var diff int64
	if mark >= entry {
		d, err := nonNegDiff(mark, entry)
		if err != nil {
			return 0, err
		}
		diff = int64(d)
	} else {
		d, err := nonNegDiff(entry, mark)
		if err != nil {
			return 0, err
		}
		diff = -int64(d)
	}

	product, err := mulDivSigned(int64(size), diff, Scale)
	if err != nil {
		return 0, err
	}
	return product * side, nil
}

func nonNegDiff(hi, lo uint64) (uint64, error) {
	if hi < lo {
		return 0, errors.New("fixedpoint: negative difference")
	}
	return hi - lo, nil
}

// mulDivSigned computes a*b/d for a signed numerator b (a, d are
// non-negative), rounding toward zero.
func mulDivSigned(a, b, d int64) (int64, error) {
	if d <= 0 {
		return 0, errors.New("fixedpoint: invalid divisor")
	}
	neg := b < 0
	ub := uint64(b)
	if neg {
		ub = uint64(-b)
	}
	q, err := mulDiv(uint64(a), ub, uint64(d))
	if err != nil {
		return 0, err
	}
	if q > 1<<62 {
		return 0, ErrOverflow
	}
	if neg {
		return -int64(q), nil
	}
	return int64(q), nil
}

// SaturatingAdd adds b to a, clamping at MaxUint64 instead of wrapping.
// Reserved for well-defined monotonic counters — never used for economic
// quantities, which must fail instead of saturate.
func SaturatingAdd(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return ^uint64(0)
	}
	return sum
}

// SaturatingSub subtracts b from a, clamping at 0 instead of underflowing.
func SaturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// SaturatingAddSigned adds a signed delta to an accumulating signed
// 64-bit counter (e.g. market.funding_rate), clamping at the int64 bounds
// instead of wrapping.
func SaturatingAddSigned(a, delta int64) int64 {
	sum := a + delta
	// Overflow occurs iff the operands share a sign and the result's sign differs.
	if (delta > 0 && sum < a) || (delta < 0 && sum > a) {
		if delta > 0 {
			return 1<<63 - 1
		}
		return -(1 << 63)
	}
	return sum
}
