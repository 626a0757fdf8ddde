package oracle

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// normalizeExpo converts a raw string-encoded integer price with a signed
// exponent to 6-decimal fixed point: if expo < -6, divide by 10^(-6-expo);
// if expo > -6, multiply by 10^(-6-expo); otherwise identity. The
// multiply branch is unreachable for the feed IDs this aggregator is
// configured with (all carry expo <= -6). Because -6-expo is negative
// there, that factor is below 1 and scales the value down (raw "75000"
// at expo -3 yields 75, not 75_000_000).
func normalizeExpo(raw string, expo int32) (uint64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("oracle: parse price %q: %w", raw, err)
	}

	shift := -6 - expo
	switch {
	case expo < -6:
		d = d.Shift(-shift)
	case expo > -6:
		d = d.Shift(shift)
	}

	if d.IsNegative() {
		return 0, fmt.Errorf("oracle: normalized price %s is negative", d.String())
	}
	return uint64(d.IntPart()), nil
}
