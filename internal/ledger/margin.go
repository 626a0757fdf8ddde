package ledger

import "oilperps/internal/fixedpoint"

// Equity returns collateral + signed PnL at the given mark price.
func Equity(p Position, mark uint64) (int64, error) {
	pnl, err := fixedpoint.SignedPnL(p.Side.Sign(), p.Size, p.EntryPrice, mark)
	if err != nil {
		return 0, err
	}
	return int64(p.Collateral) + pnl, nil
}

// Notional returns the position's notional value at the given price
// (mark for liquidation/margin checks, entry at open).
func Notional(p Position, price uint64) (uint64, error) {
	return fixedpoint.Notional(p.Size, price)
}

// MarginRatio returns equity*10000/notional in basis points, or 0 if
// equity is non-positive or notional is zero.
func MarginRatio(p Position, mark uint64) (uint64, error) {
	equity, err := Equity(p, mark)
	if err != nil {
		return 0, err
	}
	if equity <= 0 {
		return 0, nil
	}
	notional, err := Notional(p, mark)
	if err != nil {
		return 0, err
	}
	if notional == 0 {
		return 0, nil
	}
	return fixedpoint.MulDiv(uint64(equity), fixedpoint.BpsScale, notional)
}
