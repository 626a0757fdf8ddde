package mmregistry

import (
	"oilperps/internal/fixedpoint"
	"oilperps/pkg/types"
)

// applyFill updates an MM's signed inventory and volume-weighted average
// price for a fill of side/size/price. side is the direction the MM's
// inventory moves: filling an ask (taker buys) leaves the MM Short (its
// inventory decreases), filling a bid (taker sells) leaves it Long.
func applyFill(mm *MarketMaker, side types.Side, size uint64, price uint64) {
	delta := int64(size)
	if side == types.Short {
		delta = -delta
	}

	prevSign := sign(mm.InventorySigned)
	newInventory := mm.InventorySigned + delta
	newSign := sign(newInventory)

	switch {
	case mm.InventorySigned == 0:
		mm.AvgInventoryPrice = price
	case prevSign == sign(delta) || prevSign == 0:
		// Adding to an existing (or opening a fresh) position on the same
		// side: volume-weighted average, (old_size*old_avg +
		// add_size*fill_price) / new_size.
		oldMag := abs64(mm.InventorySigned)
		addMag := abs64(delta)
		totalMag := oldMag + addMag
		if totalMag > 0 {
			oldWeighted, errA := fixedpoint.MulDiv(oldMag, mm.AvgInventoryPrice, 1)
			addWeighted, errB := fixedpoint.MulDiv(addMag, price, 1)
			if errA == nil && errB == nil {
				if sum, err := checkedAddU64(oldWeighted, addWeighted); err == nil {
					mm.AvgInventoryPrice, _ = fixedpoint.MulDiv(sum, 1, totalMag)
				}
			}
		}
	case newSign != 0 && newSign != prevSign:
		// Flipped net side: the average price resets to this fill's price
		// for the new direction.
		mm.AvgInventoryPrice = price
	}
	// Reducing without flipping keeps AvgInventoryPrice unchanged; the
	// realized PnL on the closed portion is neither computed nor stored
	// here, since MarketMaker has no realized_pnl field in this registry's
	// data model (RealizedPnL computes it on request).
	mm.InventorySigned = newInventory
}

// RealizedPnL returns the PnL realized by reducing size of inventory at
// avgPrice down to a fill at markPrice, signed per the side being reduced.
func RealizedPnL(side types.Side, size, avgPrice, markPrice uint64) (int64, error) {
	return fixedpoint.SignedPnL(side.Sign(), size, avgPrice, markPrice)
}

func sign(x int64) int64 {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}

func abs64(x int64) uint64 {
	if x < 0 {
		return uint64(-x)
	}
	return uint64(x)
}
