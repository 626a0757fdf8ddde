package ammvault

import (
	"fmt"

	"oilperps/internal/errs"
	"oilperps/internal/fixedpoint"
)

// skewSpreadBp returns the skew component of the total spread: exposure
// ratio (capped at 100%) scaled by the vault's max skew spread.
func skewSpreadBp(netExposure int64, maxExposure, maxSkewSpreadBp uint64) (uint64, error) {
	if maxExposure == 0 {
		return 0, nil
	}
	magnitude := uint64(netExposure)
	if netExposure < 0 {
		magnitude = uint64(-netExposure)
	}
	skewRatio, err := fixedpoint.MulDiv(magnitude, fixedpoint.BpsScale, maxExposure)
	if err != nil {
		return 0, err
	}
	if skewRatio > fixedpoint.BpsScale {
		skewRatio = fixedpoint.BpsScale
	}
	return fixedpoint.BpsApply(skewRatio, maxSkewSpreadBp)
}

// totalSpreadBp computes base + skew spread, halved if the prospective
// trade reduces the magnitude of net exposure (the 50% rebate).
func totalSpreadBp(lv LpVault, tradeDelta int64) (uint64, error) {
	skew, err := skewSpreadBp(lv.NetExposure, lv.MaxExposure, lv.MaxSkewSpreadBp)
	if err != nil {
		return 0, err
	}
	total := lv.BaseSpreadBp + skew

	before := abs64(lv.NetExposure)
	after := abs64(lv.NetExposure + tradeDelta)
	if after < before {
		total /= 2
	}
	return total, nil
}

func abs64(x int64) uint64 {
	if x < 0 {
		return uint64(-x)
	}
	return uint64(x)
}

// exposureDelta returns the signed change to NetExposure a new trade of
// the given side and size would apply. Long increases net exposure,
// Short decreases it.
func exposureDelta(isLong bool, size uint64) int64 {
	if isLong {
		return int64(size)
	}
	return -int64(size)
}

// CalculateEntryPrice applies the vault's skew spread to the oracle price:
// a long pays oracle*(1+spread), a short receives oracle*(1-spread). size
// is the prospective trade size, used only to determine rebate eligibility
// (0 disables the rebate check, e.g. for a price preview).
func CalculateEntryPrice(lv LpVault, oracle uint64, isLong bool, size uint64) (uint64, error) {
	spreadBp, err := totalSpreadBp(lv, exposureDelta(isLong, size))
	if err != nil {
		return 0, err
	}
	adj, err := fixedpoint.BpsApply(oracle, spreadBp)
	if err != nil {
		return 0, err
	}
	if isLong {
		return oracle + adj, nil
	}
	return oracle - adj, nil
}

// CanAcceptTrade validates vault capacity for a prospective trade without
// mutating state.
func CanAcceptTrade(lv LpVault, isLong bool, size uint64) error {
	if !lv.IsActive {
		return fmt.Errorf("vault %s: %w", lv.Commodity, errs.ErrMarketPaused)
	}
	if size > lv.MaxPositionSize {
		return fmt.Errorf("size %d exceeds max position size %d: %w", size, lv.MaxPositionSize, errs.ErrInvalidSize)
	}
	newExposure := lv.NetExposure + exposureDelta(isLong, size)
	if abs64(newExposure) > lv.MaxExposure {
		return fmt.Errorf("net exposure %d exceeds cap %d: %w", newExposure, lv.MaxExposure, errs.ErrExposureCapped)
	}
	utilized := lv.LongSize + lv.ShortSize + size
	capAssets, err := fixedpoint.BpsApply(lv.TotalAssets, lv.MaxUtilizationBp)
	if err != nil {
		return err
	}
	if utilized > capAssets {
		return fmt.Errorf("utilization %d exceeds cap %d: %w", utilized, capAssets, errs.ErrUtilizationCapped)
	}
	return nil
}
