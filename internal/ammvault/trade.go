package ammvault

import (
	"context"
	"fmt"

	"oilperps/internal/errs"
	"oilperps/internal/fixedpoint"
	"oilperps/pkg/types"
)

// OpenParams is the input to OpenPosition.
type OpenParams struct {
	Owner     string
	Commodity string
	Side      types.Side
	Size      uint64
	Oracle    uint64
	Now       int64
}

// OpenPosition admits a trade against the vault's own exposure: the
// entry price is the vault's skew-adjusted quote, not the raw oracle
// price, and the trade directly moves NetExposure/LongSize/ShortSize.
func (v *Vault) OpenPosition(ctx context.Context, p OpenParams) (Position, error) {
	lv, err := v.loadVault(p.Commodity)
	if err != nil {
		return Position{}, err
	}
	isLong := p.Side == types.Long
	if err := CanAcceptTrade(lv, isLong, p.Size); err != nil {
		return Position{}, err
	}
	entry, err := CalculateEntryPrice(lv, p.Oracle, isLong, p.Size)
	if err != nil {
		return Position{}, err
	}

	lv.NetExposure += exposureDelta(isLong, p.Size)
	if isLong {
		lv.LongSize += p.Size
	} else {
		lv.ShortSize += p.Size
	}

	seq, err := v.nextSeq(p.Owner)
	if err != nil {
		return Position{}, err
	}
	pos := Position{
		Owner:      p.Owner,
		Vault:      p.Commodity,
		Seq:        seq,
		Side:       p.Side,
		Size:       p.Size,
		EntryPrice: entry,
		OpenedAt:   p.Now,
		Status:     types.PositionOpen,
	}

	if err := v.saveVault(lv); err != nil {
		return Position{}, err
	}
	if err := v.savePos(pos); err != nil {
		return Position{}, err
	}
	return pos, nil
}

// CloseParams is the input to ClosePosition.
type CloseParams struct {
	Owner  string
	Seq    uint64
	Oracle uint64
	Now    int64
}

// ClosePosition exits a trader's exposure against the vault, settling the
// trader's PnL against TotalAssets (the vault's negation of the trader's
// gain or loss) and splitting the taker fee with LPs via PendingFees.
func (v *Vault) ClosePosition(ctx context.Context, p CloseParams) (Position, error) {
	pos, err := v.loadPos(p.Owner, p.Seq)
	if err != nil {
		return Position{}, err
	}
	if pos.Status != types.PositionOpen {
		return Position{}, errs.ErrPositionNotOpen
	}
	lv, err := v.loadVault(pos.Vault)
	if err != nil {
		return Position{}, err
	}

	isLong := pos.Side == types.Long
	// size 0: the exit is quoted at the full spread, without the
	// exposure-reduction rebate.
	exit, err := CalculateEntryPrice(lv, p.Oracle, !isLong, 0)
	if err != nil {
		return Position{}, err
	}

	traderPnL, err := fixedpoint.SignedPnL(pos.Side.Sign(), pos.Size, pos.EntryPrice, exit)
	if err != nil {
		return Position{}, err
	}
	notional, err := fixedpoint.Notional(pos.Size, p.Oracle)
	if err != nil {
		return Position{}, err
	}
	fee, err := fixedpoint.BpsApply(notional, lv.TradingFeeBp)
	if err != nil {
		return Position{}, err
	}
	lpFee, err := fixedpoint.BpsApply(fee, lv.LpFeeShareBp)
	if err != nil {
		return Position{}, err
	}

	vaultAssetsDelta := -traderPnL + int64(lpFee)
	newAssets := int64(lv.TotalAssets) + vaultAssetsDelta
	if newAssets < 0 {
		newAssets = 0
	}
	lv.TotalAssets = uint64(newAssets)
	lv.PendingFees += lpFee
	lv.CumulativePnL += -traderPnL
	lv.CumulativeFees += fee

	lv.NetExposure -= exposureDelta(isLong, pos.Size)
	if isLong {
		lv.LongSize -= min64(lv.LongSize, pos.Size)
	} else {
		lv.ShortSize -= min64(lv.ShortSize, pos.Size)
	}

	// The PnL leg settles between trader and vault; the fee leg splits
	// between the vault (LP share) and the protocol account, so the
	// vault's custody balance never holds money its TotalAssets doesn't
	// also account for.
	if traderPnL > 0 {
		if err := v.custody.Transfer(ctx, vaultAccount(pos.Vault), lpAccount(pos.Owner), uint64(traderPnL)); err != nil {
			return Position{}, err
		}
	} else if traderPnL < 0 {
		if err := v.custody.Transfer(ctx, lpAccount(pos.Owner), vaultAccount(pos.Vault), uint64(-traderPnL)); err != nil {
			return Position{}, err
		}
	}
	if lpFee > 0 {
		if err := v.custody.Transfer(ctx, lpAccount(pos.Owner), vaultAccount(pos.Vault), lpFee); err != nil {
			return Position{}, err
		}
	}
	protocolFee := fee - lpFee
	if protocolFee > 0 {
		if err := v.custody.Transfer(ctx, lpAccount(pos.Owner), protocolAccount(), protocolFee); err != nil {
			return Position{}, err
		}
	}

	pos.Status = types.PositionClosed

	if err := v.saveVault(lv); err != nil {
		return Position{}, err
	}
	if err := v.savePos(pos); err != nil {
		return Position{}, err
	}
	return pos, nil
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
