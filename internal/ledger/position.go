package ledger

import (
	"context"
	"fmt"

	"oilperps/internal/errs"
	"oilperps/internal/fixedpoint"
	"oilperps/pkg/types"
)

// maxOraclePriceAge is the freshness bound a close_position's oracle read
// must satisfy.
const maxOraclePriceAge = 60

// OpenPositionParams is the input to OpenPosition. MaxEntryPrice is an
// optional slippage cap: 0 disables the check; otherwise a Long rejects
// entry prices above it and a Short rejects entry prices below it.
type OpenPositionParams struct {
	Owner         string
	Commodity     string
	Side          types.Side
	Size          uint64
	Leverage      uint64
	Collateral    uint64
	OraclePrice   uint64
	MaxEntryPrice uint64
	Now           int64
}

// OpenPosition allocates a new Position for owner, sized and collateralized
// per p, using the oracle price as entry.
func (l *Ledger) OpenPosition(ctx context.Context, p OpenPositionParams) (Position, error) {
	market, err := l.loadMarket(p.Commodity)
	if err != nil {
		return Position{}, err
	}
	if market.IsPaused {
		return Position{}, fmt.Errorf("open position on %s: %w", p.Commodity, errs.ErrMarketPaused)
	}
	if p.Leverage == 0 || p.Leverage > market.MaxLeverage {
		return Position{}, fmt.Errorf("leverage %d exceeds market max %d: %w", p.Leverage, market.MaxLeverage, errs.ErrInvalidLeverage)
	}
	if p.Size == 0 {
		return Position{}, fmt.Errorf("size must be > 0: %w", errs.ErrInvalidSize)
	}

	if p.MaxEntryPrice != 0 {
		if p.Side == types.Long && p.OraclePrice > p.MaxEntryPrice {
			return Position{}, fmt.Errorf("entry %d exceeds slippage cap %d: %w", p.OraclePrice, p.MaxEntryPrice, errs.ErrInvalidPrice)
		}
		if p.Side == types.Short && p.OraclePrice < p.MaxEntryPrice {
			return Position{}, fmt.Errorf("entry %d below slippage cap %d: %w", p.OraclePrice, p.MaxEntryPrice, errs.ErrInvalidPrice)
		}
	}

	notional, err := fixedpoint.Notional(p.Size, p.OraclePrice)
	if err != nil {
		return Position{}, err
	}
	requiredMargin, err := fixedpoint.BpsApply(notional, market.InitialMarginRatioBp)
	if err != nil {
		return Position{}, err
	}
	if p.Collateral < requiredMargin {
		return Position{}, fmt.Errorf("collateral %d below required margin %d: %w", p.Collateral, requiredMargin, errs.ErrInsufficientCollateral)
	}

	user, err := l.loadUser(p.Owner)
	if err != nil {
		return Position{}, err
	}
	if user.CollateralBalance < p.Collateral {
		return Position{}, fmt.Errorf("free balance %d below requested collateral %d: %w", user.CollateralBalance, p.Collateral, errs.ErrInsufficientAvailable)
	}

	switch p.Side {
	case types.Long:
		newOI, err := checkedAddU64(market.LongOI, p.Size)
		if err != nil {
			return Position{}, err
		}
		if newOI > market.MaxOpenInterest {
			return Position{}, fmt.Errorf("long OI %d exceeds cap %d: %w", newOI, market.MaxOpenInterest, errs.ErrOpenInterestCapped)
		}
		market.LongOI = newOI
	case types.Short:
		newOI, err := checkedAddU64(market.ShortOI, p.Size)
		if err != nil {
			return Position{}, err
		}
		if newOI > market.MaxOpenInterest {
			return Position{}, fmt.Errorf("short OI %d exceeds cap %d: %w", newOI, market.MaxOpenInterest, errs.ErrOpenInterestCapped)
		}
		market.ShortOI = newOI
	default:
		return Position{}, fmt.Errorf("invalid side %q", p.Side)
	}

	seq := user.NextPositionSeq
	user.NextPositionSeq++
	user.CollateralBalance -= p.Collateral

	pos := Position{
		Owner:              p.Owner,
		Market:             p.Commodity,
		Seq:                seq,
		Side:               p.Side,
		Size:               p.Size,
		Collateral:         p.Collateral,
		EntryPrice:         p.OraclePrice,
		Leverage:           p.Leverage,
		LastFundingPayment: market.FundingRate,
		OpenedAt:           p.Now,
		LastUpdatedAt:      p.Now,
		Status:             types.PositionOpen,
	}

	if err := l.saveUser(user); err != nil {
		return Position{}, err
	}
	if err := l.saveMarket(market); err != nil {
		return Position{}, err
	}
	if err := l.savePosition(pos); err != nil {
		return Position{}, err
	}
	return pos, nil
}

// AddMargin moves amount from owner's free balance into an open position,
// with no OI effect.
func (l *Ledger) AddMargin(ctx context.Context, owner, commodity string, seq uint64, amount uint64, now int64) (Position, error) {
	pos, err := l.loadPosition(owner, seq)
	if err != nil {
		return Position{}, err
	}
	if pos.Status != types.PositionOpen {
		return Position{}, errs.ErrPositionNotOpen
	}
	user, err := l.loadUser(owner)
	if err != nil {
		return Position{}, err
	}
	add := amount
	if user.CollateralBalance < add {
		return Position{}, fmt.Errorf("free balance %d below margin add %d: %w", user.CollateralBalance, add, errs.ErrInsufficientAvailable)
	}

	newCollateral, err := checkedAddU64(pos.Collateral, add)
	if err != nil {
		return Position{}, err
	}

	user.CollateralBalance -= add
	pos.Collateral = newCollateral
	pos.LastUpdatedAt = now

	if err := l.saveUser(user); err != nil {
		return Position{}, err
	}
	if err := l.savePosition(pos); err != nil {
		return Position{}, err
	}
	return pos, nil
}

// ClosePositionParams is the input to ClosePosition.
type ClosePositionParams struct {
	Owner          string
	Seq            uint64
	MarkPrice      uint64
	PriceTimestamp int64
	Now            int64
}

// ClosePosition settles a position at the given mark price: raw PnL,
// funding payment since last settlement, and taker fee (to the insurance
// fund), then transfers the net settlement to the owner.
func (l *Ledger) ClosePosition(ctx context.Context, p ClosePositionParams) (Position, error) {
	if p.Now-p.PriceTimestamp > maxOraclePriceAge {
		return Position{}, errs.ErrStalePrice
	}

	pos, err := l.loadPosition(p.Owner, p.Seq)
	if err != nil {
		return Position{}, err
	}
	if pos.Status != types.PositionOpen {
		return Position{}, errs.ErrPositionNotOpen
	}
	market, err := l.loadMarket(pos.Market)
	if err != nil {
		return Position{}, err
	}

	pnl, err := fixedpoint.SignedPnL(pos.Side.Sign(), pos.Size, pos.EntryPrice, p.MarkPrice)
	if err != nil {
		return Position{}, err
	}
	funding, err := fundingSettlement(pos.Side.Sign(), pos.Size, market.FundingRate, pos.LastFundingPayment)
	if err != nil {
		return Position{}, err
	}
	notional, err := fixedpoint.Notional(pos.Size, p.MarkPrice)
	if err != nil {
		return Position{}, err
	}
	fee, err := fixedpoint.BpsApply(notional, market.TakerFeeBp)
	if err != nil {
		return Position{}, err
	}

	settlementSigned := int64(pos.Collateral) + pnl + funding - int64(fee)
	settlement := uint64(0)
	if settlementSigned > 0 {
		settlement = uint64(settlementSigned)
	}

	switch pos.Side {
	case types.Long:
		market.LongOI -= min64(market.LongOI, pos.Size)
	case types.Short:
		market.ShortOI -= min64(market.ShortOI, pos.Size)
	}
	market.InsuranceFund, err = checkedAddU64(market.InsuranceFund, fee)
	if err != nil {
		return Position{}, err
	}

	pos.Status = types.PositionClosed
	pos.RealizedPnL = pnl + funding - int64(fee)
	pos.LastUpdatedAt = p.Now

	if settlement > 0 {
		if err := l.custody.Transfer(ctx, vaultAccount(pos.Market), userAccount(pos.Owner), settlement); err != nil {
			return Position{}, err
		}
	}

	user, err := l.loadUser(pos.Owner)
	if err != nil {
		return Position{}, err
	}
	user.RealizedPnL += pos.RealizedPnL

	if err := l.saveUser(user); err != nil {
		return Position{}, err
	}
	if err := l.saveMarket(market); err != nil {
		return Position{}, err
	}
	if err := l.savePosition(pos); err != nil {
		return Position{}, err
	}

	if err := l.fees.OnFee(ctx, pos.Owner, fee); err != nil {
		l.logger.Warn("referral fee hook failed", "owner", pos.Owner, "error", err)
	}
	return pos, nil
}

// LiquidateParams is the input to Liquidate.
type LiquidateParams struct {
	Caller         string
	Owner          string
	Seq            uint64
	MarkPrice      uint64
	PriceTimestamp int64
	Now            int64
}

// Liquidate closes an under-margined position on behalf of any caller,
// paying the caller a liquidation reward from the remaining equity.
func (l *Ledger) Liquidate(ctx context.Context, p LiquidateParams) (Position, error) {
	if p.Now-p.PriceTimestamp > maxOraclePriceAge {
		return Position{}, errs.ErrStalePrice
	}

	pos, err := l.loadPosition(p.Owner, p.Seq)
	if err != nil {
		return Position{}, err
	}
	if pos.Status != types.PositionOpen {
		return Position{}, errs.ErrPositionNotOpen
	}
	market, err := l.loadMarket(pos.Market)
	if err != nil {
		return Position{}, err
	}

	ratio, err := MarginRatio(pos, p.MarkPrice)
	if err != nil {
		return Position{}, err
	}
	if ratio >= market.MaintenanceMarginRatioBp {
		return Position{}, errs.ErrNotLiquidatable
	}

	equity, err := Equity(pos, p.MarkPrice)
	if err != nil {
		return Position{}, err
	}
	remaining := uint64(0)
	if equity > 0 {
		remaining = uint64(equity)
	}
	reward, err := fixedpoint.BpsApply(remaining, market.LiquidationFeeBp)
	if err != nil {
		return Position{}, err
	}
	leftover := remaining - reward

	switch pos.Side {
	case types.Long:
		market.LongOI -= min64(market.LongOI, pos.Size)
	case types.Short:
		market.ShortOI -= min64(market.ShortOI, pos.Size)
	}
	market.InsuranceFund, err = checkedAddU64(market.InsuranceFund, leftover)
	if err != nil {
		return Position{}, err
	}

	pos.Status = types.PositionLiquidated
	pos.LastUpdatedAt = p.Now

	if reward > 0 {
		if err := l.custody.Transfer(ctx, vaultAccount(pos.Market), userAccount(p.Caller), reward); err != nil {
			return Position{}, err
		}
	}

	if err := l.saveMarket(market); err != nil {
		return Position{}, err
	}
	if err := l.savePosition(pos); err != nil {
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
