package mmregistry

import (
	"context"
	"fmt"

	"oilperps/internal/errs"
	"oilperps/internal/fixedpoint"
	"oilperps/pkg/types"
)

// collateralRequired is max(bid_notional, ask_notional) / 10 — a 10%
// margin on the larger leg of the quote.
func collateralRequired(bidSize, bidPrice, askSize, askPrice uint64) (uint64, error) {
	bidNotional, err := fixedpoint.Notional(bidSize, bidPrice)
	if err != nil {
		return 0, err
	}
	askNotional, err := fixedpoint.Notional(askSize, askPrice)
	if err != nil {
		return 0, err
	}
	maxNotional := bidNotional
	if askNotional > maxNotional {
		maxNotional = askNotional
	}
	return maxNotional / 10, nil
}

func spreadBp(bidPrice, askPrice uint64) (uint64, error) {
	if askPrice <= bidPrice {
		return 0, fmt.Errorf("ask %d must exceed bid %d: %w", askPrice, bidPrice, errs.ErrInvalidPrice)
	}
	return fixedpoint.MulDiv(askPrice-bidPrice, fixedpoint.BpsScale, bidPrice)
}

// PostQuoteParams is the input to PostQuote.
type PostQuoteParams struct {
	Owner       string
	Commodity   string
	BidPrice    uint64
	BidSize     uint64
	AskPrice    uint64
	AskSize     uint64
	MinFillSize uint64
	ExpiresIn   int64
	Now         int64
}

// PostQuote admits a new TwoSidedQuote, locking the required collateral.
func (e *Engine) PostQuote(ctx context.Context, p PostQuoteParams) (TwoSidedQuote, error) {
	registry, err := e.loadRegistry(p.Commodity)
	if err != nil {
		return TwoSidedQuote{}, err
	}
	if !registry.TradingEnabled {
		return TwoSidedQuote{}, errs.ErrTradingDisabled
	}
	mm, err := e.loadMM(p.Owner, p.Commodity)
	if err != nil {
		return TwoSidedQuote{}, err
	}
	if mm.Status != types.MMActive {
		return TwoSidedQuote{}, errs.ErrMarketMakerNotActive
	}
	if p.BidPrice == 0 {
		return TwoSidedQuote{}, fmt.Errorf("bid price must be > 0: %w", errs.ErrInvalidPrice)
	}
	if p.AskPrice <= p.BidPrice {
		return TwoSidedQuote{}, fmt.Errorf("ask %d must exceed bid %d: %w", p.AskPrice, p.BidPrice, errs.ErrInvalidPrice)
	}
	for _, size := range []uint64{p.BidSize, p.AskSize} {
		if size < registry.MinQuoteSize || size > registry.MaxQuoteSize {
			return TwoSidedQuote{}, fmt.Errorf("size %d out of bounds [%d,%d]: %w", size, registry.MinQuoteSize, registry.MaxQuoteSize, errs.ErrInvalidSize)
		}
	}
	spread, err := spreadBp(p.BidPrice, p.AskPrice)
	if err != nil {
		return TwoSidedQuote{}, err
	}
	if spread > registry.MaxSpreadBp {
		return TwoSidedQuote{}, fmt.Errorf("spread %d bp exceeds max %d bp: %w", spread, registry.MaxSpreadBp, errs.ErrInvalidSpread)
	}
	if mm.ActiveQuotes >= registry.MaxQuotes {
		return TwoSidedQuote{}, errs.ErrMaxQuotesReached
	}

	required, err := collateralRequired(p.BidSize, p.BidPrice, p.AskSize, p.AskPrice)
	if err != nil {
		return TwoSidedQuote{}, err
	}
	if err := lockCollateral(&mm, required); err != nil {
		return TwoSidedQuote{}, err
	}
	mm.ActiveQuotes++

	seq, err := e.nextQuoteSeq(p.Owner)
	if err != nil {
		return TwoSidedQuote{}, err
	}
	expiresAt := int64(0)
	if p.ExpiresIn != 0 {
		expiresAt = p.Now + p.ExpiresIn
	}
	q := TwoSidedQuote{
		Owner:            p.Owner,
		Commodity:        p.Commodity,
		Seq:              seq,
		BidPrice:         p.BidPrice,
		BidSize:          p.BidSize,
		BidRemaining:     p.BidSize,
		AskPrice:         p.AskPrice,
		AskSize:          p.AskSize,
		AskRemaining:     p.AskSize,
		MinFillSize:      p.MinFillSize,
		CollateralLocked: required,
		ExpiresAt:        expiresAt,
		IsActive:         true,
	}

	if err := e.saveMM(mm); err != nil {
		return TwoSidedQuote{}, err
	}
	if err := e.saveQuote(q); err != nil {
		return TwoSidedQuote{}, err
	}
	return q, nil
}

// UpdateQuoteParams is the input to UpdateQuote.
type UpdateQuoteParams struct {
	Owner    string
	Seq      uint64
	BidPrice uint64
	BidSize  uint64
	AskPrice uint64
	AskSize  uint64
}

// saturatingSub returns a-b, or 0 if b > a.
func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// UpdateQuote resizes an active quote in place: new remaining sizes carry
// over whatever of the old quote was already filled, collateral is
// recomputed against the new remainings, and only the incremental lock (if
// any) needs to fit the MM's available balance.
func (e *Engine) UpdateQuote(ctx context.Context, p UpdateQuoteParams) (TwoSidedQuote, error) {
	q, err := e.loadQuote(p.Owner, p.Seq)
	if err != nil {
		return TwoSidedQuote{}, err
	}
	if !q.IsActive {
		return TwoSidedQuote{}, errs.ErrQuoteInactive
	}
	registry, err := e.loadRegistry(q.Commodity)
	if err != nil {
		return TwoSidedQuote{}, err
	}
	mm, err := e.loadMM(p.Owner, q.Commodity)
	if err != nil {
		return TwoSidedQuote{}, err
	}

	if p.BidPrice == 0 {
		return TwoSidedQuote{}, fmt.Errorf("bid price must be > 0: %w", errs.ErrInvalidPrice)
	}
	if p.AskPrice <= p.BidPrice {
		return TwoSidedQuote{}, fmt.Errorf("ask %d must exceed bid %d: %w", p.AskPrice, p.BidPrice, errs.ErrInvalidPrice)
	}
	for _, size := range []uint64{p.BidSize, p.AskSize} {
		if size < registry.MinQuoteSize || size > registry.MaxQuoteSize {
			return TwoSidedQuote{}, fmt.Errorf("size %d out of bounds [%d,%d]: %w", size, registry.MinQuoteSize, registry.MaxQuoteSize, errs.ErrInvalidSize)
		}
	}
	spread, err := spreadBp(p.BidPrice, p.AskPrice)
	if err != nil {
		return TwoSidedQuote{}, err
	}
	if spread > registry.MaxSpreadBp {
		return TwoSidedQuote{}, fmt.Errorf("spread %d bp exceeds max %d bp: %w", spread, registry.MaxSpreadBp, errs.ErrInvalidSpread)
	}

	newBidRemaining := saturatingSub(p.BidSize, q.BidSize-q.BidRemaining)
	newAskRemaining := saturatingSub(p.AskSize, q.AskSize-q.AskRemaining)

	required, err := collateralRequired(newBidRemaining, p.BidPrice, newAskRemaining, p.AskPrice)
	if err != nil {
		return TwoSidedQuote{}, err
	}
	if required > q.CollateralLocked {
		if err := lockCollateral(&mm, required-q.CollateralLocked); err != nil {
			return TwoSidedQuote{}, err
		}
	} else {
		unlockCollateral(&mm, q.CollateralLocked-required)
	}

	q.BidPrice = p.BidPrice
	q.BidSize = p.BidSize
	q.BidRemaining = newBidRemaining
	q.AskPrice = p.AskPrice
	q.AskSize = p.AskSize
	q.AskRemaining = newAskRemaining
	q.CollateralLocked = required

	if err := e.saveMM(mm); err != nil {
		return TwoSidedQuote{}, err
	}
	if err := e.saveQuote(q); err != nil {
		return TwoSidedQuote{}, err
	}
	return q, nil
}

// CancelQuote unlocks a quote's full collateral and destroys the record.
func (e *Engine) CancelQuote(ctx context.Context, owner string, seq uint64) error {
	q, err := e.loadQuote(owner, seq)
	if err != nil {
		return err
	}
	if !q.IsActive {
		return errs.ErrQuoteInactive
	}
	mm, err := e.loadMM(owner, q.Commodity)
	if err != nil {
		return err
	}
	unlockCollateral(&mm, q.CollateralLocked)
	mm.ActiveQuotes -= min64(mm.ActiveQuotes, 1)
	if err := e.saveMM(mm); err != nil {
		return err
	}
	return e.store.Delete(kindQuote, quoteKey(owner, seq))
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func checkedAddU64(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, errs.ErrArithmeticOverflow
	}
	return sum, nil
}

func quoteValid(q TwoSidedQuote, now int64) bool {
	if !q.IsActive {
		return false
	}
	return q.ExpiresAt == 0 || now <= q.ExpiresAt
}

// FillParams is the input to FillQuote.
type FillParams struct {
	Owner string // the MM's owner key, to locate the quote
	Seq   uint64
	Taker string
	IsBuy bool // true: taker buys, fills the ask side
	Size  uint64
	Now   int64
}

// FillQuote executes a taker fill against one side of a TwoSidedQuote,
// settling notional+fee between taker and MM and updating MM inventory.
func (e *Engine) FillQuote(ctx context.Context, p FillParams) (TwoSidedQuote, error) {
	q, err := e.loadQuote(p.Owner, p.Seq)
	if err != nil {
		return TwoSidedQuote{}, err
	}
	if !quoteValid(q, p.Now) {
		return TwoSidedQuote{}, errs.ErrQuoteInactive
	}
	if p.Size < q.MinFillSize {
		return TwoSidedQuote{}, fmt.Errorf("fill size %d below min %d: %w", p.Size, q.MinFillSize, errs.ErrInvalidSize)
	}

	registry, err := e.loadRegistry(q.Commodity)
	if err != nil {
		return TwoSidedQuote{}, err
	}
	mm, err := e.loadMM(q.Owner, q.Commodity)
	if err != nil {
		return TwoSidedQuote{}, err
	}

	var fillPrice uint64
	if p.IsBuy {
		fillPrice = q.AskPrice
		if p.Size > q.AskRemaining {
			return TwoSidedQuote{}, errs.ErrFillExceedsRemaining
		}
	} else {
		fillPrice = q.BidPrice
		if p.Size > q.BidRemaining {
			return TwoSidedQuote{}, errs.ErrFillExceedsRemaining
		}
	}

	notional, err := fixedpoint.Notional(p.Size, fillPrice)
	if err != nil {
		return TwoSidedQuote{}, err
	}
	fee, err := fixedpoint.BpsApply(notional, registry.MmFeeBp)
	if err != nil {
		return TwoSidedQuote{}, err
	}

	if p.IsBuy {
		total, err := checkedAddU64(notional, fee)
		if err != nil {
			return TwoSidedQuote{}, err
		}
		if err := e.custody.Transfer(ctx, mmCustody(p.Taker), registryCustody(q.Commodity), total); err != nil {
			return TwoSidedQuote{}, err
		}
		applyFill(&mm, types.Short, p.Size, fillPrice)
		mm.Deposited += notional
		q.AskRemaining -= p.Size
	} else {
		payout := notional - fee
		if err := e.custody.Transfer(ctx, registryCustody(q.Commodity), mmCustody(p.Taker), payout); err != nil {
			return TwoSidedQuote{}, err
		}
		applyFill(&mm, types.Long, p.Size, fillPrice)
		mm.Deposited -= min64(mm.Deposited, notional)
		q.BidRemaining -= p.Size
	}

	maxRemainNotional, err := collateralRequired(q.BidRemaining, q.BidPrice, q.AskRemaining, q.AskPrice)
	if err != nil {
		return TwoSidedQuote{}, err
	}
	freed := uint64(0)
	if q.CollateralLocked > maxRemainNotional {
		freed = q.CollateralLocked - maxRemainNotional
	}
	unlockCollateral(&mm, freed)
	q.CollateralLocked = maxRemainNotional

	if q.BidRemaining == 0 && q.AskRemaining == 0 {
		q.IsActive = false
		mm.ActiveQuotes -= min64(mm.ActiveQuotes, 1)
	}

	if err := e.saveMM(mm); err != nil {
		return TwoSidedQuote{}, err
	}
	if err := e.saveQuote(q); err != nil {
		return TwoSidedQuote{}, err
	}
	return q, nil
}
