package orderbook

import (
	"context"
	"fmt"

	"oilperps/internal/errs"
	"oilperps/internal/store"
	"oilperps/pkg/types"
)

// liveForMatch reports whether a status participates in matching: Open,
// PartiallyFilled, or (for a just-triggered conditional order) Triggered.
func liveForMatch(s types.OrderStatus) bool {
	return s == types.OrderOpen || s == types.OrderPartiallyFilled || s == types.OrderTriggered
}

// MatchParams identifies the bid and ask legs to match.
type MatchParams struct {
	BidOwner string
	BidSeq   uint64
	AskOwner string
	AskSeq   uint64
}

// MatchResult reports the fill applied by MatchOrders.
type MatchResult struct {
	Bid  Order
	Ask  Order
	Fill uint64
}

// MatchOrders requires bid.price >= ask.price and both orders live; it
// fills min(bid.remaining, ask.remaining) against both, transitioning
// each to Filled once fully filled or PartiallyFilled otherwise. This
// engine does not prescribe how bid/ask pairs are selected off-book — the
// state transition here is the on-chain contract, not the matcher.
func (e *Engine) MatchOrders(ctx context.Context, p MatchParams) (MatchResult, error) {
	bid, err := e.loadOrder(p.BidOwner, p.BidSeq)
	if err != nil {
		return MatchResult{}, err
	}
	ask, err := e.loadOrder(p.AskOwner, p.AskSeq)
	if err != nil {
		return MatchResult{}, err
	}
	if !liveForMatch(bid.Status) || !liveForMatch(ask.Status) {
		return MatchResult{}, errs.ErrPositionNotOpen
	}
	if bid.Price < ask.Price {
		return MatchResult{}, fmt.Errorf("bid %d below ask %d: %w", bid.Price, ask.Price, errs.ErrInvalidPrice)
	}

	fill := min64(bid.Remaining(), ask.Remaining())
	if fill == 0 {
		return MatchResult{}, fmt.Errorf("no remaining size to fill: %w", errs.ErrInvalidSize)
	}

	bid.FilledSize += fill
	ask.FilledSize += fill
	bid.Status = fillStatus(bid)
	ask.Status = fillStatus(ask)

	if err := e.saveOrder(bid); err != nil {
		return MatchResult{}, err
	}
	if err := e.saveOrder(ask); err != nil {
		return MatchResult{}, err
	}
	if bid.Status == types.OrderFilled {
		if err := e.closeOrder(ctx, bid); err != nil {
			return MatchResult{}, err
		}
	}
	if ask.Status == types.OrderFilled {
		if err := e.closeOrder(ctx, ask); err != nil {
			return MatchResult{}, err
		}
	}
	return MatchResult{Bid: bid, Ask: ask, Fill: fill}, nil
}

func fillStatus(o Order) types.OrderStatus {
	if o.FilledSize >= o.Size {
		return types.OrderFilled
	}
	return types.OrderPartiallyFilled
}

// closeOrder handles the bookkeeping a fully-filled order triggers: the
// open-order count drops, and if the order is one leg of an OCO pair its
// sibling is cancelled.
func (e *Engine) closeOrder(ctx context.Context, o Order) error {
	if err := e.decrementOpenCount(o.Commodity); err != nil {
		return err
	}
	if o.IsOCO {
		if err := e.ExecuteOCOCancel(ctx, o.Owner, o.Sequence); err != nil {
			if err != store.ErrNotFound {
				return err
			}
		}
	}
	return nil
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
