package orderbook

import (
	"context"

	"oilperps/internal/fixedpoint"
	"oilperps/pkg/types"
)

// ShouldTrigger evaluates a conditional order's trigger predicate against
// the current mark price. None always triggers (used for market orders
// routed through the same admission path).
func ShouldTrigger(cond types.TriggerCondition, triggerPrice, mark uint64) bool {
	switch cond {
	case types.TriggerPriceAbove:
		return mark >= triggerPrice
	case types.TriggerPriceBelow:
		return mark <= triggerPrice
	default:
		return true
	}
}

// CheckTrigger loads the order, evaluates ShouldTrigger against mark, and
// if true transitions it Open/PartiallyFilled -> Triggered, cancelling its
// OCO sibling. Returns the (possibly unchanged) order.
func (e *Engine) CheckTrigger(ctx context.Context, owner string, seq uint64, mark uint64) (Order, error) {
	o, err := e.loadOrder(owner, seq)
	if err != nil {
		return Order{}, err
	}
	if !o.IsLive() || o.TriggerCondition == types.TriggerNone {
		return o, nil
	}
	if !ShouldTrigger(o.TriggerCondition, o.TriggerPrice, mark) {
		return o, nil
	}
	o.Status = types.OrderTriggered
	if err := e.saveOrder(o); err != nil {
		return Order{}, err
	}
	if o.IsOCO {
		if err := e.ExecuteOCOCancel(ctx, owner, o.Sequence); err != nil {
			return Order{}, err
		}
	}
	return o, nil
}

// UpdateTrailingStop applies one mark price tick to a live TrailingStop
// order. An ask (protecting a long) ratchets its trigger up as the mark
// rises; a bid (protecting a short) ratchets it down as the mark falls.
// The trigger price only ever moves in the protective direction.
func (e *Engine) UpdateTrailingStop(ctx context.Context, owner string, seq uint64, mark uint64) (Order, error) {
	o, err := e.loadOrder(owner, seq)
	if err != nil {
		return Order{}, err
	}
	if !o.IsLive() || o.Type != types.OrderTrailingStop {
		return o, nil
	}

	if o.Side == types.Short {
		// Protects a long: ask side, ratchets the trigger up as mark rises.
		if mark > o.HighestPrice {
			o.HighestPrice = mark
			offset, err := trailingOffset(mark, o.TrailingAmount, o.TrailingPercent)
			if err != nil {
				return Order{}, err
			}
			o.TriggerPrice = fixedpoint.SaturatingSub(mark, offset)
		}
	} else {
		// Protects a short: bid side, ratchets the trigger down as mark falls.
		if o.LowestPrice == 0 || mark < o.LowestPrice {
			o.LowestPrice = mark
			offset, err := trailingOffset(mark, o.TrailingAmount, o.TrailingPercent)
			if err != nil {
				return Order{}, err
			}
			o.TriggerPrice = mark + offset
		}
	}

	o.TriggerCondition = trailingCondition(o.Side)
	if err := e.saveOrder(o); err != nil {
		return Order{}, err
	}
	return o, nil
}

func trailingCondition(side types.Side) types.TriggerCondition {
	if side == types.Short {
		return types.TriggerPriceBelow
	}
	return types.TriggerPriceAbove
}

func trailingOffset(mark, amount, percent uint64) (uint64, error) {
	if percent > 0 {
		return fixedpoint.BpsApply(mark, percent)
	}
	return amount, nil
}
