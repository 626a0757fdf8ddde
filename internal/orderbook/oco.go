package orderbook

import (
	"context"

	"oilperps/internal/store"
	"oilperps/pkg/types"
)

// PlaceOCO places two orders as a linked One-Cancels-Other pair: when
// either fills or triggers, ExecuteOCOCancel moves the other to Cancelled.
func (e *Engine) PlaceOCO(ctx context.Context, primary, secondary PlaceParams) (Order, Order, error) {
	a, err := e.PlaceOrder(ctx, primary)
	if err != nil {
		return Order{}, Order{}, err
	}
	b, err := e.PlaceOrder(ctx, secondary)
	if err != nil {
		return Order{}, Order{}, err
	}

	a.IsOCO = true
	a.LinkedOrder = b.Sequence
	b.IsOCO = true
	b.LinkedOrder = a.Sequence

	if err := e.saveOrder(a); err != nil {
		return Order{}, Order{}, err
	}
	if err := e.saveOrder(b); err != nil {
		return Order{}, Order{}, err
	}
	return a, b, nil
}

// ExecuteOCOCancel moves the order linked to (owner, seq) from
// Open/PartiallyFilled to Cancelled. A no-op if the order is not OCO, has
// no live sibling, or the sibling is already terminal.
func (e *Engine) ExecuteOCOCancel(ctx context.Context, owner string, seq uint64) error {
	o, err := e.loadOrder(owner, seq)
	if err != nil {
		return err
	}
	if !o.IsOCO {
		return nil
	}
	sibling, err := e.loadOrder(owner, o.LinkedOrder)
	if err != nil {
		if err == store.ErrNotFound {
			return nil
		}
		return err
	}
	if !sibling.IsLive() {
		return nil
	}
	sibling.Status = types.OrderCancelled
	if err := e.saveOrder(sibling); err != nil {
		return err
	}
	return e.decrementOpenCount(sibling.Commodity)
}
