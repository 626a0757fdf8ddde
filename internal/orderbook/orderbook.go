// Package orderbook implements conditional order lifecycle and matching:
// limit/market resting orders plus stop-loss, take-profit, stop-limit, and
// trailing-stop conditional orders, with OCO linkage between sibling
// orders. Persistence and custody idioms mirror the perpetuals ledger.
package orderbook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"oilperps/internal/errs"
	"oilperps/internal/store"
	"oilperps/pkg/types"
)

const (
	kindBook  = "order_book"
	kindOrder = "order"
)

// Engine is the order-book engine: one Book per commodity.
type Engine struct {
	store  *store.Store
	logger *slog.Logger
}

// New creates an Engine backed by store s.
func New(s *store.Store, logger *slog.Logger) *Engine {
	return &Engine{store: s, logger: logger.With("component", "orderbook")}
}

func orderKey(owner string, seq uint64) string {
	return fmt.Sprintf("%s:%d", owner, seq)
}

func (e *Engine) loadBook(commodity string) (Book, error) {
	var b Book
	if err := e.store.Load(kindBook, commodity, &b); err != nil {
		if err == store.ErrNotFound {
			return Book{Commodity: commodity}, nil
		}
		return Book{}, err
	}
	return b, nil
}

func (e *Engine) saveBook(b Book) error {
	return e.store.Save(kindBook, b.Commodity, b)
}

// GetOrder returns the order owned by owner at sequence seq.
func (e *Engine) GetOrder(ctx context.Context, owner string, seq uint64) (Order, error) {
	return e.loadOrder(owner, seq)
}

func (e *Engine) loadOrder(owner string, seq uint64) (Order, error) {
	var o Order
	if err := e.store.Load(kindOrder, orderKey(owner, seq), &o); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (e *Engine) saveOrder(o Order) error {
	return e.store.Save(kindOrder, orderKey(o.Owner, o.Sequence), o)
}

// PlaceParams is the input to PlaceOrder.
type PlaceParams struct {
	Owner     string
	Commodity string

	Side types.Side
	Type types.OrderType

	Price uint64
	Size  uint64

	ExpiresAt int64

	TriggerPrice     uint64
	TriggerCondition types.TriggerCondition

	TrailingAmount  uint64
	TrailingPercent uint64

	ReduceOnly bool
	Position   uint64

	Now int64
}

// validate checks the type-specific invariants from the order placement
// rules: limit/stop-limit orders need a resting price, the three
// trigger-driven types need a trigger price (trailing stop may defer this
// to its first update).
func (p PlaceParams) validate() error {
	if p.Size == 0 {
		return fmt.Errorf("size must be > 0: %w", errs.ErrInvalidSize)
	}
	switch p.Type {
	case types.OrderLimit, types.OrderStopLimit:
		if p.Price == 0 {
			return fmt.Errorf("%s order requires price > 0: %w", p.Type, errs.ErrInvalidPrice)
		}
	}
	switch p.Type {
	case types.OrderStopLoss, types.OrderTakeProfit, types.OrderStopLimit:
		if p.TriggerPrice == 0 {
			return fmt.Errorf("%s order requires trigger_price > 0: %w", p.Type, errs.ErrInvalidTrigger)
		}
	case types.OrderTrailingStop:
		if p.TrailingAmount == 0 && p.TrailingPercent == 0 {
			return fmt.Errorf("trailing stop requires an amount or percent: %w", errs.ErrInvalidTrigger)
		}
	}
	return nil
}

// PlaceOrder admits a new Order, assigning it the book's next monotonic
// sequence number. Conditional orders (non-None trigger condition) never
// touch best_bid/best_ask: they only become live for matching once
// triggered.
func (e *Engine) PlaceOrder(ctx context.Context, p PlaceParams) (Order, error) {
	if err := p.validate(); err != nil {
		return Order{}, err
	}

	book, err := e.loadBook(p.Commodity)
	if err != nil {
		return Order{}, err
	}
	seq := book.NextSequence
	book.NextSequence++
	book.OpenOrderCount++

	cond := p.TriggerCondition
	if cond == "" {
		cond = types.TriggerNone
	}

	o := Order{
		Owner:            p.Owner,
		Commodity:        p.Commodity,
		Sequence:         seq,
		ClientOrderID:    uuid.New().String(),
		Side:             p.Side,
		Type:             p.Type,
		Price:            p.Price,
		Size:             p.Size,
		Status:           types.OrderOpen,
		ExpiresAt:        p.ExpiresAt,
		TriggerPrice:     p.TriggerPrice,
		TriggerCondition: cond,
		TrailingAmount:   p.TrailingAmount,
		TrailingPercent:  p.TrailingPercent,
		ReduceOnly:       p.ReduceOnly,
		Position:         p.Position,
		PlacedAt:         p.Now,
	}
	if p.Type == types.OrderTrailingStop {
		if p.Side == types.Short {
			o.HighestPrice = 0
		} else {
			o.LowestPrice = 0
		}
	}

	if cond == types.TriggerNone && !isConditional(p.Type) {
		updateBestPrices(&book, o)
	}

	if err := e.saveBook(book); err != nil {
		return Order{}, err
	}
	if err := e.saveOrder(o); err != nil {
		return Order{}, err
	}
	return o, nil
}

func updateBestPrices(book *Book, o Order) {
	if o.Side == types.Long {
		if o.Price > book.BestBid {
			book.BestBid = o.Price
		}
	} else {
		if book.BestAsk == 0 || o.Price < book.BestAsk {
			book.BestAsk = o.Price
		}
	}
}

// CancelOrder moves an Open/PartiallyFilled order to Cancelled. If the
// order is one leg of an OCO pair, the sibling is cancelled too.
func (e *Engine) CancelOrder(ctx context.Context, owner string, seq uint64) error {
	o, err := e.loadOrder(owner, seq)
	if err != nil {
		return err
	}
	if !o.IsLive() {
		return errs.ErrPositionNotOpen
	}
	o.Status = types.OrderCancelled
	if err := e.saveOrder(o); err != nil {
		return err
	}
	if err := e.decrementOpenCount(o.Commodity); err != nil {
		return err
	}
	if o.IsOCO {
		sibling, err := e.loadOrder(owner, o.LinkedOrder)
		if err != nil {
			if err == store.ErrNotFound {
				return nil
			}
			return err
		}
		if sibling.IsLive() {
			sibling.Status = types.OrderCancelled
			if err := e.saveOrder(sibling); err != nil {
				return err
			}
			return e.decrementOpenCount(sibling.Commodity)
		}
	}
	return nil
}

func (e *Engine) decrementOpenCount(commodity string) error {
	book, err := e.loadBook(commodity)
	if err != nil {
		return err
	}
	if book.OpenOrderCount > 0 {
		book.OpenOrderCount--
	}
	return e.saveBook(book)
}
