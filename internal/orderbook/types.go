package orderbook

import "oilperps/pkg/types"

// Book holds the per-commodity aggregates the ledger and keepers read:
// best bid/ask and the monotonic sequence counter orders are assigned at
// placement.
type Book struct {
	Commodity      string
	BestBid        uint64
	BestAsk        uint64
	NextSequence   uint64
	OpenOrderCount uint64
}

// Order is one resting or conditional order against a commodity.
type Order struct {
	Owner     string
	Commodity string
	Sequence  uint64

	// ClientOrderID is assigned at placement for idempotent external
	// tracking; it plays no role in book logic.
	ClientOrderID string

	Side types.Side
	Type types.OrderType

	Price      uint64
	Size       uint64
	FilledSize uint64
	Status     types.OrderStatus

	ExpiresAt int64

	TriggerPrice     uint64
	TriggerCondition types.TriggerCondition

	TrailingAmount  uint64
	TrailingPercent uint64
	HighestPrice    uint64
	LowestPrice     uint64

	LinkedOrder uint64
	IsOCO       bool

	ReduceOnly bool
	Position   uint64

	PlacedAt int64
}

// Remaining returns size - filled_size.
func (o Order) Remaining() uint64 {
	if o.FilledSize >= o.Size {
		return 0
	}
	return o.Size - o.FilledSize
}

// IsLive reports whether the order can still fill or trigger.
func (o Order) IsLive() bool {
	return o.Status == types.OrderOpen || o.Status == types.OrderPartiallyFilled
}

// isConditional reports whether the order type triggers off a price level
// rather than resting directly on the book.
func isConditional(t types.OrderType) bool {
	switch t {
	case types.OrderStopLoss, types.OrderTakeProfit, types.OrderStopLimit, types.OrderTrailingStop:
		return true
	default:
		return false
	}
}
