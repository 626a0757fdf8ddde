package mmregistry

import "oilperps/pkg/types"

// Registry holds the global parameters every MarketMaker and quote on a
// commodity must satisfy.
type Registry struct {
	Commodity      string
	MinCollateral  uint64
	MaxSpreadBp    uint64
	MinQuoteSize   uint64
	MaxQuoteSize   uint64
	MaxQuotes      uint64
	MmFeeBp        uint64
	TradingEnabled bool
}

// MarketMaker is one MM's collateral and inventory state against a
// registry. available = deposited - locked is not stored, it is derived.
type MarketMaker struct {
	Owner     string
	Commodity string

	Deposited uint64
	Locked    uint64

	InventorySigned   int64
	AvgInventoryPrice uint64

	ActiveQuotes uint64
	Status       types.MarketMakerStatus
}

// Available returns deposited - locked.
func (m MarketMaker) Available() uint64 {
	if m.Locked > m.Deposited {
		return 0
	}
	return m.Deposited - m.Locked
}

// TwoSidedQuote is the only quote record this registry stores — a single
// bid/ask pair, per the Open Question decision recorded in DESIGN.md.
type TwoSidedQuote struct {
	Owner     string
	Commodity string
	Seq       uint64

	BidPrice     uint64
	BidSize      uint64
	BidRemaining uint64

	AskPrice     uint64
	AskSize      uint64
	AskRemaining uint64

	MinFillSize      uint64
	CollateralLocked uint64
	ExpiresAt        int64
	IsActive         bool
}
