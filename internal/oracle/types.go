package oracle

import "oilperps/pkg/types"

// PriceData is a validated (or simulated) price point for one commodity.
type PriceData struct {
	Commodity      string
	Price          uint64 // 6-decimal fixed point
	Confidence     uint64 // 6-decimal fixed point
	Timestamp      int64  // seconds since epoch
	PriceChange24h float64
	Source         types.PriceSource
	IsValid        bool
}

// OracleStatus summarizes the health of the aggregator as of the last tick.
type OracleStatus struct {
	BreakerTripped bool
	// LastTickAt is the aggregator clock's time when GetStatus was called;
	// the time of the last refresh tick is not recorded.
	LastTickAt     int64
	Commodities    map[string]types.PriceSource
}
