// Package ledger implements the perpetuals trading core: markets, user
// accounts, positions, deposits/withdrawals, position lifecycle, margin
// arithmetic, liquidation, and funding accrual.
package ledger

import "oilperps/pkg/types"

// Market holds one commodity's trading parameters and accrued state. It
// is keyed by its Commodity tag (<=8 bytes).
type Market struct {
	Commodity       string
	CollateralAsset string

	MaxLeverage              uint64 // 3-decimal units, 20000 = 20x
	InitialMarginRatioBp     uint64
	MaintenanceMarginRatioBp uint64
	TakerFeeBp               uint64
	MakerFeeBp               uint64
	LiquidationFeeBp         uint64
	MaxOpenInterest          uint64
	FundingIntervalSecs      int64

	LongOI          uint64
	ShortOI         uint64
	FundingRate     int64 // cumulative, 6-decimal, signed
	LastFundingTime int64
	InsuranceFund   uint64
	IsPaused        bool
}

// UserAccount tracks one owner's free collateral and lifetime aggregates.
type UserAccount struct {
	Owner             string
	CollateralBalance uint64
	RealizedPnL       int64
	NextPositionSeq   uint64
}

// Vault mirrors the custody balance backing one market.
type Vault struct {
	Commodity     string
	TotalDeposits uint64
}

// Position is one owner's open or terminal perpetual position.
type Position struct {
	Owner              string
	Market             string
	Seq                uint64
	Side               types.Side
	Size               uint64
	Collateral         uint64
	EntryPrice         uint64
	Leverage           uint64
	RealizedPnL        int64
	LastFundingPayment int64 // market.FundingRate snapshot at last settlement
	OpenedAt           int64
	LastUpdatedAt      int64
	Status             types.PositionStatus
}
