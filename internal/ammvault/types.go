package ammvault

import "oilperps/pkg/types"

// LpVault is the proprietary AMM's per-commodity liquidity pool: LP share
// accounting, net trader exposure, and the risk/spread parameters that
// govern both.
type LpVault struct {
	Commodity string

	TotalAssets uint64
	TotalShares uint64
	PendingFees uint64

	NetExposure int64
	LongSize    uint64
	ShortSize   uint64

	CumulativePnL  int64
	CumulativeFees uint64

	MaxExposure      uint64
	MaxUtilizationBp uint64
	MaxPositionSize  uint64

	BaseSpreadBp    uint64
	MaxSkewSpreadBp uint64

	TradingFeeBp        uint64
	LpFeeShareBp        uint64
	WithdrawalDelaySecs int64

	IsActive bool
}

// LpPosition is one LP's claim on a vault: shares, the high-water deposit
// cost used to track withdrawal proportions, and the two-phase withdrawal
// request timestamp (0 = none requested).
type LpPosition struct {
	Owner                 string
	Vault                 string
	Shares                uint64
	DepositedAmount       uint64
	DepositedAt           int64
	WithdrawalRequestedAt int64
}

// Position is a trader's exposure against the vault rather than against a
// peer trader — the vault itself is the counterparty, so size held here
// feeds directly into LpVault.NetExposure/LongSize/ShortSize.
type Position struct {
	Owner      string
	Vault      string
	Seq        uint64
	Side       types.Side
	Size       uint64
	EntryPrice uint64
	OpenedAt   int64
	Status     types.PositionStatus
}
