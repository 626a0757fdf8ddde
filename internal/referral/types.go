// Package referral implements the referral-code ledger: code creation,
// binding, fee-driven reward accrual, and reward claims. It piggybacks on
// the fee path in the perpetuals ledger through the FeeHook interface.
package referral

// ReferralCode is owned by its creator and accrues rewards from the fee
// volume of every user bound to it.
type ReferralCode struct {
	Code       string // 8-byte uppercase alphanumeric
	Owner      string
	DiscountBp uint64 // fee discount rate snapshotted into bindings; no fee path here applies it
	RewardBp   uint64 // share of each bound user's fee credited to Owner
	IsActive   bool

	TotalReferred     uint64
	CumulativeVolume  uint64
	CumulativeFees    uint64
	CumulativeRewards uint64
	PendingRewards    uint64

	CreatedAt int64
}

// UserReferral binds a user to exactly one ReferralCode, snapshotting the
// discount rate in effect at bind time so later changes to the code don't
// retroactively move it.
type UserReferral struct {
	User       string
	Code       string
	DiscountBp uint64
	BoundAt    int64
}
