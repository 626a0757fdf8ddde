package referral

import (
	"context"
	"fmt"
	"log/slog"

	"oilperps/internal/custody"
	"oilperps/internal/errs"
	"oilperps/internal/fixedpoint"
	"oilperps/internal/store"
)

const (
	kindCode    = "referral_code"
	kindBinding = "user_referral"
)

// Default rates applied to a newly created code absent an override.
const (
	DefaultDiscountBp = 500  // 5% fee discount for bound users
	DefaultRewardBp   = 1000 // 10% of fee credited to the code owner
)

// Engine is the referral ledger: code records plus one binding per user.
// Reward accrual is pure bookkeeping against PendingRewards; a claim
// moves real value out of poolAccount, the account the fee path's
// proceeds are understood to land in.
type Engine struct {
	store       *store.Store
	custody     custody.Custody
	poolAccount custody.Account
	logger      *slog.Logger
}

// New creates an Engine backed by store s and custody c. Reward claims
// draw from poolAccount; callers fund it from wherever fee proceeds
// settle (an insurance fund, a protocol-fee account, and so on).
func New(s *store.Store, c custody.Custody, poolAccount custody.Account, logger *slog.Logger) *Engine {
	return &Engine{store: s, custody: c, poolAccount: poolAccount, logger: logger.With("component", "referral")}
}

func (e *Engine) loadCode(code string) (ReferralCode, error) {
	var rc ReferralCode
	if err := e.store.Load(kindCode, code, &rc); err != nil {
		return ReferralCode{}, err
	}
	return rc, nil
}

func (e *Engine) saveCode(rc ReferralCode) error {
	return e.store.Save(kindCode, rc.Code, rc)
}

func (e *Engine) loadBinding(user string) (UserReferral, error) {
	var ur UserReferral
	if err := e.store.Load(kindBinding, user, &ur); err != nil {
		return UserReferral{}, err
	}
	return ur, nil
}

func (e *Engine) saveBinding(ur UserReferral) error {
	return e.store.Save(kindBinding, ur.User, ur)
}

// validCode reports whether code is exactly 8 printable uppercase
// alphanumeric bytes.
func validCode(code string) bool {
	if len(code) != 8 {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// CreateReferralCode registers a new code owned by owner, with
// DefaultDiscountBp/DefaultRewardBp; the rates cannot be chosen per code.
func (e *Engine) CreateReferralCode(ctx context.Context, owner, code string, now int64) (ReferralCode, error) {
	if !validCode(code) {
		return ReferralCode{}, errs.ErrInvalidCodeFormat
	}
	if _, err := e.loadCode(code); err == nil {
		return ReferralCode{}, errs.ErrCodeAlreadyExists
	} else if err != store.ErrNotFound {
		return ReferralCode{}, err
	}

	rc := ReferralCode{
		Code:       code,
		Owner:      owner,
		DiscountBp: DefaultDiscountBp,
		RewardBp:   DefaultRewardBp,
		IsActive:   true,
		CreatedAt:  now,
	}
	if err := e.saveCode(rc); err != nil {
		return ReferralCode{}, err
	}
	return rc, nil
}

// ApplyReferralCode binds user to code, snapshotting the code's current
// discount rate. Fails on self-referral or if user is already bound.
func (e *Engine) ApplyReferralCode(ctx context.Context, user, code string, now int64) (UserReferral, error) {
	rc, err := e.loadCode(code)
	if err != nil {
		return UserReferral{}, fmt.Errorf("referral: load code %q: %w", code, err)
	}
	if rc.Owner == user {
		return UserReferral{}, errs.ErrSelfReferral
	}
	if _, err := e.loadBinding(user); err == nil {
		return UserReferral{}, errs.ErrAlreadyBound
	} else if err != store.ErrNotFound {
		return UserReferral{}, err
	}

	ur := UserReferral{User: user, Code: code, DiscountBp: rc.DiscountBp, BoundAt: now}
	if err := e.saveBinding(ur); err != nil {
		return UserReferral{}, err
	}

	rc.TotalReferred++
	if err := e.saveCode(rc); err != nil {
		return UserReferral{}, err
	}
	return ur, nil
}

// OnFee implements ledger.FeeHook: it credits reward = fee * code.RewardBp
// / 10000 to the code bound to user, if any. A user with no binding is a
// no-op, not an error.
func (e *Engine) OnFee(ctx context.Context, user string, fee uint64) error {
	ur, err := e.loadBinding(user)
	if err != nil {
		if err == store.ErrNotFound {
			return nil
		}
		return err
	}

	rc, err := e.loadCode(ur.Code)
	if err != nil {
		return err
	}
	if !rc.IsActive {
		return nil
	}

	reward, err := fixedpoint.BpsApply(fee, rc.RewardBp)
	if err != nil {
		return err
	}

	rc.CumulativeFees, err = checkedAddU64(rc.CumulativeFees, fee)
	if err != nil {
		return err
	}
	rc.CumulativeRewards, err = checkedAddU64(rc.CumulativeRewards, reward)
	if err != nil {
		return err
	}
	rc.PendingRewards, err = checkedAddU64(rc.PendingRewards, reward)
	if err != nil {
		return err
	}
	return e.saveCode(rc)
}

// ClaimReferralRewards withdraws a code owner's PendingRewards from the
// fee pool and zeros it. caller must be the code's owner.
func (e *Engine) ClaimReferralRewards(ctx context.Context, caller, code string) (uint64, error) {
	rc, err := e.loadCode(code)
	if err != nil {
		return 0, fmt.Errorf("referral: load code %q: %w", code, err)
	}
	if rc.Owner != caller {
		return 0, errs.ErrUnauthorized
	}
	if rc.PendingRewards == 0 {
		return 0, errs.ErrNoPendingRewards
	}

	amount := rc.PendingRewards
	if err := e.custody.Transfer(ctx, e.poolAccount, custody.Account("user:"+caller), amount); err != nil {
		return 0, err
	}

	rc.PendingRewards = 0
	if err := e.saveCode(rc); err != nil {
		return 0, err
	}
	return amount, nil
}

func checkedAddU64(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, errs.ErrArithmeticOverflow
	}
	return sum, nil
}
