package referral_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"oilperps/internal/custody"
	"oilperps/internal/errs"
	"oilperps/internal/referral"
	"oilperps/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEngine(t *testing.T) (*referral.Engine, *custody.Ledger) {
	t.Helper()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	cust := custody.NewLedger()
	return referral.New(s, cust, "insurance:pool", testLogger()), cust
}

func TestCreateApplyAccrueClaim(t *testing.T) {
	ctx := context.Background()
	e, cust := newTestEngine(t)

	rc, err := e.CreateReferralCode(ctx, "alice", "ALICE001", 1000)
	require.NoError(t, err)
	require.Equal(t, uint64(referral.DefaultDiscountBp), rc.DiscountBp)
	require.Equal(t, uint64(referral.DefaultRewardBp), rc.RewardBp)
	require.True(t, rc.IsActive)

	// self-referral rejected
	_, err = e.ApplyReferralCode(ctx, "alice", "ALICE001", 1001)
	require.ErrorIs(t, err, errs.ErrSelfReferral)

	ur, err := e.ApplyReferralCode(ctx, "bob", "ALICE001", 1002)
	require.NoError(t, err)
	require.Equal(t, uint64(referral.DefaultDiscountBp), ur.DiscountBp)

	// double binding rejected
	_, err = e.ApplyReferralCode(ctx, "bob", "ALICE001", 1003)
	require.ErrorIs(t, err, errs.ErrAlreadyBound)

	// fee accrual: 1_000_000 fee at 1000bp reward = 100_000 pending.
	require.NoError(t, e.OnFee(ctx, "bob", 1_000_000))
	require.NoError(t, e.OnFee(ctx, "bob", 500_000))

	cust.Credit("insurance:pool", 1_000_000_000)

	claimed, err := e.ClaimReferralRewards(ctx, "alice", "ALICE001")
	require.NoError(t, err)
	require.Equal(t, uint64(150_000), claimed)

	balance, err := cust.Balance(ctx, "user:alice")
	require.NoError(t, err)
	require.Equal(t, uint64(150_000), balance)

	// a second claim with nothing pending fails.
	_, err = e.ClaimReferralRewards(ctx, "alice", "ALICE001")
	require.ErrorIs(t, err, errs.ErrNoPendingRewards)
}

func TestCreateReferralCodeValidatesFormat(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	_, err := e.CreateReferralCode(ctx, "alice", "short", 0)
	require.ErrorIs(t, err, errs.ErrInvalidCodeFormat)

	_, err = e.CreateReferralCode(ctx, "alice", "lowercas", 0)
	require.ErrorIs(t, err, errs.ErrInvalidCodeFormat)

	_, err = e.CreateReferralCode(ctx, "alice", "GOODCODE", 0)
	require.NoError(t, err)

	_, err = e.CreateReferralCode(ctx, "bob", "GOODCODE", 0)
	require.ErrorIs(t, err, errs.ErrCodeAlreadyExists)
}

func TestOnFeeNoBindingIsNoop(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	require.NoError(t, e.OnFee(ctx, "nobody", 1_000_000))
}
