package ammvault_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"oilperps/internal/ammvault"
	"oilperps/internal/custody"
	"oilperps/internal/store"
	"oilperps/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestVault(t *testing.T) (*ammvault.Vault, *custody.Ledger) {
	t.Helper()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	cust := custody.NewLedger()
	return ammvault.New(s, cust, testLogger()), cust
}

// TestDepositTradePnLWithdraw deposits LP collateral, opens and closes a
// trader position against the vault, and checks PnL settlement back into
// the vault and withdrawal accounting. MaxSkewSpreadBp is zero so the
// quoted spread is the flat base spread throughout.
func TestDepositTradePnLWithdraw(t *testing.T) {
	ctx := context.Background()
	v, cust := newTestVault(t)

	require.NoError(t, v.InitializeVault(ctx, ammvault.VaultParams{
		Commodity:           "OIL",
		MaxExposure:         1_000_000_000_000,
		MaxUtilizationBp:    10_000,
		MaxPositionSize:     1_000_000_000_000,
		BaseSpreadBp:        5,
		MaxSkewSpreadBp:     0,
		TradingFeeBp:        5,
		LpFeeShareBp:        7_000,
		WithdrawalDelaySecs: 3600,
	}))

	cust.Credit("user:alice", 1_000_000_000)
	lp, err := v.Deposit(ctx, "alice", "OIL", 1_000_000_000, 100)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000_000), lp.Shares, "genesis deposit mints 1:1 shares")

	cust.Credit("user:trader", 0)
	pos, err := v.OpenPosition(ctx, ammvault.OpenParams{
		Owner:     "trader",
		Commodity: "OIL",
		Side:      types.Long,
		Size:      100_000_000,
		Oracle:    75_000_000,
		Now:       200,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(75_037_500), pos.EntryPrice)

	// Fund the trader's loss so Close's debit can settle.
	cust.Credit("user:trader", 200_000_000)

	closed, err := v.ClosePosition(ctx, ammvault.CloseParams{
		Owner:  "trader",
		Seq:    pos.Seq,
		Oracle: 74_000_000,
		Now:    300,
	})
	require.NoError(t, err)
	require.Equal(t, types.PositionClosed, closed.Status)

	vaultBalance, err := cust.Balance(ctx, "ammvault:OIL")
	require.NoError(t, err)
	// 1_000_000_000 deposited + 107_450_000 trader loss (vault gain) +
	// 2_590_000 LP fee share = 1_110_040_000.
	require.Equal(t, uint64(1_110_040_000), vaultBalance)
}
