package keeper

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"oilperps/internal/config"
	"oilperps/internal/custody"
	"oilperps/internal/ledger"
	"oilperps/internal/oracle"
	"oilperps/internal/store"
	"oilperps/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestLiquidationTickLiquidatesUnderMargined(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	cust := custody.NewLedger()
	l := ledger.New(s, cust, nil, testLogger())

	require.NoError(t, l.InitializeMarket(ctx, ledger.MarketParams{
		Commodity:                "OIL",
		CollateralAsset:          "USDC",
		MaxLeverage:              20_000,
		InitialMarginRatioBp:     500,
		MaintenanceMarginRatioBp: 300,
		TakerFeeBp:               5,
		MaxOpenInterest:          1_000_000_000_000,
		FundingIntervalSecs:      3600,
	}))
	require.NoError(t, l.InitializeUser(ctx, "alice"))
	// notional = 1_000_000 * 75_000_000 / 1e6 = 75_000_000; at 500bp
	// initial margin that requires 3_750_000 of collateral.
	const collateral = 4_000_000
	cust.Credit("user:alice", collateral)
	cust.Credit("vault:OIL", 1_000_000_000)
	require.NoError(t, l.DepositCollateral(ctx, "alice", "OIL", collateral))

	pos, err := l.OpenPosition(ctx, ledger.OpenPositionParams{
		Owner:       "alice",
		Commodity:   "OIL",
		Side:        types.Long,
		Size:        1_000_000,
		Leverage:    20,
		Collateral:  collateral,
		OraclePrice: 75_000_000,
		Now:         0,
	})
	require.NoError(t, err)

	cfg := config.OracleConfig{SimulatedBases: map[string]uint64{"OIL": 68_000_000}}
	// Wall clock, like the keeper itself: Liquidate rejects a price more
	// than 60s older than the keeper's time.Now().
	agg := oracle.NewAggregator(cfg, testLogger(), nil)
	require.NoError(t, agg.RefreshOnce(ctx))

	k := New(l, agg, []string{"OIL"}, config.KeeperConfig{MaxConsecutiveErrors: 5, FundingBackoff: time.Second, LiquidationBackoff: time.Second}, testLogger())

	policy := backoffPolicy{maxFailures: 5, backoff: time.Second}
	k.liquidationTick(ctx, &policy)

	got, err := l.GetPosition("alice", pos.Seq)
	require.NoError(t, err)
	require.Equal(t, types.PositionLiquidated, got.Status)
}

func TestFundingTickAccruesAfterInterval(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	cust := custody.NewLedger()
	l := ledger.New(s, cust, nil, testLogger())

	require.NoError(t, l.InitializeMarket(ctx, ledger.MarketParams{
		Commodity:                "OIL",
		CollateralAsset:          "USDC",
		MaxLeverage:              20_000,
		InitialMarginRatioBp:     500,
		MaintenanceMarginRatioBp: 300,
		TakerFeeBp:               5,
		MaxOpenInterest:          1_000_000_000_000,
		FundingIntervalSecs:      0,
	}))
	require.NoError(t, l.InitializeUser(ctx, "alice"))
	// notional = 1_000_000 * 75_000_000 / 1e6 = 75_000_000; at 500bp
	// initial margin that requires 3_750_000 of collateral.
	const collateral = 4_000_000
	cust.Credit("user:alice", collateral)
	cust.Credit("vault:OIL", 1_000_000_000)
	require.NoError(t, l.DepositCollateral(ctx, "alice", "OIL", collateral))
	_, err = l.OpenPosition(ctx, ledger.OpenPositionParams{
		Owner:       "alice",
		Commodity:   "OIL",
		Side:        types.Long,
		Size:        1_000_000,
		Leverage:    10,
		Collateral:  collateral,
		OraclePrice: 75_000_000,
		Now:         0,
	})
	require.NoError(t, err)

	agg := oracle.NewAggregator(config.OracleConfig{}, testLogger(), nil)
	k := New(l, agg, []string{"OIL"}, config.KeeperConfig{MaxConsecutiveErrors: 5}, testLogger())

	policy := backoffPolicy{maxFailures: 5, backoff: time.Second}
	k.fundingTick(ctx, &policy)

	market, err := l.LoadMarketView("OIL")
	require.NoError(t, err)
	require.NotEqual(t, int64(0), market.LastFundingTime)
}
