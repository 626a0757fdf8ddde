package view_test

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
	"oilperps/internal/orderbook"
	"oilperps/internal/store"
	"oilperps/internal/view"
	"oilperps/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestGetMarketAndAccount(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	cust := custody.NewLedger()
	l := ledger.New(s, cust, nil, testLogger())
	ob := orderbook.New(s, testLogger())

	require.NoError(t, l.InitializeMarket(ctx, ledger.MarketParams{
		Commodity:                "OIL",
		MaxLeverage:              20_000,
		InitialMarginRatioBp:     1000,
		MaintenanceMarginRatioBp: 500,
		TakerFeeBp:               5,
		MaxOpenInterest:          1_000_000_000_000,
		FundingIntervalSecs:      3600,
	}))
	require.NoError(t, l.InitializeUser(ctx, "alice"))
	cust.Credit("user:alice", 75_000_000)
	cust.Credit("vault:OIL", 1_000_000_000)
	require.NoError(t, l.DepositCollateral(ctx, "alice", "OIL", 75_000_000))
	pos, err := l.OpenPosition(ctx, ledger.OpenPositionParams{
		Owner: "alice", Commodity: "OIL", Side: types.Long,
		Size: 10_000_000, Leverage: 10_000, Collateral: 75_000_000,
		OraclePrice: 75_000_000, Now: 0,
	})
	require.NoError(t, err)

	_, err = ob.PlaceOrder(ctx, orderbook.PlaceParams{
		Owner: "alice", Commodity: "OIL", Side: types.Long,
		Type: types.OrderLimit, Price: 74_000_000, Size: 1_000_000, Now: 0,
	})
	require.NoError(t, err)

	cfg := config.OracleConfig{SimulatedBases: map[string]uint64{"OIL": 75_000_000}}
	agg := oracle.NewAggregator(cfg, testLogger(), func() time.Time { return time.Unix(0, 0) })
	require.NoError(t, agg.RefreshOnce(ctx))

	e := view.New(l, nil, nil, ob, agg)

	commodities, err := e.Commodities()
	require.NoError(t, err)
	require.Equal(t, []string{"OIL"}, commodities)

	snap, err := e.GetMarket("OIL")
	require.NoError(t, err)
	require.Equal(t, "OIL", snap.Market.Commodity)
	require.True(t, snap.HasPrice)
	require.Nil(t, snap.Vault)
	require.Nil(t, snap.Registry)
	require.NotNil(t, snap.Book)

	book, orders, err := e.OrderBookSnapshot("OIL")
	require.NoError(t, err)
	require.Equal(t, uint64(1), book.NextSequence)
	require.Len(t, orders, 1)

	account, err := e.GetAccount("alice")
	require.NoError(t, err)
	require.Len(t, account.Positions, 1)
	require.Equal(t, pos.Seq, account.Positions[0].Seq)

	// The only price is simulated, so the breaker is open.
	status := e.OracleStatus()
	require.True(t, status.BreakerTripped)
}
