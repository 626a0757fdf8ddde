package mmregistry_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"oilperps/internal/custody"
	"oilperps/internal/mmregistry"
	"oilperps/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEngine(t *testing.T) (*mmregistry.Engine, *custody.Ledger) {
	t.Helper()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	cust := custody.NewLedger()
	return mmregistry.New(s, cust, testLogger()), cust
}

// TestQuoteFillUpdatesInventory posts a two-sided quote, fills part of the
// bid leg, and checks the remaining size, the taker's payout, and the MM's
// resulting inventory and average price.
func TestQuoteFillUpdatesInventory(t *testing.T) {
	ctx := context.Background()
	e, cust := newTestEngine(t)

	require.NoError(t, e.InitializeRegistry(ctx, mmregistry.RegistryParams{
		Commodity:      "OIL",
		MinCollateral:  1,
		MaxSpreadBp:    50,
		MinQuoteSize:   1_000_000,
		MaxQuoteSize:   1_000_000_000,
		MaxQuotes:      10,
		MmFeeBp:        5,
		TradingEnabled: true,
	}))
	require.NoError(t, e.RegisterMM(ctx, "mm1", "OIL"))

	cust.Credit("user:mm1", 1_000_000_000)
	mm, err := e.DepositCollateral(ctx, "mm1", "OIL", 1_000_000_000)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000_000), mm.Deposited)

	quote, err := e.PostQuote(ctx, mmregistry.PostQuoteParams{
		Owner:       "mm1",
		Commodity:   "OIL",
		BidPrice:    75_000_000,
		BidSize:     50_000_000,
		AskPrice:    75_100_000,
		AskSize:     50_000_000,
		MinFillSize: 1_000_000,
		Now:         0,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(375_500_000), quote.CollateralLocked)

	cust.Credit("user:taker", 0)
	filled, err := e.FillQuote(ctx, mmregistry.FillParams{
		Owner: "mm1",
		Seq:   quote.Seq,
		Taker: "taker",
		IsBuy: false,
		Size:  10_000_000,
		Now:   10,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(40_000_000), filled.BidRemaining)

	takerBalance, err := cust.Balance(ctx, "user:taker")
	require.NoError(t, err)
	require.Equal(t, uint64(749_625_000), takerBalance)

	mm, err = e.GetMarketMaker("mm1", "OIL")
	require.NoError(t, err)
	require.Equal(t, int64(10_000_000), mm.InventorySigned)
	require.Equal(t, uint64(75_000_000), mm.AvgInventoryPrice)
}

// TestUpdateQuoteResizesRemainingAndCollateral fills part of a quote, then
// resizes both legs, and checks that the new remaining sizes carry over the
// already-filled amount and that only the incremental collateral needed to
// be locked.
func TestUpdateQuoteResizesRemainingAndCollateral(t *testing.T) {
	ctx := context.Background()
	e, cust := newTestEngine(t)

	require.NoError(t, e.InitializeRegistry(ctx, mmregistry.RegistryParams{
		Commodity:      "OIL",
		MinCollateral:  1,
		MaxSpreadBp:    50,
		MinQuoteSize:   1_000_000,
		MaxQuoteSize:   1_000_000_000,
		MaxQuotes:      10,
		MmFeeBp:        5,
		TradingEnabled: true,
	}))
	require.NoError(t, e.RegisterMM(ctx, "mm1", "OIL"))

	cust.Credit("user:mm1", 1_000_000_000)
	_, err := e.DepositCollateral(ctx, "mm1", "OIL", 1_000_000_000)
	require.NoError(t, err)

	quote, err := e.PostQuote(ctx, mmregistry.PostQuoteParams{
		Owner:       "mm1",
		Commodity:   "OIL",
		BidPrice:    75_000_000,
		BidSize:     50_000_000,
		AskPrice:    75_100_000,
		AskSize:     50_000_000,
		MinFillSize: 1_000_000,
		Now:         0,
	})
	require.NoError(t, err)

	// notional = 10_000_000 * 75_100_000 / 1e6 = 751_000_000; fee at 5bp =
	// 375_500; the taker pays notional + fee.
	cust.Credit("user:taker", 751_375_500)
	quote, err = e.FillQuote(ctx, mmregistry.FillParams{
		Owner: "mm1",
		Seq:   quote.Seq,
		Taker: "taker",
		IsBuy: true,
		Size:  10_000_000,
		Now:   10,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(40_000_000), quote.AskRemaining)
	require.Equal(t, uint64(375_000_000), quote.CollateralLocked)

	updated, err := e.UpdateQuote(ctx, mmregistry.UpdateQuoteParams{
		Owner:    "mm1",
		Seq:      quote.Seq,
		BidPrice: 75_000_000,
		BidSize:  60_000_000,
		AskPrice: 75_100_000,
		AskSize:  50_000_000,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(60_000_000), updated.BidRemaining, "bid was untouched by the fill, so it simply carries the new size")
	require.Equal(t, uint64(40_000_000), updated.AskRemaining, "ask keeps the 10_000_000 already filled")
	require.Equal(t, uint64(450_000_000), updated.CollateralLocked)

	mm, err := e.GetMarketMaker("mm1", "OIL")
	require.NoError(t, err)
	require.Equal(t, uint64(450_000_000), mm.Locked)
}
