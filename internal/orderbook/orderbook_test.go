package orderbook_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"oilperps/internal/orderbook"
	"oilperps/internal/store"
	"oilperps/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEngine(t *testing.T) *orderbook.Engine {
	t.Helper()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	return orderbook.New(s, testLogger())
}

// TestS5OCOTrigger reproduces the OCO take-profit/stop-loss scenario: a
// take-profit ask triggers on a rally, and the stop-loss sibling is
// cancelled.
func TestS5OCOTrigger(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	takeProfit := orderbook.PlaceParams{
		Owner:            "alice",
		Commodity:        "OIL",
		Side:             types.Short,
		Type:             types.OrderTakeProfit,
		Size:             10_000_000,
		TriggerPrice:     80_000_000,
		TriggerCondition: types.TriggerPriceAbove,
		Position:         1,
		Now:              0,
	}
	stopLoss := orderbook.PlaceParams{
		Owner:            "alice",
		Commodity:        "OIL",
		Side:             types.Short,
		Type:             types.OrderStopLoss,
		Size:             10_000_000,
		TriggerPrice:     70_000_000,
		TriggerCondition: types.TriggerPriceBelow,
		Position:         1,
		Now:              0,
	}

	tp, sl, err := e.PlaceOCO(ctx, takeProfit, stopLoss)
	require.NoError(t, err)
	require.True(t, tp.IsOCO)
	require.True(t, sl.IsOCO)
	require.Equal(t, sl.Sequence, tp.LinkedOrder)
	require.Equal(t, tp.Sequence, sl.LinkedOrder)

	triggered, err := e.CheckTrigger(ctx, "alice", tp.Sequence, 80_500_000)
	require.NoError(t, err)
	require.Equal(t, types.OrderTriggered, triggered.Status)

	cancelled, err := e.GetOrder(ctx, "alice", sl.Sequence)
	require.NoError(t, err)
	require.Equal(t, types.OrderCancelled, cancelled.Status)
}

// TestTrailingStopRatchet verifies a long-protecting trailing stop (an ask,
// Side=Short) only moves its trigger in the protective direction as the
// mark rises.
func TestTrailingStopRatchet(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	o, err := e.PlaceOrder(ctx, orderbook.PlaceParams{
		Owner:           "bob",
		Commodity:       "OIL",
		Side:            types.Short,
		Type:            types.OrderTrailingStop,
		Size:            5_000_000,
		TrailingPercent: 500, // 5%
		Now:             0,
	})
	require.NoError(t, err)

	updated, err := e.UpdateTrailingStop(ctx, "bob", o.Sequence, 100_000_000)
	require.NoError(t, err)
	require.Equal(t, uint64(95_000_000), updated.TriggerPrice)

	updated, err = e.UpdateTrailingStop(ctx, "bob", o.Sequence, 90_000_000)
	require.NoError(t, err)
	require.Equal(t, uint64(95_000_000), updated.TriggerPrice, "trigger must not retreat when mark falls")

	updated, err = e.UpdateTrailingStop(ctx, "bob", o.Sequence, 110_000_000)
	require.NoError(t, err)
	require.Equal(t, uint64(104_500_000), updated.TriggerPrice)
}
