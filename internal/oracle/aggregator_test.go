package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"oilperps/internal/config"
	"oilperps/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func primaryServer(t *testing.T, price string, expo int32, publishTime int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"parsed":[{"id":"0xoil","price":{"price":%q,"conf":"1000","expo":%d,"publish_time":%d}}]}`,
			price, expo, publishTime)
	}))
}

func TestAggregatorPrimaryTier(t *testing.T) {
	srv := primaryServer(t, "75000000", -6, 1000)
	defer srv.Close()

	clock := func() time.Time { return time.Unix(1030, 0) }
	cfg := config.OracleConfig{
		PrimaryBaseURL:   srv.URL,
		FeedIDs:          map[string]string{"OIL": "0xoil"},
		MaxStalenessSecs: 60,
		MaxDeviationBps:  500,
	}
	agg := NewAggregator(cfg, testLogger(), clock)

	if err := agg.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("RefreshOnce: %v", err)
	}

	pd, ok := agg.GetPrice("OIL")
	if !ok {
		t.Fatal("expected OIL price")
	}
	if pd.Source != types.SourcePyth {
		t.Fatalf("source = %v, want Pyth", pd.Source)
	}
	if pd.Price != 75_000_000 {
		t.Fatalf("price = %d, want 75000000", pd.Price)
	}
	if !agg.IsTradingAllowed("OIL") {
		t.Fatal("expected trading allowed on live primary price")
	}
}

func TestAggregatorRejectsStalePrice(t *testing.T) {
	srv := primaryServer(t, "75000000", -6, 0)
	defer srv.Close()

	clock := func() time.Time { return time.Unix(1_000_000, 0) }
	cfg := config.OracleConfig{
		PrimaryBaseURL:   srv.URL,
		FeedIDs:          map[string]string{"OIL": "0xoil"},
		MaxStalenessSecs: 60,
	}
	agg := NewAggregator(cfg, testLogger(), clock)

	if err := agg.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("RefreshOnce: %v", err)
	}
	if _, ok := agg.GetPrice("OIL"); ok {
		t.Fatal("expected stale price to be rejected, not cached")
	}
}

func TestAggregatorFallsBackToSimulated(t *testing.T) {
	cfg := config.OracleConfig{
		PrimaryBaseURL:   "http://127.0.0.1:0",
		MaxStalenessSecs: 60,
		SimulatedBases:   map[string]uint64{"NATGAS": 3_000_000},
	}
	agg := NewAggregator(cfg, testLogger(), func() time.Time { return time.Unix(1000, 0) })

	if err := agg.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("RefreshOnce: %v", err)
	}

	pd, ok := agg.GetPrice("NATGAS")
	if !ok {
		t.Fatal("expected simulated NATGAS price")
	}
	if pd.Source != types.SourceSimulated {
		t.Fatalf("source = %v, want Simulated", pd.Source)
	}
	if agg.IsTradingAllowed("NATGAS") {
		t.Fatal("simulated price must never authorize trading")
	}
}

func TestAggregatorCircuitBreakerTripsOnAllSimulated(t *testing.T) {
	cfg := config.OracleConfig{
		PrimaryBaseURL:   "http://127.0.0.1:0",
		MaxStalenessSecs: 60,
		SimulatedBases:   map[string]uint64{"NATGAS": 3_000_000},
	}
	agg := NewAggregator(cfg, testLogger(), func() time.Time { return time.Unix(1000, 0) })

	if err := agg.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("RefreshOnce: %v", err)
	}

	status := agg.GetStatus()
	if !status.BreakerTripped {
		t.Fatal("expected breaker tripped when only simulated prices are available")
	}
}

func TestAggregatorCircuitBreakerRecoversOnNextTick(t *testing.T) {
	srv := primaryServer(t, "75000000", -6, 1000)
	defer srv.Close()

	clock := func() time.Time { return time.Unix(1030, 0) }
	cfg := config.OracleConfig{
		PrimaryBaseURL:   srv.URL,
		MaxStalenessSecs: 60,
		SimulatedBases:   map[string]uint64{"NATGAS": 3_000_000},
	}
	agg := NewAggregator(cfg, testLogger(), clock)

	// First tick has no feed IDs configured, so only NATGAS resolves, and
	// only via the simulated tier — the breaker must trip.
	if err := agg.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("RefreshOnce 1: %v", err)
	}
	if !agg.GetStatus().BreakerTripped {
		t.Fatal("expected breaker tripped after an all-simulated tick")
	}

	// Second tick resolves OIL from the live primary feed; the breaker
	// must re-probe and close on this very next Observe call, not 60
	// seconds later.
	agg.cfg.FeedIDs = map[string]string{"OIL": "0xoil"}
	if err := agg.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("RefreshOnce 2: %v", err)
	}
	if agg.GetStatus().BreakerTripped {
		t.Fatal("expected breaker to recover on the next tick with a live price")
	}
}

func TestAggregatorRejectsDeviation(t *testing.T) {
	var price string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"parsed":[{"id":"0xoil","price":{"price":%q,"conf":"1000","expo":-6,"publish_time":1000}}]}`, price)
	}))
	defer srv.Close()

	clock := func() time.Time { return time.Unix(1010, 0) }
	cfg := config.OracleConfig{
		PrimaryBaseURL:   srv.URL,
		FeedIDs:          map[string]string{"OIL": "0xoil"},
		MaxStalenessSecs: 3600,
		MaxDeviationBps:  500,
	}
	agg := NewAggregator(cfg, testLogger(), clock)

	price = "75000000"
	if err := agg.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("RefreshOnce 1: %v", err)
	}

	// A 20% jump exceeds the 5% deviation bound and must be rejected,
	// leaving the previously cached price in place.
	price = "90000000"
	if err := agg.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("RefreshOnce 2: %v", err)
	}

	pd, ok := agg.GetPrice("OIL")
	if !ok {
		t.Fatal("expected OIL price still cached")
	}
	if pd.Price != 75_000_000 {
		t.Fatalf("price = %d, want unchanged 75000000 after deviation rejection", pd.Price)
	}
}
