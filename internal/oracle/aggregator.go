// Package oracle implements the price aggregator: a fallback chain from
// a live primary feed down through a backup feed, a short-lived cache,
// and finally a deterministic simulated stub, with staleness/deviation
// validation and a circuit breaker gating whether trading may rely on
// the result.
package oracle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"oilperps/internal/config"
	"oilperps/internal/errs"
	"oilperps/internal/fixedpoint"
	"oilperps/internal/metrics"
	"oilperps/pkg/types"
)

// Clock returns the current time; tests inject a logical clock instead of
// wall time.
type Clock func() time.Time

// Aggregator produces validated PriceData per commodity from the
// fallback chain described in the package doc, and drives a background
// refresh loop.
type Aggregator struct {
	cfg     config.OracleConfig
	primary *PrimaryFeed
	backup  *BackupFeed
	sim     *Simulator
	breaker *Breaker
	logger  *slog.Logger
	clock   Clock

	mu      sync.RWMutex
	cache   map[string]PriceData
	anchors map[string]uint64 // 24h change anchor, seeded once per commodity
	tick    uint64
}

// NewAggregator wires the feed clients from cfg and returns a ready
// Aggregator. clock defaults to time.Now if nil.
func NewAggregator(cfg config.OracleConfig, logger *slog.Logger, clock Clock) *Aggregator {
	if clock == nil {
		clock = time.Now
	}
	return &Aggregator{
		cfg:     cfg,
		primary: NewPrimaryFeed(cfg.PrimaryBaseURL, cfg.RequestTimeout),
		backup:  NewBackupFeed(cfg.BackupBaseURL, cfg.BackupAPIKey, cfg.RequestTimeout),
		sim:     NewSimulator(cfg.SimulatedBases),
		breaker: NewBreaker(),
		logger:  logger.With("component", "oracle"),
		clock:   clock,
		cache:   make(map[string]PriceData),
		anchors: make(map[string]uint64),
	}
}

// Start runs the background refresh loop until ctx is cancelled, ticking
// every cfg.RefreshInterval.
func (a *Aggregator) Start(ctx context.Context) {
	interval := a.cfg.RefreshInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.RefreshOnce(ctx); err != nil {
				a.logger.Warn("refresh tick failed", "error", err)
			}
		}
	}
}

// commodities returns the union of every commodity this aggregator has a
// mapping for (primary, backup, or simulated base).
func (a *Aggregator) commodities() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(c string) {
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	for c := range a.cfg.FeedIDs {
		add(c)
	}
	for c := range a.cfg.BackupSymbols {
		add(c)
	}
	for c := range a.cfg.SimulatedBases {
		add(c)
	}
	return out
}

// RefreshOnce executes one fallback-chain pass across every configured
// commodity and updates the cache. It never returns an error for
// per-commodity fetch failures — those degrade silently to the next
// tier — only for conditions that prevent the tick from running at all.
func (a *Aggregator) RefreshOnce(ctx context.Context) error {
	a.mu.Lock()
	a.tick++
	tick := a.tick
	a.mu.Unlock()

	now := a.clock().Unix()
	resolved := make(map[string]PriceData)

	// Tier 1: primary feed.
	if len(a.cfg.FeedIDs) > 0 {
		raw, err := a.primary.Fetch(ctx, a.cfg.FeedIDs)
		if err != nil {
			a.logger.Warn("primary feed fetch failed", "error", err)
		}
		for commodity, point := range raw {
			resolved[commodity] = PriceData{
				Commodity:  commodity,
				Price:      point.price,
				Confidence: point.confidence,
				Timestamp:  point.publishTime,
				Source:     types.SourcePyth,
				IsValid:    true,
			}
		}
	}

	// Tier 2: backup feed, for anything still missing with a mapping and key.
	for commodity, symbol := range a.cfg.BackupSymbols {
		if _, ok := resolved[commodity]; ok {
			continue
		}
		point, ok, err := a.backup.Fetch(ctx, symbol)
		if err != nil {
			a.logger.Warn("backup feed fetch failed", "commodity", commodity, "error", err)
			continue
		}
		if !ok {
			continue
		}
		resolved[commodity] = PriceData{
			Commodity: commodity,
			Price:     point.price,
			Timestamp: point.publishTime,
			Source:    types.SourceBackup,
			IsValid:   true,
		}
	}

	// Validate tier 1/2 candidates; rejects fall through to cache/simulation.
	accepted := make(map[string]PriceData, len(resolved))
	for commodity, pd := range resolved {
		if err := a.validate(commodity, pd, now); err != nil {
			a.logger.Warn("price rejected", "commodity", commodity, "error", err)
			continue
		}
		accepted[commodity] = pd
	}

	a.mu.Lock()
	for commodity, pd := range accepted {
		a.cache[commodity] = pd
		a.seedAnchor(commodity, pd.Price)
	}

	// Tier 3: cache, for anything still missing and not stale.
	for _, commodity := range a.commodities() {
		if _, ok := accepted[commodity]; ok {
			continue
		}
		if cached, ok := a.cache[commodity]; ok && now-cached.Timestamp < a.cfg.CacheValiditySecs {
			cachedCopy := cached
			cachedCopy.Source = types.SourceCached
			accepted[commodity] = cachedCopy
		}
	}

	// Tier 4: simulated stub, for anything still missing.
	for commodity := range a.cfg.SimulatedBases {
		if _, ok := accepted[commodity]; ok {
			continue
		}
		price, ok := a.sim.Price(commodity, tick)
		if !ok {
			continue
		}
		pd := PriceData{
			Commodity: commodity,
			Price:     price,
			Timestamp: now,
			Source:    types.SourceSimulated,
			IsValid:   true,
		}
		a.cache[commodity] = pd
		a.seedAnchor(commodity, pd.Price)
		accepted[commodity] = pd
	}

	sources := make([]types.PriceSource, 0, len(accepted))
	for commodity, pd := range accepted {
		pd.PriceChange24h = priceChangePct(a.anchors[commodity], pd.Price)
		a.cache[commodity] = pd
		sources = append(sources, pd.Source)
		metrics.OraclePriceSource.WithLabelValues(commodity).Set(metrics.SourceGaugeValue(string(pd.Source)))
	}
	a.mu.Unlock()

	a.breaker.Observe(sources)
	if a.breaker.Tripped() {
		metrics.OracleBreakerTripped.Set(1)
	} else {
		metrics.OracleBreakerTripped.Set(0)
	}
	return nil
}

// seedAnchor records the 24h-change anchor for commodity the first time a
// price is observed for it. The anchor is never rolled afterward (see
// DESIGN.md's Open Question decision on the 24h window).
func (a *Aggregator) seedAnchor(commodity string, price uint64) {
	if _, ok := a.anchors[commodity]; !ok {
		a.anchors[commodity] = price
	}
}

func priceChangePct(anchor, price uint64) float64 {
	if anchor == 0 {
		return 0
	}
	return (float64(price) - float64(anchor)) / float64(anchor) * 100
}

// validate applies the staleness and deviation checks required before a
// fresh primary/backup price may update the cache.
func (a *Aggregator) validate(commodity string, pd PriceData, now int64) error {
	maxStaleness := a.cfg.MaxStalenessSecs
	if maxStaleness == 0 {
		maxStaleness = 60
	}
	if now-pd.Timestamp > maxStaleness {
		return errs.ErrStalePrice
	}

	a.mu.RLock()
	prev, hasPrev := a.cache[commodity]
	a.mu.RUnlock()
	if !hasPrev {
		return nil
	}

	maxDeviation := a.cfg.MaxDeviationBps
	if maxDeviation == 0 {
		maxDeviation = 500
	}
	deviation, err := fixedpoint.DeviationBps(pd.Price, prev.Price)
	if err != nil {
		return err
	}
	if deviation > maxDeviation {
		return errs.ErrDeviationExceeded
	}
	return nil
}

// GetPrice returns the last cached price for commodity, if any.
func (a *Aggregator) GetPrice(commodity string) (PriceData, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	pd, ok := a.cache[commodity]
	return pd, ok
}

// GetAllPrices returns a snapshot of every cached price.
func (a *Aggregator) GetAllPrices() map[string]PriceData {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]PriceData, len(a.cache))
	for k, v := range a.cache {
		out[k] = v
	}
	return out
}

// GetStatus summarizes aggregator health.
func (a *Aggregator) GetStatus() OracleStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	sources := make(map[string]types.PriceSource, len(a.cache))
	for k, v := range a.cache {
		sources[k] = v.Source
	}
	return OracleStatus{
		BreakerTripped: a.breaker.Tripped(),
		LastTickAt:     a.clock().Unix(),
		Commodities:    sources,
	}
}

// IsTradingAllowed reports whether state-changing operations may rely on
// commodity's current price: the breaker must be closed and the price
// must not be Simulated.
func (a *Aggregator) IsTradingAllowed(commodity string) bool {
	if a.breaker.Tripped() {
		return false
	}
	pd, ok := a.GetPrice(commodity)
	if !ok {
		return false
	}
	return pd.Source != types.SourceSimulated
}
