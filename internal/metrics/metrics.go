// Package metrics exposes Prometheus counters/gauges for the keeper
// loops, oracle fallback chain, and liquidation/funding activity.
// Metrics are package-level vars registered in init() and served by the
// HTTP handler started in cmd/keeperd's main.go at /metrics (Prometheus
// text exposition format).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	FundingKeeperIterations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "oilperps_funding_keeper_iterations_total",
			Help: "Funding keeper loop iterations.",
		},
	)

	FundingKeeperErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "oilperps_funding_keeper_errors_total",
			Help: "Funding keeper consecutive-failure events.",
		},
	)

	LiquidationKeeperIterations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "oilperps_liquidation_keeper_iterations_total",
			Help: "Liquidation keeper loop iterations.",
		},
	)

	LiquidationsExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oilperps_liquidations_total",
			Help: "Positions liquidated, labeled by market.",
		},
		[]string{"market"},
	)

	FundingRateDelta = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "oilperps_funding_rate_delta",
			Help: "Last applied funding_rate delta per market (6-decimal fixed point).",
		},
		[]string{"market"},
	)

	OracleBreakerTripped = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "oilperps_oracle_breaker_tripped",
			Help: "1 when the oracle circuit breaker is open, 0 when closed.",
		},
	)

	OraclePriceSource = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "oilperps_oracle_price_source",
			Help: "Last observed price source per commodity (0=Pyth,1=Backup,2=Cached,3=Simulated).",
		},
		[]string{"commodity"},
	)
)

func init() {
	prometheus.MustRegister(
		FundingKeeperIterations,
		FundingKeeperErrors,
		LiquidationKeeperIterations,
		LiquidationsExecuted,
		FundingRateDelta,
		OracleBreakerTripped,
		OraclePriceSource,
	)
}

// SourceGaugeValue maps a types.PriceSource to the numeric value exposed
// by OraclePriceSource.
func SourceGaugeValue(source string) float64 {
	switch source {
	case "PYTH":
		return 0
	case "BACKUP":
		return 1
	case "CACHED":
		return 2
	case "SIMULATED":
		return 3
	default:
		return -1
	}
}
