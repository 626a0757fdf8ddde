// Package keeper runs the two cooperative background loops that drive
// time-based state transitions the ledger itself never initiates:
// funding accrual and liquidation scanning. Both loops follow the same
// ticker/context/backoff shape, adapted from the bot's risk-manager
// control loop.
package keeper

import (
	"context"
	"log/slog"
	"time"

	"oilperps/internal/config"
	"oilperps/internal/ledger"
	"oilperps/internal/oracle"
)

// Keeper owns the funding and liquidation loops for a fixed set of
// commodities.
type Keeper struct {
	ledger      *ledger.Ledger
	oracle      *oracle.Aggregator
	commodities []string
	cfg         config.KeeperConfig
	logger      *slog.Logger

	callerIdentity string // account credited liquidation rewards
}

// New creates a Keeper over commodities, backed by l and reading prices
// from o.
func New(l *ledger.Ledger, o *oracle.Aggregator, commodities []string, cfg config.KeeperConfig, logger *slog.Logger) *Keeper {
	return &Keeper{
		ledger:         l,
		oracle:         o,
		commodities:    commodities,
		cfg:            cfg,
		logger:         logger.With("component", "keeper"),
		callerIdentity: "keeper",
	}
}

// Run starts both loops and blocks until ctx is cancelled.
func (k *Keeper) Run(ctx context.Context) {
	done := make(chan struct{}, 2)
	go func() { k.runFunding(ctx); done <- struct{}{} }()
	go func() { k.runLiquidation(ctx); done <- struct{}{} }()
	<-done
	<-done
}

// backoffPolicy tracks consecutive failures and reports when to sleep an
// extended backoff window instead of the loop's normal tick.
type backoffPolicy struct {
	consecutiveFailures int
	maxFailures         int
	backoff             time.Duration
}

// record registers the outcome of one tick and returns a non-zero
// duration when the caller should sleep the backoff window instead of
// its normal tick, resetting the counter as it does.
func (p *backoffPolicy) record(err error) time.Duration {
	if err == nil {
		p.consecutiveFailures = 0
		return 0
	}
	p.consecutiveFailures++
	if p.consecutiveFailures >= p.maxFailures {
		p.consecutiveFailures = 0
		return p.backoff
	}
	return 0
}
