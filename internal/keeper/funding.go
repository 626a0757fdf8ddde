package keeper

import (
	"context"
	"errors"
	"time"

	"oilperps/internal/errs"
	"oilperps/internal/metrics"
)

// runFunding wakes on cfg.FundingTick and submits a funding update for
// every commodity. UpdateFunding itself is the authority on whether an
// interval has elapsed; a paused market is skipped without counting
// toward the failure backoff, since it is an expected steady state, not
// an error.
func (k *Keeper) runFunding(ctx context.Context) {
	tick := k.cfg.FundingTick
	if tick <= 0 {
		tick = 60 * time.Second
	}
	policy := backoffPolicy{maxFailures: k.cfg.MaxConsecutiveErrors, backoff: k.cfg.FundingBackoff}
	if policy.maxFailures <= 0 {
		policy.maxFailures = 5
	}
	if policy.backoff <= 0 {
		policy.backoff = 300 * time.Second
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sleep := k.fundingTick(ctx, &policy)
			if sleep > 0 {
				k.logger.Warn("funding keeper backing off", "duration", sleep)
				k.sleep(ctx, sleep)
			}
		}
	}
}

func (k *Keeper) fundingTick(ctx context.Context, policy *backoffPolicy) time.Duration {
	metrics.FundingKeeperIterations.Inc()
	now := time.Now().Unix()
	var firstErr error
	for _, commodity := range k.commodities {
		before, beforeErr := k.ledger.LoadMarketView(commodity)

		market, err := k.ledger.UpdateFunding(ctx, commodity, now)
		if err != nil {
			if errors.Is(err, errs.ErrMarketPaused) {
				continue
			}
			k.logger.Error("funding update failed", "commodity", commodity, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if beforeErr == nil {
			metrics.FundingRateDelta.WithLabelValues(commodity).Set(float64(market.FundingRate - before.FundingRate))
		}
	}
	if firstErr != nil {
		metrics.FundingKeeperErrors.Inc()
	}
	return policy.record(firstErr)
}

func (k *Keeper) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
