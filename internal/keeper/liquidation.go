package keeper

import (
	"context"
	"time"

	"oilperps/internal/errs"
	"oilperps/internal/ledger"
	"oilperps/internal/metrics"
)

// runLiquidation wakes on cfg.LiquidationTick, fetches the current mark
// for each commodity, scans its Open positions, and liquidates any whose
// margin ratio has fallen below the market's maintenance threshold. A
// retried liquidation on an already-closed position fails cleanly
// (ErrPositionNotOpen) and is not counted as a keeper failure.
func (k *Keeper) runLiquidation(ctx context.Context) {
	tick := k.cfg.LiquidationTick
	if tick <= 0 {
		tick = 10 * time.Second
	}
	policy := backoffPolicy{maxFailures: k.cfg.MaxConsecutiveErrors, backoff: k.cfg.LiquidationBackoff}
	if policy.maxFailures <= 0 {
		policy.maxFailures = 5
	}
	if policy.backoff <= 0 {
		policy.backoff = 60 * time.Second
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sleep := k.liquidationTick(ctx, &policy)
			if sleep > 0 {
				k.logger.Warn("liquidation keeper backing off", "duration", sleep)
				k.sleep(ctx, sleep)
			}
		}
	}
}

func (k *Keeper) liquidationTick(ctx context.Context, policy *backoffPolicy) time.Duration {
	metrics.LiquidationKeeperIterations.Inc()
	now := time.Now().Unix()
	var firstErr error
	for _, commodity := range k.commodities {
		price, ok := k.oracle.GetPrice(commodity)
		if !ok || !price.IsValid {
			k.logger.Warn("no valid oracle price, skipping liquidation scan", "commodity", commodity)
			continue
		}

		positions, err := k.ledger.ListOpenPositions(commodity)
		if err != nil {
			k.logger.Error("list open positions failed", "commodity", commodity, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		for _, pos := range positions {
			ratio, err := ledger.MarginRatio(pos, price.Price)
			if err != nil {
				k.logger.Error("margin ratio failed", "owner", pos.Owner, "seq", pos.Seq, "error", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			market, err := k.ledger.LoadMarketView(commodity)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if ratio >= market.MaintenanceMarginRatioBp {
				continue
			}
			_, err = k.ledger.Liquidate(ctx, ledger.LiquidateParams{
				Caller:         k.callerIdentity,
				Owner:          pos.Owner,
				Seq:            pos.Seq,
				MarkPrice:      price.Price,
				PriceTimestamp: price.Timestamp,
				Now:            now,
			})
			if err != nil {
				if err == errs.ErrNotLiquidatable || err == errs.ErrPositionNotOpen {
					continue
				}
				k.logger.Error("liquidation failed", "owner", pos.Owner, "seq", pos.Seq, "error", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			metrics.LiquidationsExecuted.WithLabelValues(commodity).Inc()
			k.logger.Info("liquidated position", "owner", pos.Owner, "seq", pos.Seq, "commodity", commodity)
		}
	}
	return policy.record(firstErr)
}
