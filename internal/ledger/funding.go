package ledger

import (
	"context"
	"fmt"

	"oilperps/internal/errs"
	"oilperps/internal/fixedpoint"
)

// fundingBaseRate is the 6-decimal bp-of-bp base rate applied to OI
// imbalance each funding interval (100 = 0.01% hourly).
const fundingBaseRate = 100

// fundingSettlement returns the funding payment owed by a position at
// close: -side_sign * size * (rateNow - rateAtOpen) / 1e6. A Long pays
// when the cumulative rate increased; a Short receives (signs reversed).
func fundingSettlement(sideSign int64, size uint64, rateNow, rateAtOpen int64) (int64, error) {
	delta := rateNow - rateAtOpen
	neg := delta < 0
	magnitude := uint64(delta)
	if neg {
		magnitude = uint64(-delta)
	}
	product, err := fixedpoint.MulDiv(size, magnitude, fixedpoint.Scale)
	if err != nil {
		return 0, err
	}
	signed := int64(product)
	if neg {
		signed = -signed
	}
	return -sideSign * signed, nil
}

// fundingImbalance returns (longOI - shortOI) * 1e6 / (longOI + shortOI),
// or 0 if there is no open interest on either side.
func fundingImbalance(longOI, shortOI uint64) (int64, error) {
	sum := longOI + shortOI
	if sum == 0 {
		return 0, nil
	}
	neg := longOI < shortOI
	diff := longOI - shortOI
	if neg {
		diff = shortOI - longOI
	}
	product, err := fixedpoint.MulDiv(diff, fixedpoint.Scale, sum)
	if err != nil {
		return 0, err
	}
	imbalance := int64(product)
	if neg {
		imbalance = -imbalance
	}
	return imbalance, nil
}

// UpdateFunding recomputes and accrues the market's cumulative funding
// rate from its OI imbalance, if at least FundingIntervalSecs have
// elapsed since the last update.
func (l *Ledger) UpdateFunding(ctx context.Context, commodity string, now int64) (Market, error) {
	market, err := l.loadMarket(commodity)
	if err != nil {
		return Market{}, err
	}
	if market.IsPaused {
		return Market{}, fmt.Errorf("update funding on %s: %w", commodity, errs.ErrMarketPaused)
	}
	if now-market.LastFundingTime < market.FundingIntervalSecs {
		return market, nil
	}

	imbalance, err := fundingImbalance(market.LongOI, market.ShortOI)
	if err != nil {
		return Market{}, err
	}
	delta := imbalance * fundingBaseRate / fixedpoint.Scale

	market.FundingRate = fixedpoint.SaturatingAddSigned(market.FundingRate, delta)
	market.LastFundingTime = now

	if err := l.saveMarket(market); err != nil {
		return Market{}, err
	}
	return market, nil
}
