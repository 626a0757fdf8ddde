package ammvault

import (
	"context"
	"fmt"

	"oilperps/internal/errs"
	"oilperps/internal/fixedpoint"
	"oilperps/internal/store"
)

// genesisShareValue is the share price (6-dec) used when a vault has no
// shares outstanding yet.
const genesisShareValue = fixedpoint.Scale

// ShareValue returns (total_assets + unrealized_pnl) * 1e6 / total_shares,
// falling back to genesis value at zero shares.
func ShareValue(lv LpVault, unrealizedPnL int64) (uint64, error) {
	if lv.TotalShares == 0 {
		return genesisShareValue, nil
	}
	assets := int64(lv.TotalAssets) + unrealizedPnL
	if assets < 0 {
		return 0, nil
	}
	return fixedpoint.MulDiv(uint64(assets), fixedpoint.Scale, lv.TotalShares)
}

// Deposit mints shares for owner at the current share value and pulls
// amount from the owner's custody account into the vault.
func (v *Vault) Deposit(ctx context.Context, owner, commodity string, amount uint64, now int64) (LpPosition, error) {
	lv, err := v.loadVault(commodity)
	if err != nil {
		return LpPosition{}, err
	}
	if !lv.IsActive {
		return LpPosition{}, fmt.Errorf("vault %s: %w", commodity, errs.ErrMarketPaused)
	}
	shareValue, err := ShareValue(lv, 0)
	if err != nil {
		return LpPosition{}, err
	}
	minted, err := fixedpoint.MulDiv(amount, fixedpoint.Scale, shareValue)
	if err != nil {
		return LpPosition{}, err
	}

	if err := v.custody.Transfer(ctx, lpAccount(owner), vaultAccount(commodity), amount); err != nil {
		return LpPosition{}, err
	}

	lv.TotalAssets += amount
	lv.TotalShares += minted
	if err := v.saveVault(lv); err != nil {
		return LpPosition{}, err
	}

	lp, err := v.loadLp(owner, commodity)
	if err != nil {
		if err != store.ErrNotFound {
			return LpPosition{}, err
		}
		lp = LpPosition{Owner: owner, Vault: commodity}
	}
	lp.Shares += minted
	lp.DepositedAmount += amount
	lp.DepositedAt = now
	if err := v.saveLp(lp); err != nil {
		return LpPosition{}, err
	}
	return lp, nil
}

// RequestWithdrawal starts the two-phase withdrawal timer for an LP
// position. Fails if already requested or the position holds no shares.
func (v *Vault) RequestWithdrawal(ctx context.Context, owner, commodity string, now int64) error {
	lp, err := v.loadLp(owner, commodity)
	if err != nil {
		return err
	}
	if lp.Shares == 0 {
		return fmt.Errorf("lp %s/%s: %w", owner, commodity, errs.ErrInsufficientAvailable)
	}
	if lp.WithdrawalRequestedAt != 0 {
		return fmt.Errorf("lp %s/%s: withdrawal already requested: %w", owner, commodity, errs.ErrPositionNotOpen)
	}
	lp.WithdrawalRequestedAt = now
	return v.saveLp(lp)
}

// Withdraw burns shares and returns their asset value to the owner, once
// the withdrawal delay has elapsed.
func (v *Vault) Withdraw(ctx context.Context, owner, commodity string, shares uint64, now int64) (uint64, error) {
	lv, err := v.loadVault(commodity)
	if err != nil {
		return 0, err
	}
	lp, err := v.loadLp(owner, commodity)
	if err != nil {
		return 0, err
	}
	if lp.WithdrawalRequestedAt == 0 {
		return 0, fmt.Errorf("lp %s/%s: %w", owner, commodity, errs.ErrWithdrawalNotRequested)
	}
	if now < lp.WithdrawalRequestedAt+lv.WithdrawalDelaySecs {
		return 0, fmt.Errorf("lp %s/%s: %w", owner, commodity, errs.ErrWithdrawalDelayNotElapsed)
	}
	if shares > lp.Shares {
		return 0, fmt.Errorf("withdraw %d exceeds held shares %d: %w", shares, lp.Shares, errs.ErrInsufficientAvailable)
	}

	shareValue, err := ShareValue(lv, 0)
	if err != nil {
		return 0, err
	}
	assets, err := fixedpoint.MulDiv(shares, shareValue, fixedpoint.Scale)
	if err != nil {
		return 0, err
	}
	if assets > lv.TotalAssets {
		return 0, fmt.Errorf("vault %s: %w", commodity, errs.ErrInsufficientVaultBalance)
	}

	if err := v.custody.Transfer(ctx, vaultAccount(commodity), lpAccount(owner), assets); err != nil {
		return 0, err
	}

	proportion, err := fixedpoint.MulDiv(lp.DepositedAmount, shares, lp.Shares)
	if err != nil {
		return 0, err
	}

	lv.TotalAssets -= assets
	lv.TotalShares -= shares
	if err := v.saveVault(lv); err != nil {
		return 0, err
	}

	lp.Shares -= shares
	lp.DepositedAmount -= proportion
	lp.WithdrawalRequestedAt = 0
	if err := v.saveLp(lp); err != nil {
		return 0, err
	}
	return assets, nil
}
