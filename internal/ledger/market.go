package ledger

import (
	"context"
	"fmt"

	"oilperps/internal/errs"
)

// MarketParams is the input to InitializeMarket.
type MarketParams struct {
	Commodity                string
	CollateralAsset          string
	MaxLeverage              uint64
	InitialMarginRatioBp     uint64
	MaintenanceMarginRatioBp uint64
	TakerFeeBp               uint64
	MakerFeeBp               uint64
	LiquidationFeeBp         uint64
	MaxOpenInterest          uint64
	FundingIntervalSecs      int64
}

// InitializeMarket creates a market with its vault. It is idempotent-safe
// only in the sense that a second call for the same commodity overwrites
// the first; callers are expected to call it once per commodity at
// startup.
func (l *Ledger) InitializeMarket(ctx context.Context, p MarketParams) error {
	if p.MaxLeverage == 0 || p.MaxLeverage > 100_000 {
		return fmt.Errorf("market %s: %w", p.Commodity, errs.ErrInvalidLeverage)
	}
	if p.InitialMarginRatioBp <= p.MaintenanceMarginRatioBp || p.MaintenanceMarginRatioBp == 0 {
		return fmt.Errorf("market %s: %w", p.Commodity, errs.ErrInvalidMargins)
	}
	if len(p.Commodity) == 0 || len(p.Commodity) > 8 {
		return fmt.Errorf("market %s: commodity tag must be 1-8 bytes", p.Commodity)
	}

	market := Market{
		Commodity:                p.Commodity,
		CollateralAsset:          p.CollateralAsset,
		MaxLeverage:              p.MaxLeverage,
		InitialMarginRatioBp:     p.InitialMarginRatioBp,
		MaintenanceMarginRatioBp: p.MaintenanceMarginRatioBp,
		TakerFeeBp:               p.TakerFeeBp,
		MakerFeeBp:               p.MakerFeeBp,
		LiquidationFeeBp:         p.LiquidationFeeBp,
		MaxOpenInterest:          p.MaxOpenInterest,
		FundingIntervalSecs:      p.FundingIntervalSecs,
	}
	if err := l.saveMarket(market); err != nil {
		return err
	}
	return l.saveVault(Vault{Commodity: p.Commodity})
}

// InitializeUser creates a zeroed user record. A second call for the same
// owner is a harmless overwrite to zero — callers should guard against
// re-initializing an active account themselves.
func (l *Ledger) InitializeUser(ctx context.Context, owner string) error {
	return l.saveUser(UserAccount{Owner: owner})
}

// DepositCollateral transfers amount from the user's custody account to
// the market vault and credits the user's free collateral balance.
func (l *Ledger) DepositCollateral(ctx context.Context, owner, commodity string, amount uint64) error {
	user, err := l.loadUser(owner)
	if err != nil {
		return err
	}
	vault, err := l.loadVault(commodity)
	if err != nil {
		return err
	}

	newBalance, err := checkedAddU64(user.CollateralBalance, amount)
	if err != nil {
		return err
	}
	newDeposits, err := checkedAddU64(vault.TotalDeposits, amount)
	if err != nil {
		return err
	}

	if err := l.custody.Transfer(ctx, userAccount(owner), vaultAccount(commodity), amount); err != nil {
		return err
	}

	user.CollateralBalance = newBalance
	vault.TotalDeposits = newDeposits
	if err := l.saveUser(user); err != nil {
		return err
	}
	return l.saveVault(vault)
}

// WithdrawCollateral transfers amount from the market vault back to the
// user's custody account, debiting the user's free collateral balance.
func (l *Ledger) WithdrawCollateral(ctx context.Context, owner, commodity string, amount uint64) error {
	user, err := l.loadUser(owner)
	if err != nil {
		return err
	}
	if user.CollateralBalance < amount {
		return fmt.Errorf("withdraw %d for %s: %w", amount, owner, errs.ErrInsufficientCollateral)
	}
	vault, err := l.loadVault(commodity)
	if err != nil {
		return err
	}
	if vault.TotalDeposits < amount {
		return fmt.Errorf("withdraw %d from vault %s: %w", amount, commodity, errs.ErrInsufficientVaultBalance)
	}

	if err := l.custody.Transfer(ctx, vaultAccount(commodity), userAccount(owner), amount); err != nil {
		return err
	}

	user.CollateralBalance -= amount
	vault.TotalDeposits -= amount
	if err := l.saveUser(user); err != nil {
		return err
	}
	return l.saveVault(vault)
}
