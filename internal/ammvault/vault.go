// Package ammvault implements the proprietary AMM: a single LP-funded
// vault per commodity that quotes skew-aware prices against its own
// exposure instead of matching peer orders, mirroring the perpetuals
// ledger's persistence and custody idioms but settling trader PnL against
// pooled LP capital rather than a peer position.
package ammvault

import (
	"context"
	"fmt"
	"log/slog"

	"oilperps/internal/custody"
	"oilperps/internal/errs"
	"oilperps/internal/store"
)

const (
	kindVault     = "amm_vault"
	kindLp        = "amm_lp_position"
	kindPos       = "amm_position"
	kindTraderSeq = "amm_trader_seq"
)

// Vault is the prop-AMM engine: one LpVault per commodity, keyed the same
// way the ledger keys its Market records.
type Vault struct {
	store   *store.Store
	custody custody.Custody
	logger  *slog.Logger
}

// New creates a Vault engine backed by store s and custody c.
func New(s *store.Store, c custody.Custody, logger *slog.Logger) *Vault {
	return &Vault{store: s, custody: c, logger: logger.With("component", "ammvault")}
}

func vaultAccount(commodity string) custody.Account {
	return custody.Account("ammvault:" + commodity)
}

func lpAccount(owner string) custody.Account {
	return custody.Account("user:" + owner)
}

// protocolAccount holds the trading-fee remainder not shared with LPs —
// outside the vault per the PnL-settlement design.
func protocolAccount() custody.Account {
	return custody.Account("protocol:fees")
}

func lpKey(owner, vault string) string {
	return owner + ":" + vault
}

func posKey(owner string, seq uint64) string {
	return fmt.Sprintf("%s:%d", owner, seq)
}

type traderSeq struct {
	Owner string
	Next  uint64
}

func (v *Vault) loadVault(commodity string) (LpVault, error) {
	var lv LpVault
	if err := v.store.Load(kindVault, commodity, &lv); err != nil {
		return LpVault{}, err
	}
	return lv, nil
}

func (v *Vault) saveVault(lv LpVault) error {
	return v.store.Save(kindVault, lv.Commodity, lv)
}

func (v *Vault) loadLp(owner, vault string) (LpPosition, error) {
	var lp LpPosition
	if err := v.store.Load(kindLp, lpKey(owner, vault), &lp); err != nil {
		return LpPosition{}, err
	}
	return lp, nil
}

func (v *Vault) saveLp(lp LpPosition) error {
	return v.store.Save(kindLp, lpKey(lp.Owner, lp.Vault), lp)
}

func (v *Vault) loadPos(owner string, seq uint64) (Position, error) {
	var p Position
	if err := v.store.Load(kindPos, posKey(owner, seq), &p); err != nil {
		return Position{}, err
	}
	return p, nil
}

func (v *Vault) savePos(p Position) error {
	return v.store.Save(kindPos, posKey(p.Owner, p.Seq), p)
}

func (v *Vault) nextSeq(owner string) (uint64, error) {
	var ts traderSeq
	err := v.store.Load(kindTraderSeq, owner, &ts)
	if err != nil {
		if err != store.ErrNotFound {
			return 0, err
		}
		ts = traderSeq{Owner: owner}
	}
	seq := ts.Next
	ts.Next++
	if err := v.store.Save(kindTraderSeq, owner, ts); err != nil {
		return 0, err
	}
	return seq, nil
}

// VaultParams is the input to InitializeVault.
type VaultParams struct {
	Commodity           string
	MaxExposure         uint64
	MaxUtilizationBp    uint64
	MaxPositionSize     uint64
	BaseSpreadBp        uint64
	MaxSkewSpreadBp     uint64
	TradingFeeBp        uint64
	LpFeeShareBp        uint64
	WithdrawalDelaySecs int64
}

// InitializeVault creates an empty, active LpVault for a commodity.
func (v *Vault) InitializeVault(ctx context.Context, p VaultParams) error {
	if p.LpFeeShareBp > 10_000 {
		return fmt.Errorf("vault %s: lp fee share exceeds 10000 bp: %w", p.Commodity, errs.ErrInvalidSpread)
	}
	lv := LpVault{
		Commodity:           p.Commodity,
		MaxExposure:         p.MaxExposure,
		MaxUtilizationBp:    p.MaxUtilizationBp,
		MaxPositionSize:     p.MaxPositionSize,
		BaseSpreadBp:        p.BaseSpreadBp,
		MaxSkewSpreadBp:     p.MaxSkewSpreadBp,
		TradingFeeBp:        p.TradingFeeBp,
		LpFeeShareBp:        p.LpFeeShareBp,
		WithdrawalDelaySecs: p.WithdrawalDelaySecs,
		IsActive:            true,
	}
	return v.saveVault(lv)
}
