package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"oilperps/internal/custody"
	"oilperps/internal/errs"
	"oilperps/internal/store"
)

const (
	kindMarket = "market"
	kindUser   = "user_account"
	kindVault  = "vault"
	kindPos    = "position"
)

// FeeHook is consumed by the fee path (ClosePosition's taker fee) to let
// the referral ledger accrue rewards. Absent a bound referral code it is
// a no-op, so Ledger accepts any implementation — including one that
// never does anything.
type FeeHook interface {
	OnFee(ctx context.Context, user string, fee uint64) error
}

type noopFeeHook struct{}

func (noopFeeHook) OnFee(context.Context, string, uint64) error { return nil }

// Ledger is the perpetuals trading core: it owns no in-memory state of
// its own beyond what store.Store persists, so every call re-reads and
// re-writes its records, giving crash-consistent semantics for free.
type Ledger struct {
	store   *store.Store
	custody custody.Custody
	fees    FeeHook
	logger  *slog.Logger
}

// New creates a Ledger backed by store s and custody c. fees may be nil,
// in which case the fee-accrual hook is a no-op.
func New(s *store.Store, c custody.Custody, fees FeeHook, logger *slog.Logger) *Ledger {
	if fees == nil {
		fees = noopFeeHook{}
	}
	return &Ledger{store: s, custody: c, fees: fees, logger: logger.With("component", "ledger")}
}

func vaultAccount(commodity string) custody.Account {
	return custody.Account("vault:" + commodity)
}

func userAccount(owner string) custody.Account {
	return custody.Account("user:" + owner)
}

func positionKey(owner string, seq uint64) string {
	return fmt.Sprintf("%s:%d", owner, seq)
}

func (l *Ledger) loadMarket(commodity string) (Market, error) {
	var m Market
	if err := l.store.Load(kindMarket, commodity, &m); err != nil {
		return Market{}, err
	}
	return m, nil
}

func (l *Ledger) saveMarket(m Market) error {
	return l.store.Save(kindMarket, m.Commodity, m)
}

func (l *Ledger) loadUser(owner string) (UserAccount, error) {
	var u UserAccount
	if err := l.store.Load(kindUser, owner, &u); err != nil {
		return UserAccount{}, err
	}
	return u, nil
}

func (l *Ledger) saveUser(u UserAccount) error {
	return l.store.Save(kindUser, u.Owner, u)
}

func (l *Ledger) loadVault(commodity string) (Vault, error) {
	var v Vault
	if err := l.store.Load(kindVault, commodity, &v); err != nil {
		return Vault{}, err
	}
	return v, nil
}

func (l *Ledger) saveVault(v Vault) error {
	return l.store.Save(kindVault, v.Commodity, v)
}

func (l *Ledger) loadPosition(owner string, seq uint64) (Position, error) {
	var p Position
	if err := l.store.Load(kindPos, positionKey(owner, seq), &p); err != nil {
		return Position{}, err
	}
	return p, nil
}

func (l *Ledger) savePosition(p Position) error {
	return l.store.Save(kindPos, positionKey(p.Owner, p.Seq), p)
}

// checkedAddU64 adds b to a, returning ErrArithmeticOverflow instead of
// wrapping. Economic quantities must fail on overflow, never saturate.
func checkedAddU64(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, errs.ErrArithmeticOverflow
	}
	return sum, nil
}
