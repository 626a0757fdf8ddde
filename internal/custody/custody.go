// Package custody defines the abstract token-transfer boundary the ledger,
// AMM, and MM-registry engines debit and credit through. Real token
// movement (on-chain, off-chain ledger, whatever) lives behind this
// interface — the core never touches custody internals directly.
package custody

import (
	"context"
	"fmt"
	"sync"

	"oilperps/internal/errs"
)

// Account identifies a custody-held balance: a vault, a user's free
// balance, an insurance fund, or an MM's collateral account.
type Account string

// Custody moves value between accounts and reports balances. Every
// debit must be preceded by an accounting credit in the caller's record
// store — Custody itself does not enforce that ordering, it only
// enforces balance ≥ 0.
type Custody interface {
	Transfer(ctx context.Context, from, to Account, amount uint64) error
	Balance(ctx context.Context, account Account) (uint64, error)
}

// Ledger is an in-memory Custody implementation backing tests and any
// dry-run deployment: mutating calls never leave the process, but the
// accounting is still real so tests can assert on it.
type Ledger struct {
	mu       sync.Mutex
	balances map[Account]uint64
}

// NewLedger creates an empty in-memory custody ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[Account]uint64)}
}

// Credit adds amount to account without a matching debit. Used only for
// seeding test fixtures and genesis issuance — never called from engine
// code mid-operation.
func (l *Ledger) Credit(account Account, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
}

// Transfer implements Custody.
func (l *Ledger) Transfer(_ context.Context, from, to Account, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if from == to || amount == 0 {
		return nil
	}
	bal := l.balances[from]
	if bal < amount {
		return fmt.Errorf("custody: transfer %d from %q (balance %d): %w", amount, from, bal, errs.ErrInsufficientVaultBalance)
	}
	l.balances[from] = bal - amount
	l.balances[to] += amount
	return nil
}

// Balance implements Custody.
func (l *Ledger) Balance(_ context.Context, account Account) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}
