// Package mmregistry implements the market-maker registry: MM collateral
// accounts post two-sided quotes backed by locked collateral, and takers
// fill against those quotes. Persistence and custody idioms mirror the
// perpetuals ledger.
package mmregistry

import (
	"context"
	"fmt"
	"log/slog"

	"oilperps/internal/custody"
	"oilperps/internal/errs"
	"oilperps/internal/store"
	"oilperps/pkg/types"
)

const (
	kindRegistry = "mm_registry"
	kindMM       = "mm_account"
	kindQuote    = "mm_quote"
	kindQuoteSeq = "mm_quote_seq"
)

// Engine is the MM-registry engine: one Registry record per commodity.
type Engine struct {
	store   *store.Store
	custody custody.Custody
	logger  *slog.Logger
}

// New creates an Engine backed by store s and custody c.
func New(s *store.Store, c custody.Custody, logger *slog.Logger) *Engine {
	return &Engine{store: s, custody: c, logger: logger.With("component", "mmregistry")}
}

func mmCustody(owner string) custody.Account {
	return custody.Account("user:" + owner)
}

func registryCustody(commodity string) custody.Account {
	return custody.Account("mmregistry:" + commodity)
}

func mmKey(owner, commodity string) string {
	return owner + ":" + commodity
}

func quoteKey(owner string, seq uint64) string {
	return fmt.Sprintf("%s:%d", owner, seq)
}

func (e *Engine) loadRegistry(commodity string) (Registry, error) {
	var r Registry
	if err := e.store.Load(kindRegistry, commodity, &r); err != nil {
		return Registry{}, err
	}
	return r, nil
}

func (e *Engine) saveRegistry(r Registry) error {
	return e.store.Save(kindRegistry, r.Commodity, r)
}

func (e *Engine) loadMM(owner, commodity string) (MarketMaker, error) {
	var mm MarketMaker
	if err := e.store.Load(kindMM, mmKey(owner, commodity), &mm); err != nil {
		return MarketMaker{}, err
	}
	return mm, nil
}

func (e *Engine) saveMM(mm MarketMaker) error {
	return e.store.Save(kindMM, mmKey(mm.Owner, mm.Commodity), mm)
}

func (e *Engine) loadQuote(owner string, seq uint64) (TwoSidedQuote, error) {
	var q TwoSidedQuote
	if err := e.store.Load(kindQuote, quoteKey(owner, seq), &q); err != nil {
		return TwoSidedQuote{}, err
	}
	return q, nil
}

func (e *Engine) saveQuote(q TwoSidedQuote) error {
	return e.store.Save(kindQuote, quoteKey(q.Owner, q.Seq), q)
}

func (e *Engine) nextQuoteSeq(owner string) (uint64, error) {
	type seqRec struct {
		Owner string
		Next  uint64
	}
	var rec seqRec
	err := e.store.Load(kindQuoteSeq, owner, &rec)
	if err != nil {
		if err != store.ErrNotFound {
			return 0, err
		}
		rec = seqRec{Owner: owner}
	}
	seq := rec.Next
	rec.Next++
	if err := e.store.Save(kindQuoteSeq, owner, rec); err != nil {
		return 0, err
	}
	return seq, nil
}

// RegistryParams is the input to InitializeRegistry.
type RegistryParams struct {
	Commodity      string
	MinCollateral  uint64
	MaxSpreadBp    uint64
	MinQuoteSize   uint64
	MaxQuoteSize   uint64
	MaxQuotes      uint64
	MmFeeBp        uint64
	TradingEnabled bool
}

// InitializeRegistry creates a Registry for a commodity.
func (e *Engine) InitializeRegistry(ctx context.Context, p RegistryParams) error {
	return e.saveRegistry(Registry{
		Commodity:      p.Commodity,
		MinCollateral:  p.MinCollateral,
		MaxSpreadBp:    p.MaxSpreadBp,
		MinQuoteSize:   p.MinQuoteSize,
		MaxQuoteSize:   p.MaxQuoteSize,
		MaxQuotes:      p.MaxQuotes,
		MmFeeBp:        p.MmFeeBp,
		TradingEnabled: p.TradingEnabled,
	})
}

// RegisterMM creates an inactive MarketMaker record for owner on commodity.
func (e *Engine) RegisterMM(ctx context.Context, owner, commodity string) error {
	return e.saveMM(MarketMaker{Owner: owner, Commodity: commodity, Status: types.MMInactive})
}

// DepositCollateral moves amount from the MM's custody account into the
// registry's custody account and credits Deposited. Activates the MM if
// the registry's MinCollateral is now met.
func (e *Engine) DepositCollateral(ctx context.Context, owner, commodity string, amount uint64) (MarketMaker, error) {
	mm, err := e.loadMM(owner, commodity)
	if err != nil {
		return MarketMaker{}, err
	}
	registry, err := e.loadRegistry(commodity)
	if err != nil {
		return MarketMaker{}, err
	}

	if err := e.custody.Transfer(ctx, mmCustody(owner), registryCustody(commodity), amount); err != nil {
		return MarketMaker{}, err
	}
	mm.Deposited += amount
	if mm.Deposited >= registry.MinCollateral && mm.Status == types.MMInactive {
		mm.Status = types.MMActive
	}
	if err := e.saveMM(mm); err != nil {
		return MarketMaker{}, err
	}
	return mm, nil
}

func lockCollateral(mm *MarketMaker, amount uint64) error {
	if amount > mm.Available() {
		return fmt.Errorf("lock %d exceeds available %d: %w", amount, mm.Available(), errs.ErrInsufficientAvailable)
	}
	mm.Locked += amount
	return nil
}

func unlockCollateral(mm *MarketMaker, amount uint64) {
	if amount > mm.Locked {
		amount = mm.Locked
	}
	mm.Locked -= amount
}
