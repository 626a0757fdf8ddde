// Package view provides the read-only snapshot queries an external
// transport (HTTP/WebSocket) would serve: commodities list, per-market
// config and stats, order books, positions/orders/account by owner, and
// oracle status. It builds these purely from the ledger/AMM/MM/order-book
// engines' own exported accessors — it owns no state of its own.
package view

import (
	"sort"

	"oilperps/internal/ammvault"
	"oilperps/internal/ledger"
	"oilperps/internal/mmregistry"
	"oilperps/internal/oracle"
	"oilperps/internal/orderbook"
)

// Engine answers snapshot queries against the running trading core.
type Engine struct {
	ledger    *ledger.Ledger
	vault     *ammvault.Vault
	mm        *mmregistry.Engine
	orderbook *orderbook.Engine
	oracle    *oracle.Aggregator
}

// New creates a view Engine over the given components. vault, mm, and
// orderbook may be nil if a deployment doesn't run that subsystem; the
// corresponding snapshot fields are simply left empty.
func New(l *ledger.Ledger, v *ammvault.Vault, mm *mmregistry.Engine, ob *orderbook.Engine, o *oracle.Aggregator) *Engine {
	return &Engine{ledger: l, vault: v, mm: mm, orderbook: ob, oracle: o}
}

// Commodities returns every commodity with an initialized market, sorted.
func (e *Engine) Commodities() ([]string, error) {
	list, err := e.ledger.ListCommodities()
	if err != nil {
		return nil, err
	}
	sort.Strings(list)
	return list, nil
}

// MarketSnapshot is a read model of one commodity's full trading state:
// perpetuals market config/stats, its AMM vault (if any), its MM registry
// (if any), and its order book aggregates (if any).
type MarketSnapshot struct {
	Market    ledger.Market
	Vault     *ammvault.LpVault
	Registry  *mmregistry.Registry
	Book      *orderbook.Book
	MarkPrice oracle.PriceData
	HasPrice  bool
}

// GetMarket assembles the full snapshot for one commodity.
func (e *Engine) GetMarket(commodity string) (MarketSnapshot, error) {
	market, err := e.ledger.LoadMarketView(commodity)
	if err != nil {
		return MarketSnapshot{}, err
	}
	snap := MarketSnapshot{Market: market}

	if e.vault != nil {
		if lv, err := e.vault.GetVault(commodity); err == nil {
			snap.Vault = &lv
		}
	}
	if e.mm != nil {
		if reg, err := e.mm.GetRegistry(commodity); err == nil {
			snap.Registry = &reg
		}
	}
	if e.orderbook != nil {
		if book, err := e.orderbook.GetBook(commodity); err == nil {
			snap.Book = &book
		}
	}
	if e.oracle != nil {
		if pd, ok := e.oracle.GetPrice(commodity); ok {
			snap.MarkPrice = pd
			snap.HasPrice = true
		}
	}
	return snap, nil
}

// OrderBookSnapshot returns the resting and conditional orders against a
// commodity, alongside the book's best bid/ask aggregates.
func (e *Engine) OrderBookSnapshot(commodity string) (orderbook.Book, []orderbook.Order, error) {
	book, err := e.orderbook.GetBook(commodity)
	if err != nil {
		return orderbook.Book{}, nil, err
	}
	orders, err := e.orderbook.ListOrders(commodity)
	if err != nil {
		return orderbook.Book{}, nil, err
	}
	return book, orders, nil
}

// AccountSnapshot is a read model of one owner's perpetuals account and
// every position it has ever held.
type AccountSnapshot struct {
	Account   ledger.UserAccount
	Positions []ledger.Position
}

// GetAccount assembles the snapshot for one perpetuals account.
func (e *Engine) GetAccount(owner string) (AccountSnapshot, error) {
	user, err := e.ledger.GetUser(owner)
	if err != nil {
		return AccountSnapshot{}, err
	}
	positions, err := e.ledger.ListPositionsByOwner(owner)
	if err != nil {
		return AccountSnapshot{}, err
	}
	return AccountSnapshot{Account: user, Positions: positions}, nil
}

// OracleStatus reports the health of the price aggregator.
func (e *Engine) OracleStatus() oracle.OracleStatus {
	return e.oracle.GetStatus()
}
