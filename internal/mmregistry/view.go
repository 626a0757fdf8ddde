package mmregistry

import (
	"strconv"
	"strings"
)

// GetRegistry returns the current Registry record for a commodity.
func (e *Engine) GetRegistry(commodity string) (Registry, error) {
	return e.loadRegistry(commodity)
}

// GetMarketMaker returns one MM's account against a commodity.
func (e *Engine) GetMarketMaker(owner, commodity string) (MarketMaker, error) {
	return e.loadMM(owner, commodity)
}

// GetQuote returns one MM's quote by sequence.
func (e *Engine) GetQuote(owner string, seq uint64) (TwoSidedQuote, error) {
	return e.loadQuote(owner, seq)
}

// ListQuotes scans every persisted quote and returns the ones posted
// against commodity. Intended for snapshot queries, not the hot path.
func (e *Engine) ListQuotes(commodity string) ([]TwoSidedQuote, error) {
	keys, err := e.store.List(kindQuote)
	if err != nil {
		return nil, err
	}
	quotes := make([]TwoSidedQuote, 0, len(keys))
	for _, key := range keys {
		owner, seq, ok := splitQuoteKey(key)
		if !ok {
			continue
		}
		q, err := e.loadQuote(owner, seq)
		if err != nil {
			continue
		}
		if q.Commodity == commodity {
			quotes = append(quotes, q)
		}
	}
	return quotes, nil
}

// splitQuoteKey reverses quoteKey's "<owner>:<seq>" encoding, splitting
// on the last colon since owner names may themselves contain one.
func splitQuoteKey(key string) (owner string, seq uint64, ok bool) {
	idx := strings.LastIndex(key, ":")
	if idx < 0 {
		return "", 0, false
	}
	n, err := strconv.ParseUint(key[idx+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return key[:idx], n, true
}
