package orderbook

import (
	"strconv"
	"strings"
)

// GetBook returns the current book aggregates for a commodity. A
// commodity with no orders yet returns a zero-value Book, not an error.
func (e *Engine) GetBook(commodity string) (Book, error) {
	return e.loadBook(commodity)
}

// ListOrders scans every persisted order and returns the ones placed
// against commodity. Intended for snapshot queries, not the hot path.
func (e *Engine) ListOrders(commodity string) ([]Order, error) {
	keys, err := e.store.List(kindOrder)
	if err != nil {
		return nil, err
	}
	orders := make([]Order, 0, len(keys))
	for _, key := range keys {
		owner, seq, ok := splitOrderKey(key)
		if !ok {
			continue
		}
		o, err := e.loadOrder(owner, seq)
		if err != nil {
			continue
		}
		if o.Commodity == commodity {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

// splitOrderKey reverses orderKey's "<owner>:<seq>" encoding, splitting
// on the last colon since owner names may themselves contain one.
func splitOrderKey(key string) (owner string, seq uint64, ok bool) {
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
