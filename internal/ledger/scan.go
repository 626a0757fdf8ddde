package ledger

import (
	"strconv"
	"strings"

	"oilperps/pkg/types"
)

// LoadMarketView returns a read-only copy of a market's current state,
// for keepers and view queries that need market parameters without
// going through a state-changing operation.
func (l *Ledger) LoadMarketView(commodity string) (Market, error) {
	return l.loadMarket(commodity)
}

// GetPosition returns a single position by owner and sequence.
func (l *Ledger) GetPosition(owner string, seq uint64) (Position, error) {
	return l.loadPosition(owner, seq)
}

// ListCommodities returns every initialized market's commodity tag.
func (l *Ledger) ListCommodities() ([]string, error) {
	return l.store.List(kindMarket)
}

// ListPositionsByOwner returns every position, of any status, belonging
// to owner.
func (l *Ledger) ListPositionsByOwner(owner string) ([]Position, error) {
	keys, err := l.store.List(kindPos)
	if err != nil {
		return nil, err
	}
	positions := make([]Position, 0, len(keys))
	for _, key := range keys {
		o, seq, ok := splitPositionKey(key)
		if !ok || o != owner {
			continue
		}
		pos, err := l.loadPosition(o, seq)
		if err != nil {
			continue
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

// GetUser returns the user account record for owner.
func (l *Ledger) GetUser(owner string) (UserAccount, error) {
	return l.loadUser(owner)
}

// ListOpenPositions scans every persisted position and returns the ones
// open against commodity. Intended for the liquidation keeper's periodic
// sweep, not the hot path — it is O(all positions ever placed).
func (l *Ledger) ListOpenPositions(commodity string) ([]Position, error) {
	keys, err := l.store.List(kindPos)
	if err != nil {
		return nil, err
	}
	open := make([]Position, 0, len(keys))
	for _, key := range keys {
		owner, seq, ok := splitPositionKey(key)
		if !ok {
			continue
		}
		pos, err := l.loadPosition(owner, seq)
		if err != nil {
			continue
		}
		if pos.Market == commodity && pos.Status == types.PositionOpen {
			open = append(open, pos)
		}
	}
	return open, nil
}

// splitPositionKey reverses positionKey's "<owner>:<seq>" encoding,
// splitting on the last colon since owner names may themselves contain one.
func splitPositionKey(key string) (owner string, seq uint64, ok bool) {
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
