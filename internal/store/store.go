// Package store provides crash-safe persistence for every typed record in
// the system: Market, UserAccount, Position, LpVault, LpPosition,
// MarketMaker, TwoSidedQuote, Order, ReferralCode, and so on.
//
// Persistence is an abstract keyed store of typed records; no specific
// on-disk format is mandated, so records are laid out one JSON file per
// (kind, key) pair: <dir>/<kind>/<key>.json. Writes use atomic file replacement
// (write to .tmp, then rename) to prevent corruption from partial writes
// or crashes mid-save. Every ledger/AMM/MM/order-book/referral engine is
// handed a *Store and uses it as its only persistence boundary.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned by Load when no record exists for the given
// kind/key.
var ErrNotFound = fmt.Errorf("store: record not found")

// Store persists typed records to JSON files in a designated directory,
// one subdirectory per record kind. All operations are mutex-protected to
// prevent concurrent file corruption.
type Store struct {
	dir string     // root directory containing <kind>/<key>.json files
	mu  sync.Mutex // serializes all file operations
}

// Open creates a store backed by the given directory.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Close is a no-op for file-based storage.
func (s *Store) Close() error {
	return nil
}

// Save atomically persists v under (kind, key). It writes to a .tmp file
// first, then renames over the target to ensure the file is never left
// in a partial state (crash-safe).
func (s *Store) Save(kind, key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.dir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create kind dir %q: %w", kind, err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", kind, key, err)
	}

	path := s.path(kind, key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s/%s: %w", kind, key, err)
	}
	return os.Rename(tmp, path)
}

// Load restores the record stored under (kind, key) into v. Returns
// ErrNotFound if no such record exists.
func (s *Store) Load(kind, key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(kind, key))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("read %s/%s: %w", kind, key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s/%s: %w", kind, key, err)
	}
	return nil
}

// Delete removes the record stored under (kind, key). A missing record is
// not an error: delete is idempotent.
func (s *Store) Delete(kind, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(kind, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s/%s: %w", kind, key, err)
	}
	return nil
}

// List returns the keys of every record stored under kind.
func (s *Store) List(kind string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.dir, kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		keys = append(keys, name[:len(name)-len(".json")])
	}
	return keys, nil
}

func (s *Store) path(kind, key string) string {
	return filepath.Join(s.dir, kind, key+".json")
}
