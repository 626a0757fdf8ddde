package store

import (
	"errors"
	"testing"
)

type samplePosition struct {
	Size        uint64
	EntryPrice  uint64
	RealizedPnL int64
}

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	pos := samplePosition{Size: 10_500_000, EntryPrice: 75_000_000, RealizedPnL: 1_230_000}

	if err := s.Save("position", "owner1:0", pos); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var loaded samplePosition
	if err := s.Load("position", "owner1:0", &loaded); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != pos {
		t.Errorf("loaded = %+v, want %+v", loaded, pos)
	}
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	var loaded samplePosition
	err = s.Load("position", "nonexistent", &loaded)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveOverwrites(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	_ = s.Save("position", "mkt1", samplePosition{Size: 10})
	_ = s.Save("position", "mkt1", samplePosition{Size: 20})

	var loaded samplePosition
	if err := s.Load("position", "mkt1", &loaded); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Size != 20 {
		t.Errorf("Size = %v, want 20 (latest save)", loaded.Size)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.Delete("position", "never-saved"); err != nil {
		t.Fatalf("Delete on missing record: %v", err)
	}

	_ = s.Save("position", "mkt1", samplePosition{Size: 5})
	if err := s.Delete("position", "mkt1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	var loaded samplePosition
	if err := s.Load("position", "mkt1", &loaded); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestList(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	_ = s.Save("market", "oil-usd", samplePosition{Size: 1})
	_ = s.Save("market", "gas-usd", samplePosition{Size: 2})

	keys, err := s.List("market")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %d keys, want 2", len(keys))
	}

	keys, err = s.List("nonexistent-kind")
	if err != nil {
		t.Fatalf("List on missing kind: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected empty list, got %v", keys)
	}
}
