package table

import (
	"context"
	"sync"
)

// MemoryStore keeps the table in process memory. It backs tests and the
// "memory" backend.
type MemoryStore struct {
	mu      sync.Mutex
	rows    []Row
	version int64
	writes  int
}

// NewMemoryStore returns a store seeded with rows.
func NewMemoryStore(rows ...Row) *MemoryStore {
	s := &MemoryStore{}
	for _, r := range rows {
		s.rows = append(s.rows, r.Clone())
	}
	return s
}

func (s *MemoryStore) Fetch(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := &Snapshot{Rows: s.rows, Version: s.version}
	return snap.Clone(), nil
}

func (s *MemoryStore) Replace(ctx context.Context, snap *Snapshot, checkVersion bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if checkVersion && snap.Version != s.version {
		return s.version, ErrStale
	}
	s.rows = snap.Clone().Rows
	s.version++
	s.writes++
	return s.version, nil
}

// Writes returns how many replaces were applied.
func (s *MemoryStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
