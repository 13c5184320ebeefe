package genstore

import (
	"sync"
	"time"
)

type localGenEntry struct {
	Gen       uint64
	UpdatedAt time.Time
}

// Local keeps generations in-process. Generations are never pruned: an id
// that is removed and registered again must keep counting upward so that
// observers holding the old generation notice the change.
type Local struct {
	mu   sync.RWMutex
	gens map[string]localGenEntry
}

var _ GenStore = (*Local)(nil)

func NewLocal() *Local {
	return &Local{gens: make(map[string]localGenEntry)}
}

func (s *Local) Snapshot(k string) uint64 {
	s.mu.RLock()
	e, ok := s.gens[k]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	return e.Gen
}

// SnapshotMany acquires the read lock once and reads all requested keys.
func (s *Local) SnapshotMany(ks []string) map[string]uint64 {
	out := make(map[string]uint64, len(ks))
	s.mu.RLock()
	for _, k := range ks {
		out[k] = s.gens[k].Gen // zero value (0) if missing
	}
	s.mu.RUnlock()
	return out
}

func (s *Local) Bump(k string) uint64 {
	now := time.Now()
	s.mu.Lock()
	e := s.gens[k]
	e.Gen++
	e.UpdatedAt = now
	s.gens[k] = e
	s.mu.Unlock()
	return e.Gen
}

// UpdatedAt returns when k was last bumped; zero if never.
func (s *Local) UpdatedAt(k string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gens[k].UpdatedAt
}
