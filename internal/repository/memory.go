package repository

import (
	"context"
	"sync"

	"carpool/internal/domain"
)

// MemoryStore keeps the last saved snapshot in process memory. It backs the
// "memory" store backend and the degraded mode used when the configured
// store cannot be opened.
type MemoryStore struct {
	mu   sync.Mutex
	snap *Snapshot
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the last saved snapshot.
func (s *MemoryStore) Load(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return &Snapshot{}, nil
	}
	return cloneSnapshot(s.snap), nil
}

// Save stores a copy of snap.
func (s *MemoryStore) Save(ctx context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = cloneSnapshot(snap)
	return nil
}

func cloneSnapshot(snap *Snapshot) *Snapshot {
	out := &Snapshot{
		Accounts: make([]*domain.Account, 0, len(snap.Accounts)),
		Rides:    make([]*domain.Ride, 0, len(snap.Rides)),
	}
	for _, a := range snap.Accounts {
		out.Accounts = append(out.Accounts, a.Clone())
	}
	for _, r := range snap.Rides {
		out.Rides = append(out.Rides, r.Clone())
	}
	return out
}

var _ SnapshotStore = (*MemoryStore)(nil)

// unavailableStore stands in for a backend that could not be opened.
type unavailableStore struct {
	err error
}

// Unavailable returns a SnapshotStore whose every call fails with err.
func Unavailable(err error) SnapshotStore {
	return unavailableStore{err: err}
}

func (s unavailableStore) Load(ctx context.Context) (*Snapshot, error) {
	return nil, s.err
}

func (s unavailableStore) Save(ctx context.Context, snap *Snapshot) error {
	return s.err
}
