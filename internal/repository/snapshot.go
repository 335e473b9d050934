package repository

import (
	"context"

	"carpool/internal/domain"
)

// Snapshot is the complete persisted state of the marketplace.
type Snapshot struct {
	Accounts []*domain.Account
	Rides    []*domain.Ride
}

// SnapshotStore defines the persistence operations for the full state.
// The engine loads once at startup and saves after every mutation.
type SnapshotStore interface {
	// Load reads the stored state. A store that has never been written
	// returns an empty snapshot, not an error.
	Load(ctx context.Context) (*Snapshot, error)

	// Save replaces the stored state with snap.
	Save(ctx context.Context, snap *Snapshot) error
}
