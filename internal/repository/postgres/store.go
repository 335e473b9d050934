package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"carpool/internal/repository"
)

// SnapshotStore is a PostgreSQL implementation of repository.SnapshotStore.
// Save rewrites every table inside a single transaction.
type SnapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore creates a new PostgreSQL snapshot store.
func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Load reads all accounts and rides in insertion order.
func (s *SnapshotStore) Load(ctx context.Context) (*repository.Snapshot, error) {
	accounts, err := accountTable{q: s.db}.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	rides, err := rideTable{q: s.db}.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rides: %w", err)
	}
	return &repository.Snapshot{Accounts: accounts, Rides: rides}, nil
}

// Save replaces the stored state with snap.
func (s *SnapshotStore) Save(ctx context.Context, snap *repository.Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Create transaction-scoped tables.
	txAccounts := accountTable{q: tx}
	txRides := rideTable{q: tx}

	if err = txRides.deleteAll(ctx); err != nil {
		return fmt.Errorf("clear rides: %w", err)
	}
	if err = txAccounts.deleteAll(ctx); err != nil {
		return fmt.Errorf("clear accounts: %w", err)
	}

	for i, a := range snap.Accounts {
		if err = txAccounts.insert(ctx, i, a); err != nil {
			return fmt.Errorf("insert account %s: %w", a.Username, err)
		}
	}
	for i, r := range snap.Rides {
		if err = txRides.insert(ctx, i, r); err != nil {
			return fmt.Errorf("insert ride %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

var _ repository.SnapshotStore = (*SnapshotStore)(nil)
