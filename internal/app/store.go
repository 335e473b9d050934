package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/newrelic/go-agent/v3/newrelic"

	"carpool/internal/config"
	"carpool/internal/repository"
	"carpool/internal/repository/flatfile"
	"carpool/internal/repository/postgres"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewSnapshotStore opens the configured store backend. The returned closer
// releases any connection the store holds.
func NewSnapshotStore(ctx context.Context, cfg *config.Config, nrApp *newrelic.Application, logger *slog.Logger) (repository.SnapshotStore, io.Closer, error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		return repository.NewMemoryStore(), nopCloser{}, nil

	case config.StorePostgres:
		db, err := NewDatabase(ctx, cfg.Database, nrApp)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewSnapshotStore(db), db, nil

	case config.StoreFile:
		store, err := flatfile.NewStore(cfg.Store.DataDir, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, nopCloser{}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
