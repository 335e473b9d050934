package postgres

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		username     TEXT PRIMARY KEY,
		secret       TEXT NOT NULL,
		role         TEXT NOT NULL,
		balance      DOUBLE PRECISION NOT NULL DEFAULT 0,
		cancel_count INTEGER NOT NULL DEFAULT 0,
		rating_sum   INTEGER NOT NULL DEFAULT 0,
		rating_count INTEGER NOT NULL DEFAULT 0,
		vehicle_type  TEXT,
		vehicle_class TEXT,
		position     INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rides (
		id             TEXT PRIMARY KEY,
		captain        TEXT NOT NULL,
		route          TEXT NOT NULL,
		departure_time TEXT NOT NULL,
		return_time    TEXT NOT NULL DEFAULT '',
		vehicle_type   TEXT NOT NULL DEFAULT '',
		vehicle_class  TEXT NOT NULL DEFAULT '',
		total_seats    INTEGER NOT NULL CHECK (total_seats > 0),
		fare           DOUBLE PRECISION NOT NULL CHECK (fare >= 0),
		completed      BOOLEAN NOT NULL DEFAULT FALSE,
		rated          BOOLEAN NOT NULL DEFAULT FALSE,
		position       INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ride_passengers (
		ride_id  TEXT NOT NULL REFERENCES rides(id) ON DELETE CASCADE,
		username TEXT NOT NULL,
		seat     INTEGER NOT NULL,
		PRIMARY KEY (ride_id, username)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rides_captain ON rides(captain)`,
}

// Migrate creates the snapshot tables if they do not exist.
func Migrate(ctx context.Context, q Querier) error {
	for _, stmt := range migrations {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
