package redis

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned when a token is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// SessionStoreInterface defines the interface for login session storage.
type SessionStoreInterface interface {
	Create(ctx context.Context, session StoredSession) (string, error)
	Get(ctx context.Context, token string) (*StoredSession, error)
	Delete(ctx context.Context, token string) error
}

// Ensure concrete types implement interfaces.
var (
	_ SessionStoreInterface = (*SessionStore)(nil)
	_ SessionStoreInterface = (*MemorySessionStore)(nil)
)
