package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultSessionTTL is used when a store is created with a zero TTL.
const DefaultSessionTTL = 12 * time.Hour


// StoredSession is the value kept for each login token.
type StoredSession struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStore keeps login sessions in Redis. Every read slides the expiry.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{client: client, ttl: ttl}
}

// Create stores session under a fresh token and returns the token.
func (s *SessionStore) Create(ctx context.Context, session StoredSession) (string, error) {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(session)
	if err != nil {
		return "", err
	}

	token := uuid.New().String()
	if err := s.client.Set(ctx, SessionKeyPrefix+token, data, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Get returns the session for token.
func (s *SessionStore) Get(ctx context.Context, token string) (*StoredSession, error) {
	key := SessionKeyPrefix + token
	data, err := s.client.GetEx(ctx, key, s.ttl).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	var session StoredSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete removes the session for token. Unknown tokens are not an error.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, SessionKeyPrefix+token).Err()
}

// MemorySessionStore keeps sessions in process memory. It is used when no
// Redis server is configured.
type MemorySessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]memorySession
}

type memorySession struct {
	session   StoredSession
	expiresAt time.Time
}

// NewMemorySessionStore creates a new MemorySessionStore.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]memorySession),
	}
}

// Create stores session under a fresh token and returns the token.
func (s *MemorySessionStore) Create(ctx context.Context, session StoredSession) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now.UTC()
	}
	token := uuid.New().String()
	s.sessions[token] = memorySession{session: session, expiresAt: now.Add(s.ttl)}
	return token, nil
}

// Get returns the session for token.
func (s *MemorySessionStore) Get(ctx context.Context, token string) (*StoredSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[token]
	now := s.now()
	if !ok || now.After(entry.expiresAt) {
		delete(s.sessions, token)
		return nil, ErrSessionNotFound
	}
	entry.expiresAt = now.Add(s.ttl)
	s.sessions[token] = entry

	session := entry.session
	return &session, nil
}

// Delete removes the session for token.
func (s *MemorySessionStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}
