package redis

import "strings"

// Key prefixes for everything the service keeps in Redis.
const (
	SessionKeyPrefix     = "session:"
	IdempotencyKeyPrefix = "idempotency:"
)

// KeyCollection names the key space a Redis key belongs to: "session",
// "idempotency", or "other" for anything else.
func KeyCollection(key string) string {
	switch {
	case strings.HasPrefix(key, SessionKeyPrefix):
		return "session"
	case strings.HasPrefix(key, IdempotencyKeyPrefix):
		return "idempotency"
	default:
		return "other"
	}
}
