package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"carpool/internal/config"
	"carpool/internal/metrics"
	internalRedis "carpool/internal/redis"
)

// NewRedisClient connects to the Redis server holding login sessions and
// idempotency records. Commands are counted per key space and traced as
// New Relic datastore segments when nrApp is set.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, nrApp *newrelic.Application) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		ClientName: "carpool",
	})
	client.AddHook(&keyspaceHook{traced: nrApp != nil})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// keyspaceHook labels each command with the key space of its first key.
type keyspaceHook struct {
	traced bool
}

func (h *keyspaceHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *keyspaceHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		collection := commandCollection(cmd)
		if h.traced {
			if txn := newrelic.FromContext(ctx); txn != nil {
				segment := newrelic.DatastoreSegment{
					StartTime:  txn.StartSegmentNow(),
					Product:    newrelic.DatastoreRedis,
					Operation:  cmd.Name(),
					Collection: collection,
				}
				defer segment.End()
			}
		}

		err := next(ctx, cmd)
		metrics.RedisCommands.WithLabelValues(collection, commandResult(err)).Inc()
		return err
	}
}

func (h *keyspaceHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		if h.traced {
			if txn := newrelic.FromContext(ctx); txn != nil {
				segment := newrelic.DatastoreSegment{
					StartTime:  txn.StartSegmentNow(),
					Product:    newrelic.DatastoreRedis,
					Operation:  "pipeline",
					Collection: "pipeline",
				}
				defer segment.End()
			}
		}
		return next(ctx, cmds)
	}
}

// commandCollection returns the key space of cmd's key argument. Commands
// without one, like PING, fall into "other".
func commandCollection(cmd redis.Cmder) string {
	args := cmd.Args()
	if len(args) < 2 {
		return "other"
	}
	key, ok := args[1].(string)
	if !ok {
		return "other"
	}
	return internalRedis.KeyCollection(key)
}

func commandResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, redis.Nil):
		return "miss"
	default:
		return "error"
	}
}
