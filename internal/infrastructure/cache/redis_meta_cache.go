package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shopkit/backend/internal/domain/shared"
)

// RedisMetaCache caches hydrated meta rows in Redis, keyed by entity kind
// and id. Writers never update entries in place; a save invalidates the key
// and the next read repopulates it from the adapter.
type RedisMetaCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisMetaCache creates a Redis-backed meta cache. A zero ttl means
// entries never expire on their own.
func NewRedisMetaCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisMetaCache {
	return &RedisMetaCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("meta-cache"),
	}
}

func metaKey(kind string, id uint64) string {
	return fmt.Sprintf("meta:%s:%d", kind, id)
}

// Get returns the cached rows for an entity. The second return value
// reports whether the key was present; a miss is not an error.
func (c *RedisMetaCache) Get(ctx context.Context, kind string, id uint64) ([]shared.MetaRow, bool, error) {
	payload, err := c.client.Get(ctx, metaKey(kind, id)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read meta cache: %w", err)
	}

	var rows []shared.MetaRow
	if err := json.Unmarshal(payload, &rows); err != nil {
		// A corrupt entry is treated as a miss so the caller falls back
		// to the adapter and the next Set overwrites it.
		c.logger.Warn("discarding corrupt meta cache entry",
			zap.String("kind", kind),
			zap.Uint64("id", id),
			zap.Error(err))
		return nil, false, nil
	}
	return rows, true, nil
}

// Set stores the rows for an entity, replacing any previous entry.
func (c *RedisMetaCache) Set(ctx context.Context, kind string, id uint64, rows []shared.MetaRow) error {
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode meta cache entry: %w", err)
	}
	if err := c.client.Set(ctx, metaKey(kind, id), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write meta cache: %w", err)
	}
	return nil
}

// Invalidate drops the entry for an entity. Deleting a missing key is not
// an error.
func (c *RedisMetaCache) Invalidate(ctx context.Context, kind string, id uint64) error {
	if err := c.client.Del(ctx, metaKey(kind, id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate meta cache: %w", err)
	}
	return nil
}
