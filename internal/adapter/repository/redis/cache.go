package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/factoryledger/internal/usecase"
)

// SnapshotCache implements usecase.SnapshotCache using Redis. Snapshots are keyed by a
// version counter; bumping the counter orphans every older snapshot until its TTL.
type SnapshotCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSnapshotCache creates a new SnapshotCache.
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = usecase.SnapshotTTL
	}
	return &SnapshotCache{
		client: client,
		prefix: "stock:",
		ttl:    ttl,
	}
}

// Version returns the current snapshot version. A missing counter is version 0.
func (c *SnapshotCache) Version(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, c.prefix+"version").Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Bump advances the version counter.
func (c *SnapshotCache) Bump(ctx context.Context) (int64, error) {
	return c.client.Incr(ctx, c.prefix+"version").Result()
}

// Load retrieves the snapshot stored for version.
func (c *SnapshotCache) Load(ctx context.Context, version int64) ([]byte, error) {
	data, err := c.client.Get(ctx, c.snapshotKey(version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, usecase.ErrCacheMiss
	}
	return data, err
}

// Store saves a snapshot for version with the configured TTL.
func (c *SnapshotCache) Store(ctx context.Context, version int64, data []byte) error {
	return c.client.Set(ctx, c.snapshotKey(version), data, c.ttl).Err()
}

func (c *SnapshotCache) snapshotKey(version int64) string {
	return c.prefix + "snapshot:" + strconv.FormatInt(version, 10)
}
