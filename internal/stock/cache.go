package stock

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LevelCache keeps a short-lived read cache of stock levels in Redis.
// The movement service invalidates touched keys after every committed
// write, so cached values are at most one TTL stale and never observed
// by the write path itself.
type LevelCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLevelCache instantiates the cache helper.
func NewLevelCache(client *redis.Client, ttl time.Duration) *LevelCache {
	return &LevelCache{client: client, ttl: ttl}
}

func levelCacheKey(key Key) string {
	return fmt.Sprintf("stock:level:%d:%d", key.ProductID, key.WarehouseID)
}

// Get loads a cached level. The second return reports a hit.
func (c *LevelCache) Get(ctx context.Context, key Key) (Level, bool) {
	if c == nil || c.client == nil {
		return Level{}, false
	}
	raw, err := c.client.Get(ctx, levelCacheKey(key)).Bytes()
	if err != nil {
		return Level{}, false
	}
	var level Level
	if err := json.Unmarshal(raw, &level); err != nil {
		return Level{}, false
	}
	return level, true
}

// Set stores a level with the configured TTL.
func (c *LevelCache) Set(ctx context.Context, level Level) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(level)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, levelCacheKey(level.Key()), raw, c.ttl).Err()
}

// Invalidate drops the cached levels for the given keys.
func (c *LevelCache) Invalidate(ctx context.Context, keys ...Key) {
	if c == nil || c.client == nil || len(keys) == 0 {
		return
	}
	cacheKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		cacheKeys = append(cacheKeys, levelCacheKey(key))
	}
	_ = c.client.Del(ctx, cacheKeys...).Err()
}
