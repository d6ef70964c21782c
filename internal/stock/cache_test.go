package stock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *LevelCache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLevelCache(client, time.Minute)
}

func TestLevelCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	key := Key{ProductID: 1, WarehouseID: 2}

	_, ok := cache.Get(ctx, key)
	require.False(t, ok)

	cache.Set(ctx, Level{ProductID: 1, WarehouseID: 2, OnHand: 12.5, Reserved: 3})
	level, ok := cache.Get(ctx, key)
	require.True(t, ok)
	require.InDelta(t, 12.5, level.OnHand, 0.0001)
	require.InDelta(t, 3.0, level.Reserved, 0.0001)

	cache.Invalidate(ctx, key)
	_, ok = cache.Get(ctx, key)
	require.False(t, ok)
}

func TestLevelCacheNilSafe(t *testing.T) {
	var cache *LevelCache
	ctx := context.Background()

	_, ok := cache.Get(ctx, Key{ProductID: 1, WarehouseID: 1})
	require.False(t, ok)
	cache.Set(ctx, Level{ProductID: 1, WarehouseID: 1})
	cache.Invalidate(ctx, Key{ProductID: 1, WarehouseID: 1})
}
