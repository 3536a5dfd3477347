package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisCache(t *testing.T) (*miniredis.Miniredis, *RedisContextCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisContextCache(client, time.Minute)
}

func TestRedisContextCacheRoundTrip(t *testing.T) {
	_, cache := setupRedisCache(t)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "user-1")
	assert.False(t, ok, "empty cache misses")

	snapshot := &Context{
		UserID:  "user-1",
		Roles:   []Role{{ID: 1, Name: "trader", IsActive: true}},
		IsAdmin: true,
	}
	cache.Set(ctx, "user-1", snapshot)

	got, ok := cache.Get(ctx, "user-1")
	require.True(t, ok)
	assert.Equal(t, "user-1", got.UserID)
	assert.True(t, got.IsAdmin)
	require.Len(t, got.Roles, 1)
	assert.Equal(t, "trader", got.Roles[0].Name)
}

func TestRedisContextCacheInvalidate(t *testing.T) {
	_, cache := setupRedisCache(t)
	ctx := context.Background()

	cache.Set(ctx, "user-1", &Context{UserID: "user-1"})
	cache.Invalidate(ctx, "user-1")

	_, ok := cache.Get(ctx, "user-1")
	assert.False(t, ok)
}

func TestRedisContextCacheTTL(t *testing.T) {
	mr, cache := setupRedisCache(t)
	ctx := context.Background()

	cache.Set(ctx, "user-1", &Context{UserID: "user-1"})

	mr.FastForward(2 * time.Minute)

	_, ok := cache.Get(ctx, "user-1")
	assert.False(t, ok, "entry expires after the TTL")
}

func TestRedisContextCacheCorruptEntryDropped(t *testing.T) {
	mr, cache := setupRedisCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("rbac:context:user-1", "not json"))

	_, ok := cache.Get(ctx, "user-1")
	assert.False(t, ok, "corrupt entry is a miss")
	assert.False(t, mr.Exists("rbac:context:user-1"), "corrupt entry is deleted")
}
