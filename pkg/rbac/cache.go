package rbac

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ContextCache caches per-user RBAC context snapshots. Mutating handlers
// invalidate a user's entry after any assignment or grant change; entries
// also age out on their own, so a missed invalidation is bounded by the TTL.
type ContextCache interface {
	Get(ctx context.Context, userID string) (*Context, bool)
	Set(ctx context.Context, userID string, rbacCtx *Context)
	Invalidate(ctx context.Context, userID string)
}

// RedisContextCache stores snapshots in Redis, shared across instances.
type RedisContextCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisContextCache creates a Redis-backed context cache
func NewRedisContextCache(client *redis.Client, ttl time.Duration) *RedisContextCache {
	return &RedisContextCache{client: client, ttl: ttl}
}

func contextKey(userID string) string {
	return fmt.Sprintf("rbac:context:%s", userID)
}

// Get retrieves a cached snapshot. Corrupt entries are dropped and treated
// as a miss.
func (c *RedisContextCache) Get(ctx context.Context, userID string) (*Context, bool) {
	data, err := c.client.Get(ctx, contextKey(userID)).Result()
	if err != nil {
		return nil, false
	}

	var rbacCtx Context
	if err := json.Unmarshal([]byte(data), &rbacCtx); err != nil {
		c.client.Del(ctx, contextKey(userID))
		return nil, false
	}

	return &rbacCtx, true
}

// Set stores a snapshot with the configured TTL. Caching is best-effort;
// errors are swallowed because the store remains the source of truth.
func (c *RedisContextCache) Set(ctx context.Context, userID string, rbacCtx *Context) {
	data, err := json.Marshal(rbacCtx)
	if err != nil {
		return
	}
	c.client.Set(ctx, contextKey(userID), data, c.ttl)
}

// Invalidate removes a user's cached snapshot
func (c *RedisContextCache) Invalidate(ctx context.Context, userID string) {
	c.client.Del(ctx, contextKey(userID))
}

// LRUContextCache is an in-process expirable LRU cache, used when Redis is
// not configured. Suitable for a single instance only.
type LRUContextCache struct {
	lru *expirable.LRU[string, *Context]
}

// NewLRUContextCache creates an in-process context cache holding up to size
// entries, each expiring after ttl.
func NewLRUContextCache(size int, ttl time.Duration) *LRUContextCache {
	return &LRUContextCache{
		lru: expirable.NewLRU[string, *Context](size, nil, ttl),
	}
}

// Get retrieves a cached snapshot
func (c *LRUContextCache) Get(_ context.Context, userID string) (*Context, bool) {
	return c.lru.Get(userID)
}

// Set stores a snapshot
func (c *LRUContextCache) Set(_ context.Context, userID string, rbacCtx *Context) {
	c.lru.Add(userID, rbacCtx)
}

// Invalidate removes a user's cached snapshot
func (c *LRUContextCache) Invalidate(_ context.Context, userID string) {
	c.lru.Remove(userID)
}
