package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cacheKeyPrefix = "rbac:perms:"

// Cache memoizes effective permission resolutions in Redis with a short TTL.
// Concurrent resolutions for the same user are collapsed via singleflight so
// a cold cache does not stampede the store. When no Redis client is wired the
// cache degrades to direct store reads.
type Cache struct {
	source PermissionSource
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCache wraps a permission source with Redis-backed caching.
func NewCache(source PermissionSource, client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{source: source, client: client, ttl: ttl}
}

// UserPermissionNames resolves the effective permission names for a user,
// serving from cache when fresh.
func (c *Cache) UserPermissionNames(ctx context.Context, userID int64) ([]string, error) {
	if c == nil || c.client == nil {
		return c.source.UserPermissionNames(ctx, userID)
	}

	key := c.key(userID)
	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var names []string
		if err := json.Unmarshal(raw, &names); err == nil {
			return names, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		// Redis trouble must not block authorization; fall through to store.
		return c.source.UserPermissionNames(ctx, userID)
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		names, err := c.source.UserPermissionNames(ctx, userID)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(names); err == nil {
			_ = c.client.Set(ctx, key, raw, c.ttl).Err()
		}
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

// Invalidate drops the cached resolution for one user. Called after role
// assignment changes.
func (c *Cache) Invalidate(ctx context.Context, userID int64) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, c.key(userID)).Err()
}

// InvalidateAll drops every cached resolution. Called after role-permission
// grants and revokes, which affect an unknown set of users.
func (c *Cache) InvalidateAll(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	iter := c.client.Scan(ctx, 0, cacheKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		_ = c.client.Del(ctx, iter.Val()).Err()
	}
}

func (c *Cache) key(userID int64) string {
	return fmt.Sprintf("%s%d", cacheKeyPrefix, userID)
}
