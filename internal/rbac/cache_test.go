package rbac

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	mu    sync.Mutex
	calls int
	names map[int64][]string
}

func (s *countingSource) UserPermissionNames(ctx context.Context, userID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.names[userID], nil
}

func newCacheForTest(t *testing.T, source PermissionSource) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCache(source, client, time.Minute)
}

func TestCacheServesFromRedis(t *testing.T) {
	source := &countingSource{names: map[int64][]string{7: {"patients.read"}}}
	cache := newCacheForTest(t, source)
	ctx := context.Background()

	names, err := cache.UserPermissionNames(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"patients.read"}, names)

	names, err = cache.UserPermissionNames(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"patients.read"}, names)

	assert.Equal(t, 1, source.calls)
}

func TestCacheInvalidate(t *testing.T) {
	source := &countingSource{names: map[int64][]string{7: {"patients.read"}}}
	cache := newCacheForTest(t, source)
	ctx := context.Background()

	_, err := cache.UserPermissionNames(ctx, 7)
	require.NoError(t, err)

	cache.Invalidate(ctx, 7)

	_, err = cache.UserPermissionNames(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}

func TestCacheInvalidateAll(t *testing.T) {
	source := &countingSource{names: map[int64][]string{
		1: {"rbac.manage"},
		2: {"patients.read"},
	}}
	cache := newCacheForTest(t, source)
	ctx := context.Background()

	_, err := cache.UserPermissionNames(ctx, 1)
	require.NoError(t, err)
	_, err = cache.UserPermissionNames(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 2, source.calls)

	cache.InvalidateAll(ctx)

	_, err = cache.UserPermissionNames(ctx, 1)
	require.NoError(t, err)
	_, err = cache.UserPermissionNames(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, source.calls)
}

func TestCacheWithoutRedisFallsThrough(t *testing.T) {
	source := &countingSource{names: map[int64][]string{7: {"patients.read"}}}
	cache := NewCache(source, nil, time.Minute)
	ctx := context.Background()

	_, err := cache.UserPermissionNames(ctx, 7)
	require.NoError(t, err)
	_, err = cache.UserPermissionNames(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}
