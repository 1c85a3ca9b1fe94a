package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinsforstudy/backend/internal/role"
)

func TestMemoryCacheExpires(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set(context.Background(), "a", 0, &Resolution{Role: role.Admin})
	res, ok := c.Get(context.Background(), "a")
	require.True(t, ok)
	assert.Equal(t, role.Admin, res.Role)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(context.Background(), "a")
	assert.False(t, ok)
}

func TestMemoryCacheRejectsStaleGeneration(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	gen := c.Generation(context.Background(), "a")
	c.Invalidate(context.Background(), "a")

	c.Set(context.Background(), "a", gen, &Resolution{Role: role.Admin})
	_, ok := c.Get(context.Background(), "a")
	assert.False(t, ok)
}

func TestMemoryCacheSweepsIdleEntries(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.lastSweep = now

	for _, id := range []string{"a", "b", "c"} {
		c.Invalidate(ctx, id)
		c.Set(ctx, id, c.Generation(ctx, id), &Resolution{Role: role.Student})
	}
	stale := c.Generation(ctx, "a")
	c.Invalidate(ctx, "a")
	assert.Equal(t, 3, c.size())

	now = now.Add(2 * time.Minute)
	c.Invalidate(ctx, "d")
	assert.Equal(t, 1, c.size())

	// a generation read before the sweep still loses against it
	c.Set(ctx, "a", stale, &Resolution{Role: role.Admin})
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)

	c.Set(ctx, "a", c.Generation(ctx, "a"), &Resolution{Role: role.Admin})
	res, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, role.Admin, res.Role)
}

func openTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisCacheGenerationGuard(t *testing.T) {
	rdb := openTestRedis(t)
	log, _ := test.NewNullLogger()
	c := NewRedisCache(rdb, "test-"+uuid.NewString(), time.Minute, log)
	ctx := context.Background()

	gen := c.Generation(ctx, "a")
	c.Set(ctx, "a", gen, &Resolution{Role: role.Teacher})
	res, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, role.Teacher, res.Role)

	c.Invalidate(ctx, "a")
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok)

	c.Set(ctx, "a", gen, &Resolution{Role: role.Teacher})
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok)
}
