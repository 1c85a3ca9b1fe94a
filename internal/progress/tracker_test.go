package progress

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClamp(t *testing.T) {
	cases := map[int]int{-5: 0, 0: 0, 42: 42, 100: 100, 101: 100, 1 << 30: 100}
	for in, want := range cases {
		assert.Equal(t, want, Clamp(in), "Clamp(%d)", in)
	}
}

func TestSaveProgressIdempotent(t *testing.T) {
	store := NewMemoryStorage()
	tr := NewTracker("progress", "7.math", store)
	ctx := context.Background()

	_, err := tr.SaveProgress(ctx, "lesson-1", 42)
	require.NoError(t, err)
	_, err = tr.SaveProgress(ctx, "lesson-1", 42)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"progress:7.math:lesson-1": "42"}, store.Snapshot())
}

func TestSaveProgressClamps(t *testing.T) {
	store := NewMemoryStorage()
	tr := NewTracker("progress", "s", store)

	v, err := tr.SaveProgress(context.Background(), "x", 250)
	require.NoError(t, err)
	assert.Equal(t, 100, v)
	assert.Equal(t, "100", store.Snapshot()["progress:s:x"])
}

func TestReadPreference(t *testing.T) {
	tr := NewTracker("progress", "s", NewMemoryStorage())
	ctx := context.Background()

	tr.UpdateProgress("video", 30)
	tr.UpdateLive("video", 75)
	v, err := tr.Progress(ctx, "video")
	require.NoError(t, err)
	assert.Equal(t, 75, v)

	tr.Select("quiz")
	v, err = tr.Progress(ctx, "video")
	require.NoError(t, err)
	assert.Equal(t, 30, v)
}

func TestLiveValueReplacedByOtherItem(t *testing.T) {
	tr := NewTracker("progress", "s", NewMemoryStorage())
	ctx := context.Background()

	tr.UpdateProgress("a", 10)
	tr.UpdateLive("a", 60)
	tr.UpdateLive("b", 5)

	v, _ := tr.Progress(ctx, "a")
	assert.Equal(t, 10, v)
	v, _ = tr.Progress(ctx, "b")
	assert.Equal(t, 5, v)
}

func TestUpdateLiveDoesNotTouchStorage(t *testing.T) {
	store := NewMemoryStorage()
	tr := NewTracker("progress", "s", store)

	tr.UpdateLive("a", 60)
	tr.UpdateProgress("a", 20)
	assert.Empty(t, store.Snapshot())
}

func TestProgressFallsBackToStorageThenZero(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "progress:s:a", "64"))
	require.NoError(t, store.Set(ctx, "progress:s:bad", "sixty"))
	require.NoError(t, store.Set(ctx, "progress:s:big", "400"))
	tr := NewTracker("progress", "s", store)

	v, err := tr.Progress(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 64, v)

	v, _ = tr.Progress(ctx, "bad")
	assert.Equal(t, 0, v)
	v, _ = tr.Progress(ctx, "big")
	assert.Equal(t, 100, v)
	v, _ = tr.Progress(ctx, "missing")
	assert.Equal(t, 0, v)
}

func TestClearForgetsEverywhere(t *testing.T) {
	store := NewMemoryStorage()
	tr := NewTracker("progress", "s", store)
	ctx := context.Background()

	_, err := tr.SaveProgress(ctx, "a", 50)
	require.NoError(t, err)
	tr.UpdateLive("a", 70)

	require.NoError(t, tr.Clear(ctx, "a"))
	v, _ := tr.Progress(ctx, "a")
	assert.Equal(t, 0, v)
	_, _, live := tr.Live()
	assert.False(t, live)
	assert.Empty(t, store.Snapshot())
}

type failingStorage struct{ *MemoryStorage }

func (failingStorage) Set(context.Context, string, string) error { return errors.New("disk full") }

func TestSaveProgressStorageError(t *testing.T) {
	tr := NewTracker("progress", "s", failingStorage{NewMemoryStorage()})

	_, err := tr.SaveProgress(context.Background(), "a", 10)
	assert.Error(t, err)
	v, _ := tr.Progress(context.Background(), "a")
	assert.Equal(t, 0, v)
}

func TestRegistryReusesTrackers(t *testing.T) {
	reg := NewRegistry("progress", NewMemoryStorage())
	a := reg.Tracker("7.math")
	a.UpdateLive("x", 12)

	assert.Same(t, a, reg.Tracker("7.math"))
	assert.NotSame(t, a, reg.Tracker("8.math"))

	reg.Tracker("7.art")
	assert.Equal(t, 2, reg.DropPrefix("7."))
	assert.NotSame(t, a, reg.Tracker("7.math"))
}

func TestRedisStorage(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	tr := NewTracker("test-"+uuid.NewString(), "s", NewRedisStorage(rdb))
	t.Cleanup(func() { _ = rdb.Del(ctx, tr.Key("a")).Err() })

	_, err := tr.SaveProgress(ctx, "a", 42)
	require.NoError(t, err)
	raw, err := rdb.Get(ctx, tr.Key("a")).Result()
	require.NoError(t, err)
	assert.Equal(t, "42", raw)

	fresh := NewTracker(tr.namespace, "s", NewRedisStorage(rdb))
	v, err := fresh.Progress(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}
