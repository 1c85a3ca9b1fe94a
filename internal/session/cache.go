package session

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Cache stores resolutions per auth id. Each auth id carries a generation
// counter; Set only stores a value when the generation read before the
// lookup is still current, so a lookup that raced Invalidate is dropped.
type Cache interface {
	Get(ctx context.Context, authID string) (*Resolution, bool)
	Generation(ctx context.Context, authID string) uint64
	Set(ctx context.Context, authID string, gen uint64, res *Resolution)
	Invalidate(ctx context.Context, authID string)
}

type memoryEntry struct {
	res     *Resolution
	expires time.Time
}

// MemoryCache is a process-local Cache. Generations are stamped from one
// counter, so an auth id dropped by sweep reports floor, which is never
// lower than any generation handed out before the sweep.
type MemoryCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	seq       uint64
	floor     uint64
	gens      map[string]uint64
	data      map[string]memoryEntry
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryCache returns a MemoryCache whose entries live for ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:       ttl,
		gens:      map[string]uint64{},
		data:      map[string]memoryEntry{},
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (m *MemoryCache) Get(_ context.Context, authID string) (*Resolution, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[authID]
	if !ok {
		return nil, false
	}
	if m.now().After(e.expires) {
		delete(m.data, authID)
		return nil, false
	}
	cp := *e.res
	return &cp, true
}

func (m *MemoryCache) Generation(_ context.Context, authID string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation(authID)
}

func (m *MemoryCache) Set(_ context.Context, authID string, gen uint64, res *Resolution) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maybeSweep()
	if m.generation(authID) != gen {
		return
	}
	cp := *res
	m.data[authID] = memoryEntry{res: &cp, expires: m.now().Add(m.ttl)}
}

func (m *MemoryCache) Invalidate(_ context.Context, authID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maybeSweep()
	m.seq++
	m.gens[authID] = m.seq
	delete(m.data, authID)
}

// size reports how many auth ids hold a cached value or a generation.
func (m *MemoryCache) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.gens)
	for id := range m.data {
		if _, ok := m.gens[id]; !ok {
			n++
		}
	}
	return n
}

func (m *MemoryCache) generation(authID string) uint64 {
	if g, ok := m.gens[authID]; ok {
		return g
	}
	return m.floor
}

// maybeSweep drops expired values and every generation without a live
// value, at most once per ttl. Callers hold mu.
func (m *MemoryCache) maybeSweep() {
	now := m.now()
	if now.Sub(m.lastSweep) < m.ttl {
		return
	}
	m.lastSweep = now
	for id, e := range m.data {
		if now.After(e.expires) {
			delete(m.data, id)
		}
	}
	pruned := false
	for id := range m.gens {
		if _, live := m.data[id]; !live {
			delete(m.gens, id)
			pruned = true
		}
	}
	if pruned {
		m.floor = m.seq
	}
}

// setIfGeneration writes ARGV[2] to KEYS[1] with a TTL of ARGV[3] ms only
// when the counter in KEYS[2] (missing = 0) equals ARGV[1].
var setIfGeneration = redis.NewScript(`
	local cur = tonumber(redis.call('GET', KEYS[2]) or '0')
	if cur ~= tonumber(ARGV[1]) then
		return 0
	end
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
	return 1
`)

// RedisCache shares resolutions and generation counters across instances.
// Redis errors degrade to cache misses.
type RedisCache struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
	log    logrus.FieldLogger
}

// NewRedisCache returns a RedisCache writing keys under prefix.
func NewRedisCache(rdb redis.UniversalClient, prefix string, ttl time.Duration, log logrus.FieldLogger) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: prefix, ttl: ttl, log: log}
}

func (r *RedisCache) valueKey(authID string) string { return r.prefix + ":res:" + authID }
func (r *RedisCache) genKey(authID string) string   { return r.prefix + ":gen:" + authID }

func (r *RedisCache) Get(ctx context.Context, authID string) (*Resolution, bool) {
	raw, err := r.rdb.Get(ctx, r.valueKey(authID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.log.WithError(err).WithField("auth_id", authID).Warn("session cache read failed")
		}
		return nil, false
	}
	var res Resolution
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, false
	}
	return &res, true
}

func (r *RedisCache) Generation(ctx context.Context, authID string) uint64 {
	s, err := r.rdb.Get(ctx, r.genKey(authID)).Result()
	if err != nil {
		return 0
	}
	n, _ := strconv.ParseUint(s, 10, 64)
	return n
}

func (r *RedisCache) Set(ctx context.Context, authID string, gen uint64, res *Resolution) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	keys := []string{r.valueKey(authID), r.genKey(authID)}
	if err := setIfGeneration.Run(ctx, r.rdb, keys, gen, raw, r.ttl.Milliseconds()).Err(); err != nil {
		r.log.WithError(err).WithField("auth_id", authID).Warn("session cache write failed")
	}
}

func (r *RedisCache) Invalidate(ctx context.Context, authID string) {
	pipe := r.rdb.TxPipeline()
	pipe.Incr(ctx, r.genKey(authID))
	pipe.Del(ctx, r.valueKey(authID))
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.WithError(err).WithField("auth_id", authID).Warn("session cache invalidate failed")
	}
}
