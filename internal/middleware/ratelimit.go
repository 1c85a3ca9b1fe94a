package middleware

import (
    "context"
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "sync"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"
    "golang.org/x/time/rate"

    "github.com/coinsforstudy/backend/internal/config"
)

// decision is the outcome of taking one token from a bucket.
type decision struct {
    allowed    bool
    remaining  int64
    retryAfter time.Duration
}

// bucket takes one token for key.
type bucket interface {
    take(ctx context.Context, key string) (decision, error)
}

// NewTokenBucket limits requests per key (see buildRateKey).  Buckets live in
// Redis when rdb is set so that every instance shares them; without Redis
// each process keeps its own.  A Redis failure lets the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log logrus.FieldLogger) echo.MiddlewareFunc {
    if !cfg.Enabled {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    var b bucket = newLocalBucket(cfg)
    if rdb != nil {
        b = &redisBucket{cfg: cfg, rdb: rdb}
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            d, err := b.take(c.Request().Context(), key)
            if err != nil {
                log.WithError(err).WithField("key", key).Warn("ratelimit: bucket unavailable, allowing request")
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if d.allowed {
                return next(c)
            }

            secs := int(math.Ceil(d.retryAfter.Seconds()))
            h.Set("Retry-After", strconv.Itoa(max(secs, 0)))
            if cfg.Debug {
                log.WithFields(logrus.Fields{"key": key, "retry_after": secs}).Info("ratelimit: blocked")
            }
            return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
        }
    }
}

// takeScript refills whole intervals since the last refill, then spends one
// token. Returns {allowed, remaining, retry_ms}.
var takeScript = redis.NewScript(`
local key      = KEYS[1]
local now      = tonumber(ARGV[1])
local cap      = tonumber(ARGV[2])
local per      = tonumber(ARGV[3])
local every    = tonumber(ARGV[4])
local ttl      = tonumber(ARGV[5])

local tokens = tonumber(redis.call('HGET', key, 'tokens'))
local since  = tonumber(redis.call('HGET', key, 'since'))
if not tokens or not since then
  tokens, since = cap, now
end

local ticks = math.floor(math.max(0, now - since) / every)
if ticks > 0 then
  tokens = math.min(cap, tokens + ticks * per)
  since  = since + ticks * every
end

local ok, wait = 0, 0
if tokens >= 1 then
  ok, tokens = 1, tokens - 1
else
  wait = math.max(0, every - (now - since))
end

redis.call('HSET', key, 'tokens', tokens, 'since', since)
redis.call('EXPIRE', key, ttl)
return {ok, tokens, wait}
`)

type redisBucket struct {
    cfg config.RateLimitConfig
    rdb *redis.Client
}

func (b *redisBucket) take(ctx context.Context, key string) (decision, error) {
    res, err := takeScript.Run(ctx, b.rdb, []string{key},
        time.Now().UnixMilli(),
        b.cfg.Capacity,
        b.cfg.RefillTokens,
        b.cfg.RefillInterval.Milliseconds(),
        int64(b.cfg.TTL/time.Second),
    ).Int64Slice()
    if err != nil {
        return decision{}, err
    }
    if len(res) != 3 {
        return decision{}, fmt.Errorf("ratelimit script returned %d values", len(res))
    }
    return decision{
        allowed:    res[0] == 1,
        remaining:  res[1],
        retryAfter: time.Duration(res[2]) * time.Millisecond,
    }, nil
}

// localBucket keeps one x/time/rate limiter per key in process memory.
// A limiter idle for longer than a full refill is equal to a fresh one, so
// sweep drops it.
type localBucket struct {
    mu        sync.Mutex
    limiters  map[string]*localLimiter
    limit     rate.Limit
    burst     int
    idle      time.Duration
    lastSweep time.Time
    now       func() time.Time
}

type localLimiter struct {
    lim      *rate.Limiter
    lastSeen time.Time
}

func newLocalBucket(cfg config.RateLimitConfig) *localBucket {
    b := &localBucket{
        limiters: make(map[string]*localLimiter),
        limit:    rate.Limit(cfg.RefillRate()),
        burst:    cfg.Capacity,
        now:      time.Now,
    }
    b.idle = time.Minute
    if b.limit > 0 {
        if full := time.Duration(float64(b.burst) / float64(b.limit) * float64(time.Second)); full > b.idle {
            b.idle = full
        }
    }
    b.lastSweep = b.now()
    return b
}

func (b *localBucket) take(_ context.Context, key string) (decision, error) {
    now := b.now()

    b.mu.Lock()
    if now.Sub(b.lastSweep) >= b.idle {
        b.sweep(now)
    }
    l, ok := b.limiters[key]
    if !ok {
        l = &localLimiter{lim: rate.NewLimiter(b.limit, b.burst)}
        b.limiters[key] = l
    }
    l.lastSeen = now
    b.mu.Unlock()

    r := l.lim.ReserveN(now, 1)
    if wait := r.DelayFrom(now); wait > 0 {
        r.CancelAt(now)
        return decision{retryAfter: wait}, nil
    }
    return decision{allowed: true, remaining: int64(l.lim.TokensAt(now))}, nil
}

// sweep drops limiters idle for longer than b.idle. Callers hold mu.
func (b *localBucket) sweep(now time.Time) {
    b.lastSweep = now
    for key, l := range b.limiters {
        if now.Sub(l.lastSeen) > b.idle {
            delete(b.limiters, key)
        }
    }
}

// buildRateKey joins the configured prefix with the parts named by the key
// strategy. Unknown strategies key on everything.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    parts := map[string][]string{
        "ip":    {"ip", ip},
        "user":  {"user", currentUserID(c)},
        "route": {"route", c.Request().Method + " " + c.Path()},
    }

    var names []string
    switch s := strings.ToLower(cfg.KeyStrategy); s {
    case "ip", "user", "route", "ip_user", "ip_route", "user_route":
        names = strings.Split(s, "_")
    default:
        names = []string{"ip", "user", "route"}
    }

    key := []string{cfg.Prefix}
    for _, n := range names {
        key = append(key, parts[n]...)
    }
    return strings.Join(key, ":")
}

func currentUserID(c echo.Context) string {
    if s, ok := c.Get("user_id").(string); ok && s != "" {
        return s
    }
    return "anon"
}
