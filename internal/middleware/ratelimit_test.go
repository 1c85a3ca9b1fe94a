package middleware

import (
    "context"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus/hooks/test"
    "github.com/stretchr/testify/assert"

    "github.com/coinsforstudy/backend/internal/config"
)

func TestLocalTokenBucket(t *testing.T) {
    log, _ := test.NewNullLogger()
    cfg := config.RateLimitConfig{
        Enabled:        true,
        Capacity:       2,
        RefillTokens:   1,
        RefillInterval: time.Hour,
        TTL:            time.Hour,
        KeyStrategy:    "ip",
        Prefix:         "rl",
    }
    e := echo.New()
    e.POST("/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, nil, log))

    codes := make([]int, 0, 3)
    for i := 0; i < 3; i++ {
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
        codes = append(codes, rec.Code)
        if rec.Code == http.StatusTooManyRequests {
            assert.NotEmpty(t, rec.Header().Get("Retry-After"))
        }
    }
    assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestDisabledLimiterPassesThrough(t *testing.T) {
    log, _ := test.NewNullLogger()
    e := echo.New()
    e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(config.RateLimitConfig{}, nil, log))
    for i := 0; i < 5; i++ {
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
        assert.Equal(t, http.StatusNoContent, rec.Code)
    }
}

func TestBuildRateKey(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
    req.RemoteAddr = "10.0.0.1:1234"
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/v1/profile")
    c.Set("user_id", "auth-1")

    assert.Equal(t, "rl:user:auth-1", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c))
    assert.Equal(t, "rl:ip:10.0.0.1:route:GET /v1/profile", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route"}, c))
}

func TestLocalBucketDropsIdleLimiters(t *testing.T) {
    b := newLocalBucket(config.RateLimitConfig{Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour})
    now := time.Now()
    b.now = func() time.Time { return now }
    b.lastSweep = now
    assert.Equal(t, time.Hour, b.idle)

    ctx := context.Background()
    for _, key := range []string{"rl:ip:a", "rl:ip:b"} {
        d, err := b.take(ctx, key)
        assert.NoError(t, err)
        assert.True(t, d.allowed)
    }
    d, _ := b.take(ctx, "rl:ip:a")
    assert.False(t, d.allowed)
    assert.Len(t, b.limiters, 2)

    now = now.Add(2 * time.Hour)
    d, _ = b.take(ctx, "rl:ip:c")
    assert.True(t, d.allowed)
    assert.Len(t, b.limiters, 1)
}
