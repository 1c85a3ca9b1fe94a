package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_ENV":                "test",
		"APP_PORT":               "8080",
		"DB_USER":                "cfs",
		"DB_HOST":                "127.0.0.1",
		"DB_PORT":                "3306",
		"DB_NAME":                "cfs",
		"JWT_SECRET":             "s3cret",
		"ACCESS_TOKEN_TTL_MIN":   "15",
		"REFRESH_TOKEN_TTL_DAYS": "7",
		"BCRYPT_COST":            "10",
	} {
		t.Setenv(k, v)
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15, cfg.AccessTTLMin)
	assert.Equal(t, ProviderLocal, cfg.AuthProvider)
	assert.Equal(t, GuardSigned, cfg.GuardMode)
	assert.Equal(t, "/login", cfg.LoginPath)
	assert.Equal(t, "cfs_session", cfg.SessionCookie)
	assert.Equal(t, "progress", cfg.ProgressNamespace)
	assert.True(t, cfg.AutoMigrate)
	assert.False(t, cfg.IsProd())
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("GUARD_MODE", "Legacy")
	t.Setenv("AUTH_PROVIDER", "supabase")
	t.Setenv("SUPABASE_URL", "https://x.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("COOKIE_SECURE", "yes")

	cfg := Load()
	assert.Equal(t, GuardLegacy, cfg.GuardMode)
	assert.Equal(t, ProviderSupabase, cfg.AuthProvider)
	assert.True(t, cfg.CookieSecure)
	assert.True(t, cfg.IsProd())
}

func TestLoadRateLimitConfigNormalises(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	rl := LoadRateLimitConfig()
	assert.Equal(t, 1, rl.Capacity)
	assert.Equal(t, 1, rl.RefillTokens)
	assert.Equal(t, 2*time.Second, rl.RefillInterval)
	assert.Equal(t, 10*time.Second, rl.TTL)
}

func TestLoadRoleCacheConfig(t *testing.T) {
	t.Setenv("ROLE_CACHE_TTL", "not-a-duration")

	rc := LoadRoleCacheConfig()
	assert.True(t, rc.Enabled)
	assert.Equal(t, time.Second, rc.TTL)
	assert.Equal(t, "session", rc.Prefix)
}
