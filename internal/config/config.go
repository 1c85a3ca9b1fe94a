package config // package config loads application configuration from environment variables

import (
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "strings"

    "github.com/joho/godotenv"   // optional .env file for local runs
    "github.com/sirupsen/logrus" // fatal configuration errors are reported through logrus
)

// Auth provider names accepted in AUTH_PROVIDER.
const (
    ProviderLocal    = "local"
    ProviderSupabase = "supabase"
)

// Guard modes accepted in GUARD_MODE.
const (
    GuardSigned = "signed"
    GuardLegacy = "legacy"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    LogLevel       string // logrus level name
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    AutoMigrate    bool   // create missing tables on startup
    JWTSecret      string // HS256 secret shared with the auth provider
    AccessTTLMin   int    // access token time‑to‑live in minutes
    RefreshTTLDays int    // refresh token time‑to‑live in days
    BcryptCost     int    // bcrypt cost for password hashing

    AuthProvider    string // "local" or "supabase"
    SupabaseURL     string // project URL, required for the supabase provider
    SupabaseAnonKey string // public anon key sent as the apikey header

    GuardMode     string // "signed" (default) or "legacy"
    LoginPath     string // where the guard sends anonymous visitors
    SessionCookie string // name of the session cookie
    CookieSecure  bool   // set the Secure attribute on the session cookie

    ProgressNamespace string // key prefix for stored progress values
    AMQPURL           string // RabbitMQ URL; empty disables notification fan-out
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    // load .env if it exists (ignore if it does not); real env vars win
    if _, err := os.Stat(".env"); err == nil {
        if err := godotenv.Load(); err != nil {
            logrus.Fatalf("load .env: %v", err)
        }
    }
    cfg := Config{
        Env:            must("APP_ENV"),
        Port:           must("APP_PORT"),
        LogLevel:       getenv("LOG_LEVEL", "info"),
        DBUser:         must("DB_USER"),
        DBPass:         os.Getenv("DB_PASS"), // empty allowed
        DBHost:         must("DB_HOST"),
        DBPort:         must("DB_PORT"),
        DBName:         must("DB_NAME"),
        AutoMigrate:    envBool("DB_AUTO_MIGRATE", true),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
        BcryptCost:     mustInt("BCRYPT_COST"),

        AuthProvider:    strings.ToLower(getenv("AUTH_PROVIDER", ProviderLocal)),
        SupabaseURL:     os.Getenv("SUPABASE_URL"),
        SupabaseAnonKey: os.Getenv("SUPABASE_ANON_KEY"),

        GuardMode:     strings.ToLower(getenv("GUARD_MODE", GuardSigned)),
        LoginPath:     getenv("LOGIN_PATH", "/login"),
        SessionCookie: getenv("SESSION_COOKIE", "cfs_session"),
        CookieSecure:  envBool("COOKIE_SECURE", false),

        ProgressNamespace: getenv("PROGRESS_NAMESPACE", "progress"),
        AMQPURL:           os.Getenv("AMQP_URL"),
    }
    if cfg.AuthProvider == ProviderSupabase && (cfg.SupabaseURL == "" || cfg.SupabaseAnonKey == "") {
        logrus.Fatal("AUTH_PROVIDER=supabase requires SUPABASE_URL and SUPABASE_ANON_KEY")
    }
    if cfg.AuthProvider != ProviderLocal && cfg.AuthProvider != ProviderSupabase {
        logrus.Fatalf("unknown AUTH_PROVIDER %q", cfg.AuthProvider)
    }
    if cfg.GuardMode != GuardSigned && cfg.GuardMode != GuardLegacy {
        logrus.Fatalf("unknown GUARD_MODE %q", cfg.GuardMode)
    }
    return cfg
}

// IsProd reports whether the service runs in production.
func (c Config) IsProd() bool { return c.Env == "prod" || c.Env == "production" }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        logrus.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        logrus.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
