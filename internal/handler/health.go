package handler // declare the package name; contains HTTP handlers

import (
    "context"      // bounded pings
    "database/sql" // database handle to ping
    "net/http"     // net/http provides status codes and response helpers
    "time"         // ping timeout

    "github.com/labstack/echo/v4"   // echo is the web framework used for this project
    "github.com/redis/go-redis/v9" // optional Redis client to ping
)

// HealthHandler checks the dependencies the service needs.  Redis is
// optional: when it is nil the service runs on in-memory stores.
type HealthHandler struct {
    DB    *sql.DB
    Redis *redis.Client
}

// Health is used by load balancers and monitoring systems to verify that
// the service is running.  It returns 200 when the database answers and
// 503 otherwise; a Redis failure is reported but does not fail the check.
func (h *HealthHandler) Health(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second) // never hang a probe
    defer cancel()

    checks := map[string]string{"db": "ok", "redis": "disabled"}
    status := http.StatusOK

    if h.DB == nil || h.DB.PingContext(ctx) != nil {
        checks["db"] = "down"
        status = http.StatusServiceUnavailable
    }
    if h.Redis != nil {
        checks["redis"] = "ok"
        if err := h.Redis.Ping(ctx).Err(); err != nil {
            checks["redis"] = "down"
        }
    }
    return c.JSON(status, Envelope{Data: checks, Success: status == http.StatusOK})
}
