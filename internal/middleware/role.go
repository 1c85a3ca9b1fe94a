package middleware // middleware provides shared request processing for handlers

import (
    "context"
    "net/http" // http package defines standard HTTP status codes

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context

    "github.com/coinsforstudy/backend/internal/role"
    "github.com/coinsforstudy/backend/internal/session"
)

// Resolver resolves the identity on a request context.
type Resolver interface {
    Resolve(ctx context.Context) *session.Resolution
}

// RequireRole returns a middleware that resolves the signed-in user and
// enforces that their role is one of roles.  With no roles any resolved
// user passes.  A request without a resolvable user is rejected with 401;
// a resolved user with another role gets 403.  The resolution is stored
// on the context for ResolutionOf.  It assumes JWTAuth ran before.
func RequireRole(resolver Resolver, roles ...role.Role) echo.MiddlewareFunc {
    allowed := make(map[role.Role]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            res := resolver.Resolve(c.Request().Context())
            if res == nil {
                return echo.NewHTTPError(http.StatusUnauthorized, "no account for this session")
            }
            if len(allowed) > 0 && !allowed[res.Role] {
                return echo.NewHTTPError(http.StatusForbidden, "forbidden")
            }
            c.Set(resolutionKey, res)
            return next(c)
        }
    }
}

// Resolve stores the resolution (possibly nil) without enforcing anything.
func Resolve(resolver Resolver) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if res := resolver.Resolve(c.Request().Context()); res != nil {
                c.Set(resolutionKey, res)
            }
            return next(c)
        }
    }
}
