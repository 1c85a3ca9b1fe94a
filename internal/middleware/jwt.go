package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "context"
    "net/http" // HTTP status codes for responses

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/coinsforstudy/backend/internal/session"
)

// TokenVerifier checks an access token and returns its identity.  Both auth
// providers implement it.
type TokenVerifier interface {
    Verify(ctx context.Context, accessToken string) (session.Identity, error)
}

// JWTAuth returns an Echo middleware that validates the access token sent
// as a Bearer header or in the session cookie and places the identity on
// the request context.  Requests without a valid token are rejected with
// 401.  Downstream code reads the identity with IdentityOf and the raw id
// via `c.Get("user_id")`.
func JWTAuth(v TokenVerifier, cookieName string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := SessionToken(c.Request(), cookieName)
            if raw == "" {
                return echo.NewHTTPError(http.StatusUnauthorized, "missing session token")
            }
            id, err := v.Verify(c.Request().Context(), raw)
            if err != nil {
                return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
            }
            setIdentity(c, id)
            return next(c)
        }
    }
}

// JWTOptional is JWTAuth without the rejection: an absent or invalid token
// leaves the request anonymous.
func JWTOptional(v TokenVerifier, cookieName string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if raw := SessionToken(c.Request(), cookieName); raw != "" {
                if id, err := v.Verify(c.Request().Context(), raw); err == nil {
                    setIdentity(c, id)
                }
            }
            return next(c)
        }
    }
}
