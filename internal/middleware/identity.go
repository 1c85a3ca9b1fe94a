package middleware

// identity.go defines helpers shared across middleware files: reading the
// session token from a request, and storing/reading the identity and the
// resolved session on the echo context.

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/coinsforstudy/backend/internal/session"
)

const resolutionKey = "resolution"

// IdentityOf returns the identity placed on the request by JWTAuth or the
// signed session guard.
func IdentityOf(c echo.Context) (session.Identity, bool) {
    return session.IdentityFrom(c.Request().Context())
}

// ResolutionOf returns the resolution stored by RequireRole or Resolve.
func ResolutionOf(c echo.Context) *session.Resolution {
    res, _ := c.Get(resolutionKey).(*session.Resolution)
    return res
}

func setIdentity(c echo.Context, id session.Identity) {
    r := c.Request()
    c.SetRequest(r.WithContext(session.WithIdentity(r.Context(), id)))
    c.Set("user_id", id.ID)
}

// SessionToken returns the bearer token, falling back to the session cookie.
func SessionToken(r *http.Request, cookieName string) string {
    if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
        return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
    }
    if cookieName == "" {
        return ""
    }
    if ck, err := r.Cookie(cookieName); err == nil {
        return ck.Value
    }
    return ""
}
