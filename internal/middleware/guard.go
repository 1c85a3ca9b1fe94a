package middleware

import (
    "net/http"
    "net/url"
    "regexp"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/coinsforstudy/backend/internal/metrics"
    "github.com/coinsforstudy/backend/internal/session"
)

// SessionChecker decides whether a page request comes from a signed-in
// user. It may return a request enriched with the caller's identity.
type SessionChecker interface {
    Name() string
    SignedIn(r *http.Request) (*http.Request, bool)
}

// SignedSessionChecker accepts requests carrying a session token that the
// auth provider verifies.
type SignedSessionChecker struct {
    Verifier   TokenVerifier
    CookieName string
}

func (SignedSessionChecker) Name() string { return "signed" }

func (s SignedSessionChecker) SignedIn(r *http.Request) (*http.Request, bool) {
    raw := SessionToken(r, s.CookieName)
    if raw == "" {
        return r, false
    }
    id, err := s.Verifier.Verify(r.Context(), raw)
    if err != nil {
        return r, false
    }
    return r.WithContext(session.WithIdentity(r.Context(), id)), true
}

var sessionCookiePattern = regexp.MustCompile(`(?i)session|token|auth`)

// CookiePatternChecker accepts any request whose Cookie header contains
// "session", "token" or "auth" in any case. Any unrelated cookie with one
// of those words passes, so it is not an access control.
type CookiePatternChecker struct{}

func (CookiePatternChecker) Name() string { return "legacy" }

func (CookiePatternChecker) SignedIn(r *http.Request) (*http.Request, bool) {
    return r, sessionCookiePattern.MatchString(strings.Join(r.Header.Values("Cookie"), "; "))
}

// Guard wraps a page loader. Anonymous requests are redirected (307) to
// loginPath with the original request URI in the from parameter; signed-in
// requests run the loader and get its result unchanged.
func Guard(checker SessionChecker, loginPath string, loader echo.HandlerFunc) echo.HandlerFunc {
    return func(c echo.Context) error {
        r, ok := checker.SignedIn(c.Request())
        metrics.RecordGuardDecision(checker.Name(), ok)
        if !ok {
            return c.Redirect(http.StatusTemporaryRedirect, LoginRedirect(loginPath, requestURI(c.Request())))
        }
        c.SetRequest(r)
        if id, ok := session.IdentityFrom(r.Context()); ok {
            c.Set("user_id", id.ID)
        }
        return loader(c)
    }
}

// RequireSession is Guard as route middleware.
func RequireSession(checker SessionChecker, loginPath string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return Guard(checker, loginPath, next)
    }
}

// LoginRedirect builds "<loginPath>?from=<escaped from>".
func LoginRedirect(loginPath, from string) string {
    sep := "?"
    if strings.Contains(loginPath, "?") {
        sep = "&"
    }
    return loginPath + sep + "from=" + url.QueryEscape(from)
}

func requestURI(r *http.Request) string {
    if r.RequestURI != "" {
        return r.RequestURI
    }
    return r.URL.RequestURI()
}
