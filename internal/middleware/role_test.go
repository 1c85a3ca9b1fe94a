package middleware

import (
    "context"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"

    "github.com/coinsforstudy/backend/internal/role"
    "github.com/coinsforstudy/backend/internal/session"
)

type stubResolver struct {
    res *session.Resolution
}

func (s stubResolver) Resolve(context.Context) *session.Resolution { return s.res }

func serveRole(resolver Resolver, roles ...role.Role) *httptest.ResponseRecorder {
    e := echo.New()
    e.GET("/x", func(c echo.Context) error {
        return c.String(http.StatusOK, string(ResolutionOf(c).Role))
    }, RequireRole(resolver, roles...))
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
    return rec
}

func TestRequireRole(t *testing.T) {
    teacher := &session.Resolution{Role: role.Teacher}

    assert.Equal(t, http.StatusUnauthorized, serveRole(stubResolver{}, role.Teacher).Code)
    assert.Equal(t, http.StatusForbidden, serveRole(stubResolver{res: teacher}, role.Admin).Code)

    rec := serveRole(stubResolver{res: teacher}, role.Teacher, role.Admin)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "teacher", rec.Body.String())

    assert.Equal(t, http.StatusOK, serveRole(stubResolver{res: teacher}).Code)
}

func TestJWTAuth(t *testing.T) {
    v := fakeVerifier{tokens: map[string]session.Identity{"good": {ID: "auth-9"}}}
    e := echo.New()
    e.GET("/p", func(c echo.Context) error {
        return c.String(http.StatusOK, c.Get("user_id").(string))
    }, JWTAuth(v, "cfs_session"))
    e.GET("/o", func(c echo.Context) error {
        if _, ok := IdentityOf(c); ok {
            return c.String(http.StatusOK, "signed")
        }
        return c.String(http.StatusOK, "anon")
    }, JWTOptional(v, "cfs_session"))

    do := func(path, header, cookie string) *httptest.ResponseRecorder {
        req := httptest.NewRequest(http.MethodGet, path, nil)
        if header != "" {
            req.Header.Set("Authorization", header)
        }
        if cookie != "" {
            req.AddCookie(&http.Cookie{Name: "cfs_session", Value: cookie})
        }
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        return rec
    }

    assert.Equal(t, http.StatusUnauthorized, do("/p", "", "").Code)
    assert.Equal(t, http.StatusUnauthorized, do("/p", "Bearer nope", "").Code)
    assert.Equal(t, "auth-9", do("/p", "Bearer good", "").Body.String())
    assert.Equal(t, "auth-9", do("/p", "", "good").Body.String())

    assert.Equal(t, "anon", do("/o", "Bearer nope", "").Body.String())
    assert.Equal(t, "signed", do("/o", "", "good").Body.String())
}

func TestRequireSessionThenResolve(t *testing.T) {
    teacher := &session.Resolution{Role: role.Teacher}
    e := echo.New()
    e.GET("/teacher/dashboard", func(c echo.Context) error {
        res := ResolutionOf(c)
        if res == nil {
            return c.String(http.StatusOK, "anonymous")
        }
        return c.String(http.StatusOK, string(res.Role))
    }, RequireSession(CookiePatternChecker{}, "/login"), Resolve(stubResolver{res: teacher}))

    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teacher/dashboard", nil))
    assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
    assert.Equal(t, "/login?from=%2Fteacher%2Fdashboard", rec.Header().Get(echo.HeaderLocation))

    req := httptest.NewRequest(http.MethodGet, "/teacher/dashboard", nil)
    req.Header.Set("Cookie", "sb-auth-token=abc")
    rec = httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "teacher", rec.Body.String())
}

func TestResolveLeavesAnonymousUnset(t *testing.T) {
    e := echo.New()
    e.GET("/x", func(c echo.Context) error {
        assert.Nil(t, ResolutionOf(c))
        return c.NoContent(http.StatusNoContent)
    }, Resolve(stubResolver{}))
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
    assert.Equal(t, http.StatusNoContent, rec.Code)
}
