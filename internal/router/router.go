package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/coinsforstudy/backend/internal/handler"    // handlers that implement each endpoint
	"github.com/coinsforstudy/backend/internal/metrics"    // Prometheus exposition
	"github.com/coinsforstudy/backend/internal/middleware" // authentication, guard and role enforcement
	"github.com/coinsforstudy/backend/internal/role"       // role constants for access rules
)

// Auth carries what every authenticated route needs: the verifier of
// session tokens and the name of the cookie they travel in.
type Auth struct {
	Verifier   middleware.TokenVerifier
	CookieName string
	Resolver   middleware.Resolver
}

// RegisterRoutes registers routes that do not require authentication: the
// health check and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	// Load balancers and monitoring probe /healthz.
	e.GET("/healthz", h.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAuth registers the account endpoints under /auth.  None of them
// requires a session; limiter throttles them per client.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter echo.MiddlewareFunc) {
	g := e.Group("/auth", limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token and re-issues the session cookie.
	g.POST("/refresh", a.Refresh)
	// Revokes the refresh token from the body, or every session of the
	// caller when only the access token is present.  Clears the cookie.
	g.POST("/logout", a.Logout)
}

// RegisterAPI registers the JSON endpoints used by the dashboards.
func RegisterAPI(e *echo.Echo, au Auth, p *handler.ProfileHandler, pr *handler.ProgressHandler, n *handler.NotificationHandler) {
	// Anonymous callers get data null, so the token is optional here.
	e.GET("/session", handler.Session(au.Resolver), middleware.JWTOptional(au.Verifier, au.CookieName))

	user := e.Group("/user", middleware.JWTAuth(au.Verifier, au.CookieName))
	user.GET("/profile", p.Get)
	user.PUT("/profile", p.Update)

	v1 := e.Group("/v1", middleware.JWTAuth(au.Verifier, au.CookieName))

	// Progress values are private to the identity; the scope is namespaced
	// by the handler.
	prog := v1.Group("/progress/:scope/:item")
	prog.GET("", pr.Get)
	prog.PUT("", pr.Save)
	prog.PATCH("", pr.Update)
	prog.DELETE("", pr.Clear)
	prog.POST("/live", pr.Live)
	prog.DELETE("/live", pr.ClearLive)
	prog.POST("/select", pr.Select)

	// Every notification route needs the caller's role to address the feed.
	notes := v1.Group("/notifications", middleware.RequireRole(au.Resolver))
	notes.GET("", n.List)
	notes.GET("/unread", n.Unread)
	notes.POST("/read-all", n.MarkAllRead)
	notes.POST("/:id/read", n.MarkRead)
	// Only staff may post.
	notes.POST("", n.Create, middleware.RequireRole(au.Resolver, role.Teacher, role.Admin))
}

// RegisterPages registers the dashboard loaders behind the route guard.
// Anonymous requests are redirected to loginPath.  The optional token
// middleware runs first so the legacy checker still sees an identity when
// the request carries a valid one; the resolution is loaded after the guard.
func RegisterPages(e *echo.Echo, au Auth, pg *handler.PagesHandler, checker middleware.SessionChecker, loginPath string) {
	guarded := []echo.MiddlewareFunc{
		middleware.JWTOptional(au.Verifier, au.CookieName),
		middleware.RequireSession(checker, loginPath),
		middleware.Resolve(au.Resolver),
	}
	e.GET("/dashboard", pg.Dashboard, guarded...)
	for _, r := range []role.Role{role.Admin, role.Teacher, role.Student} {
		e.GET(role.LandingPath(r), pg.RoleDashboard(r), guarded...)
	}
}
