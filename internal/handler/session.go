package handler

import (
    "github.com/labstack/echo/v4"

    "github.com/coinsforstudy/backend/internal/middleware"
    "github.com/coinsforstudy/backend/internal/role"
    "github.com/coinsforstudy/backend/internal/session"
)

type sessionView struct {
    *session.Resolution
    Landing string `json:"landing"`
}

// Session reports who the caller is. Anonymous callers, and identities
// without a user row, get data null and status 200.
func Session(resolver middleware.Resolver) echo.HandlerFunc {
    return func(c echo.Context) error {
        res := resolver.Resolve(c.Request().Context())
        if res == nil {
            return ok(c, nil, "anonymous")
        }
        return ok(c, sessionView{Resolution: res, Landing: role.LandingPath(res.Role)}, "")
    }
}
