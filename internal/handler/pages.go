package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/coinsforstudy/backend/internal/middleware"
    "github.com/coinsforstudy/backend/internal/notification"
    "github.com/coinsforstudy/backend/internal/role"
    "github.com/coinsforstudy/backend/internal/session"
)

const recentNotifications = 5

// PagesHandler holds the page loaders mounted behind the route guard. A
// loader returns the props the dashboard renders with. Loaders read the
// resolution stored by middleware.Resolve.
type PagesHandler struct {
    Notifications *notification.Store
}

func NewPagesHandler(store *notification.Store) *PagesHandler {
    return &PagesHandler{Notifications: store}
}

type pageProps struct {
    Page          string                      `json:"page"`
    Profile       *session.UserProfile        `json:"profile"`
    Notifications []notification.Notification `json:"notifications"`
    Unread        int                         `json:"unread"`
}

// Dashboard sends the caller to the landing path of its role. A session
// that resolves to no user lands on the student dashboard.
func (h *PagesHandler) Dashboard(c echo.Context) error {
    var r role.Role
    if res := middleware.ResolutionOf(c); res != nil {
        r = res.Role
    }
    return c.Redirect(http.StatusTemporaryRedirect, role.LandingPath(r))
}

// RoleDashboard returns the loader of the dashboard reserved for want.
// Callers of another role are redirected to their own dashboard.
func (h *PagesHandler) RoleDashboard(want role.Role) echo.HandlerFunc {
    return func(c echo.Context) error {
        props := pageProps{Page: role.LandingPath(want), Notifications: []notification.Notification{}}
        res := middleware.ResolutionOf(c)
        if res == nil {
            // Legacy guard mode lets cookie-only requests through without an identity.
            return ok(c, props, "")
        }
        if res.Role != want {
            return c.Redirect(http.StatusTemporaryRedirect, role.LandingPath(res.Role))
        }
        profile := res.Profile
        props.Profile = &profile
        if h.Notifications != nil {
            keys := []string{res.Profile.AuthID, notification.RoleKey(res.Role.String())}
            feed := h.Notifications.ListFor(keys...)
            if len(feed) > recentNotifications {
                feed = feed[:recentNotifications]
            }
            props.Notifications = feed
            props.Unread = h.Notifications.UnreadCount(keys...)
        }
        return ok(c, props, "")
    }
}
