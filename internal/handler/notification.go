package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/coinsforstudy/backend/internal/middleware"
    "github.com/coinsforstudy/backend/internal/notification"
)

// NotificationHandler serves the notification feed of the caller. Routes
// run behind RequireRole so the resolution is on the context.
type NotificationHandler struct {
    Store *notification.Store
}

func NewNotificationHandler(store *notification.Store) *NotificationHandler {
    return &NotificationHandler{Store: store}
}

type createNotificationReq struct {
    Message    string            `json:"message" validate:"required,notblank,max=500"`
    Category   string            `json:"category" validate:"omitempty,max=40"`
    Recipients []string          `json:"recipients" validate:"omitempty,dive,notblank"`
    Context    map[string]string `json:"context"`
}

type feedView struct {
    Items  []notification.Notification `json:"items"`
    Unread int                          `json:"unread"`
}

// recipientKeys are the addresses the caller receives: its auth id and
// its role.
func recipientKeys(c echo.Context) ([]string, error) {
    res := middleware.ResolutionOf(c)
    if res == nil {
        return nil, newAPIError(http.StatusUnauthorized, "not signed in")
    }
    return []string{res.Profile.AuthID, notification.RoleKey(res.Role.String())}, nil
}

// List returns the caller's notifications, newest first. ?unread=true
// keeps only unread ones.
func (h *NotificationHandler) List(c echo.Context) error {
    keys, err := recipientKeys(c)
    if err != nil {
        return err
    }
    items := h.Store.ListFor(keys...)
    if unreadOnly, _ := strconv.ParseBool(c.QueryParam("unread")); unreadOnly {
        kept := items[:0]
        for _, n := range items {
            if !n.Read {
                kept = append(kept, n)
            }
        }
        items = kept
    }
    return ok(c, feedView{Items: items, Unread: h.Store.UnreadCount(keys...)}, "")
}

// Unread returns the unread count only.
func (h *NotificationHandler) Unread(c echo.Context) error {
    keys, err := recipientKeys(c)
    if err != nil {
        return err
    }
    return ok(c, echo.Map{"unread": h.Store.UnreadCount(keys...)}, "")
}

// Create posts a notification. Without recipients it is a broadcast. The
// sender's auth id is recorded in the context under "sender".
func (h *NotificationHandler) Create(c echo.Context) error {
    var req createNotificationReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    meta := make(map[string]string, len(req.Context)+1)
    for k, v := range req.Context {
        meta[k] = v
    }
    if res := middleware.ResolutionOf(c); res != nil {
        meta["sender"] = res.Profile.AuthID
    }
    n := h.Store.Create(c.Request().Context(), notification.Draft{
        Message:    req.Message,
        Category:   req.Category,
        Recipients: req.Recipients,
        Context:    meta,
    })
    return created(c, n, "notification created")
}

// MarkRead marks one of the caller's notifications as read. Unknown ids
// are a no-op; records addressed to someone else answer 404.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
    keys, err := recipientKeys(c)
    if err != nil {
        return err
    }
    changed, err := h.Store.MarkReadFor(c.Param("id"), keys...)
    if errors.Is(err, notification.ErrNotAddressed) {
        return newAPIError(http.StatusNotFound, "notification not found")
    }
    updated := 0
    if changed {
        updated = 1
    }
    return ok(c, echo.Map{"updated": updated}, "")
}

// MarkAllRead marks every notification addressed to the caller as read.
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
    keys, err := recipientKeys(c)
    if err != nil {
        return err
    }
    n := h.Store.MarkAllReadFor(keys...)
    return ok(c, echo.Map{"updated": n}, "")
}
