package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/coinsforstudy/backend/internal/middleware"
    "github.com/coinsforstudy/backend/internal/progress"
    "github.com/coinsforstudy/backend/internal/service"
)

// ProgressHandler exposes the per-user progress trackers. The scope in the
// path is chosen by the client and namespaced under the caller's identity.
type ProgressHandler struct {
    Registry *progress.Registry
}

func NewProgressHandler(reg *progress.Registry) *ProgressHandler {
    return &ProgressHandler{Registry: reg}
}

type progressReq struct {
    Value *int `json:"value" validate:"required"`
}

type progressView struct {
    Scope string `json:"scope"`
    Item  string `json:"item"`
    Value int    `json:"value"`
    Live  bool   `json:"live"`
}

func (h *ProgressHandler) tracker(c echo.Context) (*progress.Tracker, error) {
    id, signedIn := middleware.IdentityOf(c)
    if !signedIn {
        return nil, newAPIError(http.StatusUnauthorized, "not signed in")
    }
    return h.Registry.Tracker(service.ProgressScope(id.ID, c.Param("scope"))), nil
}

func (h *ProgressHandler) view(c echo.Context, t *progress.Tracker, msg string) error {
    item := c.Param("item")
    v, err := t.Progress(c.Request().Context(), item)
    if err != nil {
        return err
    }
    liveItem, _, hasLive := t.Live()
    return ok(c, progressView{
        Scope: c.Param("scope"),
        Item:  item,
        Value: v,
        Live:  hasLive && liveItem == item,
    }, msg)
}

// Get returns the live value, else the saved one, else the stored one, else 0.
func (h *ProgressHandler) Get(c echo.Context) error {
    t, err := h.tracker(c)
    if err != nil {
        return err
    }
    return h.view(c, t, "")
}

// Save persists the clamped value.
func (h *ProgressHandler) Save(c echo.Context) error {
    t, err := h.tracker(c)
    if err != nil {
        return err
    }
    var req progressReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    if _, err := t.SaveProgress(c.Request().Context(), c.Param("item"), *req.Value); err != nil {
        return err
    }
    return h.view(c, t, "saved")
}

// Update sets the in-memory value without persisting it.
func (h *ProgressHandler) Update(c echo.Context) error {
    t, err := h.tracker(c)
    if err != nil {
        return err
    }
    var req progressReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    t.UpdateProgress(c.Param("item"), *req.Value)
    return h.view(c, t, "updated")
}

// Live sets the ephemeral value shown while the user is still interacting.
func (h *ProgressHandler) Live(c echo.Context) error {
    t, err := h.tracker(c)
    if err != nil {
        return err
    }
    var req progressReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    t.UpdateLive(c.Param("item"), *req.Value)
    return h.view(c, t, "")
}

// ClearLive drops the live value when it belongs to the item in the path.
func (h *ProgressHandler) ClearLive(c echo.Context) error {
    t, err := h.tracker(c)
    if err != nil {
        return err
    }
    if item, _, hasLive := t.Live(); hasLive && item == c.Param("item") {
        t.ClearLive()
    }
    return h.view(c, t, "")
}

// Select makes the item current; a live value of another item is dropped.
func (h *ProgressHandler) Select(c echo.Context) error {
    t, err := h.tracker(c)
    if err != nil {
        return err
    }
    t.Select(c.Param("item"))
    return h.view(c, t, "")
}

// Clear forgets the item in memory and in storage.
func (h *ProgressHandler) Clear(c echo.Context) error {
    t, err := h.tracker(c)
    if err != nil {
        return err
    }
    if err := t.Clear(c.Request().Context(), c.Param("item")); err != nil {
        return err
    }
    return ok(c, nil, "cleared")
}
