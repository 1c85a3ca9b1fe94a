package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/coinsforstudy/backend/internal/middleware"
    "github.com/coinsforstudy/backend/internal/service"
)

// ProfileHandler serves the signed-in user's own profile.
type ProfileHandler struct {
    Accounts *service.AccountService
}

func NewProfileHandler(accounts *service.AccountService) *ProfileHandler {
    return &ProfileHandler{Accounts: accounts}
}

type profileReq struct {
    DisplayName string `json:"display_name" validate:"required,notblank,max=80"`
    PhotoURL    string `json:"photo_url" validate:"omitempty,url,max=512"`
}

// Get returns the resolution of the caller: role, whether it was defaulted,
// and the display profile.
func (h *ProfileHandler) Get(c echo.Context) error {
    res, err := h.Accounts.Profile(c.Request().Context())
    if err != nil {
        return accountError(err)
    }
    return ok(c, res, "")
}

// Update replaces the display fields.
func (h *ProfileHandler) Update(c echo.Context) error {
    id, signedIn := middleware.IdentityOf(c)
    if !signedIn {
        return newAPIError(http.StatusUnauthorized, "not signed in")
    }
    var req profileReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    res, err := h.Accounts.UpdateProfile(c.Request().Context(), id.ID, service.ProfileUpdate{
        DisplayName: req.DisplayName,
        PhotoURL:    req.PhotoURL,
    })
    if err != nil {
        return accountError(err)
    }
    return ok(c, res, "profile updated")
}
