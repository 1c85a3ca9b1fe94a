package handler

import (
    "context"  // provides context with cancellation for provider calls
    "errors"   // errors.Is for sentinel matching
    "net/http" // HTTP status codes and cookies
    "strings"  // request normalization
    "time"     // timeouts and cookie expiry

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/coinsforstudy/backend/internal/auth"       // provider sentinels and sessions
    "github.com/coinsforstudy/backend/internal/middleware" // token extraction shared with the guard
    "github.com/coinsforstudy/backend/internal/service"    // account use cases
    "github.com/coinsforstudy/backend/internal/session"    // identity type
)

// CookieConfig describes the session cookie set on sign-in.
type CookieConfig struct {
    Name   string
    Secure bool
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Accounts *service.AccountService
    Cookie   CookieConfig
}

func NewAuthHandler(accounts *service.AccountService, cookie CookieConfig) *AuthHandler {
    return &AuthHandler{Accounts: accounts, Cookie: cookie}
}

// ----- DTOs -----

type registerReq struct {
    Email       string `json:"email" validate:"required,email,max=255"`
    Password    string `json:"password" validate:"required,min=6,max=72"`
    DisplayName string `json:"display_name" validate:"omitempty,max=80"`
    Role        string `json:"role" validate:"omitempty,oneof=student teacher"` // admin is granted, never chosen
}

func (r *registerReq) normalize() {
    r.Email = strings.TrimSpace(r.Email)
    r.Role = strings.ToLower(strings.TrimSpace(r.Role))
}

type loginReq struct {
    Email    string `json:"email" validate:"required,email"`
    Password string `json:"password" validate:"required"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token" validate:"required"`
}
type logoutReq struct {
    RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type authResp struct {
    User    session.Identity `json:"user"`
    Access  tokenPart        `json:"access"`
    Refresh tokenPart        `json:"refresh"`
    Landing string           `json:"landing"`
}

const providerTimeout = 10 * time.Second

// Register creates the account. When the provider waits for an email
// confirmation no tokens exist yet and the response is 202.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), providerTimeout)
    defer cancel()

    sess, err := h.Accounts.Register(ctx, service.RegisterInput{
        Email:       req.Email,
        Password:    req.Password,
        DisplayName: req.DisplayName,
        Role:        req.Role,
    })
    if err != nil {
        return accountError(err)
    }
    if sess.Pending() {
        return c.JSON(http.StatusAccepted, Envelope{
            Data:    echo.Map{"user": sess.Identity},
            Message: "check your inbox to confirm the email address",
            Success: true,
        })
    }
    h.setSessionCookie(c, sess)
    return created(c, h.authResp(ctx, sess), "registered")
}

// Login verifies the credentials and returns a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), providerTimeout)
    defer cancel()

    sess, err := h.Accounts.Login(ctx, req.Email, req.Password)
    if err != nil {
        return accountError(err)
    }
    h.setSessionCookie(c, sess)
    return ok(c, h.authResp(ctx, sess), "signed in")
}

// Refresh rotates the refresh token and re-issues the session cookie.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), providerTimeout)
    defer cancel()

    sess, err := h.Accounts.Refresh(ctx, req.RefreshToken)
    if err != nil {
        return accountError(err)
    }
    h.setSessionCookie(c, sess)
    return ok(c, h.authResp(ctx, sess), "refreshed")
}

// Logout revokes the refresh token from the body, or every session of the
// caller when only the access token is known. The cookie is always cleared.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req logoutReq
    if err := c.Bind(&req); err != nil {
        return newAPIError(http.StatusBadRequest, "invalid body")
    }
    access := middleware.SessionToken(c.Request(), h.Cookie.Name)
    h.clearSessionCookie(c)
    if access == "" && req.RefreshToken == "" {
        return ok(c, nil, "signed out")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), providerTimeout)
    defer cancel()

    if err := h.Accounts.Logout(ctx, access, req.RefreshToken); err != nil && !errors.Is(err, auth.ErrInvalidToken) {
        return accountError(err)
    }
    return ok(c, nil, "signed out")
}

func (h *AuthHandler) authResp(ctx context.Context, sess *auth.Session) authResp {
    return authResp{
        User:    sess.Identity,
        Access:  tokenPart{Token: sess.AccessToken, Expires: sess.AccessExpiresAt},
        Refresh: tokenPart{Token: sess.RefreshToken, Expires: sess.RefreshExpiresAt},
        Landing: h.Accounts.LandingFor(ctx, sess.Identity),
    }
}

func (h *AuthHandler) setSessionCookie(c echo.Context, sess *auth.Session) {
    c.SetCookie(&http.Cookie{
        Name:     h.Cookie.Name,
        Value:    sess.AccessToken,
        Path:     "/",
        Expires:  sess.AccessExpiresAt,
        HttpOnly: true,
        Secure:   h.Cookie.Secure,
        SameSite: http.SameSiteLaxMode,
    })
}

func (h *AuthHandler) clearSessionCookie(c echo.Context) {
    c.SetCookie(&http.Cookie{
        Name:     h.Cookie.Name,
        Value:    "",
        Path:     "/",
        MaxAge:   -1,
        HttpOnly: true,
        Secure:   h.Cookie.Secure,
        SameSite: http.SameSiteLaxMode,
    })
}

// accountError maps service and provider errors onto API errors. Anything
// unknown is returned as is and becomes a logged 500.
func accountError(err error) error {
    switch {
    case errors.Is(err, auth.ErrInvalidCredentials):
        return newAPIError(http.StatusUnauthorized, "invalid credentials")
    case errors.Is(err, auth.ErrInvalidToken):
        return newAPIError(http.StatusUnauthorized, "invalid or expired token")
    case errors.Is(err, auth.ErrEmailTaken):
        return newAPIError(http.StatusConflict, "email already exists")
    case errors.Is(err, service.ErrRoleNotAllowed):
        return newAPIError(http.StatusForbidden, "role cannot be self-assigned")
    case errors.Is(err, session.ErrNoIdentity):
        return newAPIError(http.StatusUnauthorized, "not signed in")
    case errors.Is(err, session.ErrNoProfile):
        return newAPIError(http.StatusNotFound, "profile not found")
    }
    return err
}
