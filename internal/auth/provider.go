// Package auth is the boundary to the identity provider. The application
// never owns identities; it asks a Provider to create, authenticate,
// refresh and verify them.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/coinsforstudy/backend/internal/session"
)

var (
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for unknown, expired, revoked or forged tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrEmailTaken is returned by SignUp when the email is registered.
	ErrEmailTaken = errors.New("email already registered")
)

// Session is the token pair issued for an identity.
type Session struct {
	Identity         session.Identity
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Pending reports whether the identity exists but no tokens were issued
// yet, as when the provider waits for email confirmation.
func (s *Session) Pending() bool { return s.AccessToken == "" }

// Provider issues and verifies identities.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	// SignOut ends the session. With a refresh token only that session is
	// revoked; with just an access token every session of the identity is.
	SignOut(ctx context.Context, accessToken, refreshToken string) error
	Verify(ctx context.Context, accessToken string) (session.Identity, error)
}
