package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coinsforstudy/backend/internal/session"
	"github.com/coinsforstudy/backend/internal/supabase"
	"github.com/coinsforstudy/backend/internal/utils"
)

// GoTrue is the subset of the hosted auth client used by Supabase.
type GoTrue interface {
	SignUp(ctx context.Context, req supabase.SignUpRequest) (*supabase.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error)
	RefreshToken(ctx context.Context, refreshToken string) (*supabase.Session, error)
	GetUser(ctx context.Context, accessToken string) (*supabase.User, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Supabase delegates to the hosted auth service. Access tokens are HS256
// JWTs signed with the project's JWT secret, so Verify checks them locally
// and only asks the service when no secret is configured.
type Supabase struct {
	Client    GoTrue
	JWTSecret string
}

func NewSupabase(client GoTrue, jwtSecret string) *Supabase {
	return &Supabase{Client: client, JWTSecret: jwtSecret}
}

func (s *Supabase) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := s.Client.SignUp(ctx, supabase.SignUpRequest{Email: email, Password: password})
	if err != nil {
		return nil, mapSupabaseError(err)
	}
	out := toSession(res, email)
	if out.Pending() && out.Identity.ID == "" {
		return nil, fmt.Errorf("auth service: sign-up returned no identity")
	}
	return out, nil
}

func (s *Supabase) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := s.Client.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, mapSupabaseError(err)
	}
	return toSession(res, email), nil
}

func (s *Supabase) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	res, err := s.Client.RefreshToken(ctx, strings.TrimSpace(refreshToken))
	if err != nil {
		return nil, mapSupabaseError(err)
	}
	return toSession(res, ""), nil
}

// SignOut revokes through the hosted service, which always ends every
// session of the identity; refreshToken is ignored.
func (s *Supabase) SignOut(ctx context.Context, accessToken, _ string) error {
	if accessToken == "" {
		return ErrInvalidToken
	}
	if err := s.Client.SignOut(ctx, accessToken); err != nil {
		return mapSupabaseError(err)
	}
	return nil
}

func (s *Supabase) Verify(ctx context.Context, accessToken string) (session.Identity, error) {
	if s.JWTSecret != "" {
		claims, err := utils.ParseAccessToken(s.JWTSecret, accessToken)
		if err != nil {
			return session.Identity{}, ErrInvalidToken
		}
		return session.Identity{ID: claims.Subject, Email: claims.Email}, nil
	}
	u, err := s.Client.GetUser(ctx, accessToken)
	if err != nil {
		return session.Identity{}, mapSupabaseError(err)
	}
	return session.Identity{ID: u.ID, Email: u.Email}, nil
}

func toSession(res *supabase.Session, email string) *Session {
	out := &Session{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	}
	if res.AccessToken != "" {
		out.AccessExpiresAt = time.Now().UTC().Add(time.Duration(res.ExpiresIn) * time.Second)
	}
	if res.ExpiresAt > 0 {
		out.AccessExpiresAt = time.Unix(res.ExpiresAt, 0).UTC()
	}
	if res.User != nil {
		out.Identity = session.Identity{ID: res.User.ID, Email: res.User.Email}
	}
	if out.Identity.Email == "" {
		out.Identity.Email = email
	}
	return out
}

func mapSupabaseError(err error) error {
	var apiErr *supabase.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("auth service: %w", err)
	}
	switch {
	case apiErr.Code == "user_already_exists" || apiErr.Code == "email_exists" ||
		apiErr.StatusCode == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(apiErr.Message), "already registered"):
		return ErrEmailTaken
	case apiErr.Code == "invalid_grant" || apiErr.Code == "invalid_credentials":
		if strings.Contains(strings.ToLower(apiErr.Message), "refresh") {
			return ErrInvalidToken
		}
		return ErrInvalidCredentials
	case apiErr.Code == "refresh_token_not_found" || apiErr.Code == "bad_jwt" ||
		apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
		return ErrInvalidToken
	}
	return fmt.Errorf("auth service: %w", err)
}
