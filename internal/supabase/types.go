// Package supabase is a small client for the hosted GoTrue auth API
// (/auth/v1) used when AUTH_PROVIDER=supabase.
package supabase

import (
	"net/http"
	"time"
)

// Config holds client configuration.
type Config struct {
	// ProjectURL is the project URL (e.g. https://xxx.supabase.co)
	ProjectURL string

	// AnonKey is sent as the apikey header on every request
	AnonKey string

	// Timeout for HTTP requests, 10s when zero
	Timeout time.Duration

	// HTTPClient overrides the default client
	HTTPClient *http.Client
}

// User represents an auth user.
type User struct {
	ID               string         `json:"id"`
	Aud              string         `json:"aud"`
	Role             string         `json:"role"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	LastSignInAt     *time.Time     `json:"last_sign_in_at,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Session represents an auth session.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// SignUpRequest for user registration.
type SignUpRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"`
}

// Error represents an API error.
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}
