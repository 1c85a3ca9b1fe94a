package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the GoTrue endpoints of one project.
type Client struct {
	authURL string
	anonKey string
	http    *http.Client
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	if cfg.ProjectURL == "" {
		return nil, fmt.Errorf("project URL is required")
	}
	if cfg.AnonKey == "" {
		return nil, fmt.Errorf("anon key is required")
	}
	baseURL := strings.TrimRight(cfg.ProjectURL, "/")
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid project URL: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{authURL: baseURL + "/auth/v1", anonKey: cfg.AnonKey, http: hc}, nil
}

// SignUp creates a new user. Projects with email confirmation enabled
// return a user without a session; Session.AccessToken is then empty.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*Session, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/signup", req, "", &raw); err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if s.User == nil {
		var u User
		if err := json.Unmarshal(raw, &u); err == nil && u.ID != "" {
			s.User = &u
		}
	}
	return &s, nil
}

// SignInWithPassword authenticates a user with email/password.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=password", body, "", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// RefreshToken exchanges a refresh token for a new session.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	var s Session
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", body, "", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetUser retrieves the user owning accessToken.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/user", nil, accessToken, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SignOut revokes the refresh tokens of the session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, accessToken, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in any, bearer string, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.authURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return parseError(respBody, resp.StatusCode)
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// parseError parses an error response. GoTrue uses several shapes
// depending on the endpoint and version.
func parseError(body []byte, statusCode int) error {
	var errResp struct {
		Code             any    `json:"code"`
		ErrorCode        string `json:"error_code"`
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return &Error{Code: "unknown", Message: string(body), StatusCode: statusCode}
	}

	code := errResp.ErrorCode
	if code == "" {
		if s, ok := errResp.Code.(string); ok {
			code = s
		}
	}
	if code == "" {
		code = errResp.Error
	}
	msg := errResp.Message
	for _, alt := range []string{errResp.Msg, errResp.ErrorDescription, errResp.Error} {
		if msg == "" {
			msg = alt
		}
	}
	return &Error{Code: code, Message: msg, StatusCode: statusCode}
}
