package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coinsforstudy/backend/internal/model"
	"github.com/coinsforstudy/backend/internal/repository"
	"github.com/coinsforstudy/backend/internal/session"
	"github.com/coinsforstudy/backend/internal/utils"
)

// CredentialStore persists email/password credentials.
type CredentialStore interface {
	Create(ctx context.Context, authID, email, password string, cost int) error
	GetByEmail(ctx context.Context, email string) (*model.Credential, error)
	GetByAuthID(ctx context.Context, authID string) (*model.Credential, error)
}

// TokenStore persists hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, authID, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (string, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, authID string) error
}

// LocalConfig holds the token settings of the local provider.
type LocalConfig struct {
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
}

// Local is a self-hosted Provider: bcrypt credentials in MySQL, HS256
// access tokens and rotating refresh tokens stored as SHA-256 hashes.
type Local struct {
	Cfg    LocalConfig
	Creds  CredentialStore
	Tokens TokenStore
}

func NewLocal(cfg LocalConfig, creds CredentialStore, tokens TokenStore) *Local {
	return &Local{Cfg: cfg, Creds: creds, Tokens: tokens}
}

func (l *Local) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	authID := uuid.NewString()
	if err := l.Creds.Create(ctx, authID, email, password, l.Cfg.BcryptCost); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create credential: %w", err)
	}
	return l.issue(ctx, session.Identity{ID: authID, Email: email})
}

func (l *Local) SignIn(ctx context.Context, email, password string) (*Session, error) {
	c, err := l.Creds.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if !utils.VerifyPassword(c.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return l.issue(ctx, session.Identity{ID: c.AuthID, Email: c.Email})
}

// Refresh validates by hash, revokes the old token and issues a new pair.
// Only the caller whose revoke actually updates the row gets a new pair.
func (l *Local) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	hash := utils.HashRefreshRaw(strings.TrimSpace(refreshToken))
	authID, err := l.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("validate refresh: %w", err)
	}
	if err := l.Tokens.RevokeByHash(ctx, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("revoke refresh: %w", err)
	}
	c, err := l.Creds.GetByAuthID(ctx, authID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load credential: %w", err)
	}
	return l.issue(ctx, session.Identity{ID: authID, Email: c.Email})
}

func (l *Local) SignOut(ctx context.Context, accessToken, refreshToken string) error {
	if refreshToken = strings.TrimSpace(refreshToken); refreshToken != "" {
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := l.Tokens.ValidateRefresh(ctx, hash); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidToken
			}
			return err
		}
		if err := l.Tokens.RevokeByHash(ctx, hash); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidToken
			}
			return err
		}
		return nil
	}
	id, err := l.Verify(ctx, accessToken)
	if err != nil {
		return err
	}
	return l.Tokens.RevokeAllForUser(ctx, id.ID)
}

func (l *Local) Verify(_ context.Context, accessToken string) (session.Identity, error) {
	claims, err := utils.ParseAccessToken(l.Cfg.JWTSecret, accessToken)
	if err != nil {
		return session.Identity{}, ErrInvalidToken
	}
	return session.Identity{ID: claims.Subject, Email: claims.Email}, nil
}

func (l *Local) issue(ctx context.Context, id session.Identity) (*Session, error) {
	access, err := utils.NewAccessToken(l.Cfg.JWTSecret, id.ID, id.Email, l.Cfg.AccessTTLMin)
	if err != nil {
		return nil, fmt.Errorf("issue access: %w", err)
	}
	refresh, err := utils.NewRefreshToken(l.Cfg.RefreshTTLDays)
	if err != nil {
		return nil, fmt.Errorf("issue refresh: %w", err)
	}
	if err := l.Tokens.StoreRefresh(ctx, id.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return nil, fmt.Errorf("save refresh: %w", err)
	}
	return &Session{
		Identity:         id,
		AccessToken:      access.Token,
		AccessExpiresAt:  access.Exp,
		RefreshToken:     refresh.Raw,
		RefreshExpiresAt: refresh.Exp,
	}, nil
}
