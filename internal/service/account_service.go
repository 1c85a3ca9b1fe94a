// Package service holds the use cases that span the auth provider, the
// user tables and the in-memory stores.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/coinsforstudy/backend/internal/auth"
	"github.com/coinsforstudy/backend/internal/model"
	"github.com/coinsforstudy/backend/internal/notification"
	"github.com/coinsforstudy/backend/internal/progress"
	"github.com/coinsforstudy/backend/internal/repository"
	"github.com/coinsforstudy/backend/internal/role"
	"github.com/coinsforstudy/backend/internal/session"
)

// ErrRoleNotAllowed is returned when self-registration asks for a role that
// must be granted by an administrator.
var ErrRoleNotAllowed = errors.New("role cannot be self-assigned")

// UserStore is the users table.
type UserStore interface {
	Create(ctx context.Context, authID, email, role string) (uint64, error)
	GetByAuthID(ctx context.Context, authID string) (*model.User, error)
}

// ProfileStore is the profiles table.
type ProfileStore interface {
	GetByUserID(ctx context.Context, userID uint64) (*model.Profile, error)
	Upsert(ctx context.Context, p model.Profile) error
}

// RegisterInput is a self-registration request.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Role        string
}

// ProfileUpdate carries editable profile fields.
type ProfileUpdate struct {
	DisplayName string
	PhotoURL    string
}

// AccountService implements registration, sign-in and profile editing.
type AccountService struct {
	Provider      auth.Provider
	Users         UserStore
	Profiles      ProfileStore
	Resolver      *session.Resolver
	Notifications *notification.Store
	Progress      *progress.Registry
	Log           logrus.FieldLogger
}

// Register creates the identity, its user row and profile, and greets the
// new user with a notification. Only student and teacher may be chosen;
// an empty role means student.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*auth.Session, error) {
	r := role.Student
	if in.Role != "" {
		parsed, ok := role.Parse(in.Role)
		if !ok || parsed == role.Admin {
			return nil, ErrRoleNotAllowed
		}
		r = parsed
	}

	sess, err := s.Provider.SignUp(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	id := sess.Identity

	userID, err := s.Users.Create(ctx, id.ID, id.Email, r.String())
	if err != nil {
		s.Log.WithError(err).WithField("auth_id", id.ID).Error("identity created without user row")
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, auth.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	if err := s.Profiles.Upsert(ctx, model.Profile{UserID: userID, DisplayName: in.DisplayName}); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	s.Notifications.Create(ctx, notification.Draft{
		Message:    "Welcome to Coins for Study!",
		Category:   "account",
		Recipients: []string{id.ID},
	})
	s.Log.WithFields(logrus.Fields{"auth_id": id.ID, "user_id": userID, "role": r}).Info("user registered")
	return sess, nil
}

func (s *AccountService) Login(ctx context.Context, email, password string) (*auth.Session, error) {
	return s.Provider.SignIn(ctx, email, password)
}

func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*auth.Session, error) {
	return s.Provider.Refresh(ctx, refreshToken)
}

// Logout ends the session at the provider and forgets the identity's
// in-memory state.
func (s *AccountService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	var id session.Identity
	if accessToken != "" {
		if v, err := s.Provider.Verify(ctx, accessToken); err == nil {
			id = v
		}
	}
	if err := s.Provider.SignOut(ctx, accessToken, refreshToken); err != nil {
		return err
	}
	if id.ID != "" {
		s.Progress.DropPrefix(ProgressScope(id.ID, ""))
		s.Resolver.Invalidate(ctx, id.ID)
	}
	return nil
}

// Profile returns the resolution of the signed-in identity on ctx.
func (s *AccountService) Profile(ctx context.Context) (*session.Resolution, error) {
	return s.Resolver.Lookup(ctx)
}

// UpdateProfile stores new display fields and returns the fresh resolution.
// The cached resolution is invalidated before the write so a lookup
// running concurrently cannot cache the old values.
func (s *AccountService) UpdateProfile(ctx context.Context, authID string, up ProfileUpdate) (*session.Resolution, error) {
	u, err := s.Users.GetByAuthID(ctx, authID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, session.ErrNoProfile
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	s.Resolver.Invalidate(ctx, authID)
	if err := s.Profiles.Upsert(ctx, model.Profile{UserID: u.ID, DisplayName: up.DisplayName, PhotoURL: up.PhotoURL}); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	s.Resolver.Invalidate(ctx, authID)
	return s.Resolver.Lookup(ctx)
}

// LandingFor resolves id and returns the dashboard it should land on.
func (s *AccountService) LandingFor(ctx context.Context, id session.Identity) string {
	res := s.Resolver.Resolve(session.WithIdentity(ctx, id))
	if res == nil {
		return role.LandingPath("")
	}
	return role.LandingPath(res.Role)
}

// ProgressScope namespaces a client-chosen scope under the identity so
// users never see each other's values.
func ProgressScope(authID, scope string) string {
	return authID + "." + scope
}
