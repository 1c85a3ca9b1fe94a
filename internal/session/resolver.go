package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/coinsforstudy/backend/internal/metrics"
	"github.com/coinsforstudy/backend/internal/model"
	"github.com/coinsforstudy/backend/internal/repository"
	"github.com/coinsforstudy/backend/internal/role"
)

var (
	// ErrNoIdentity means the request carries no signed-in identity.
	ErrNoIdentity = errors.New("no identity")
	// ErrNoProfile means the identity has no user row.
	ErrNoProfile = errors.New("no user for identity")
)

// UserProfile is the resolved view of a signed-in user.
type UserProfile struct {
	UserID      uint64    `json:"user_id"`
	AuthID      string    `json:"auth_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        role.Role `json:"role"`
	PhotoURL    string    `json:"photo_url,omitempty"`
}

// Resolution is the outcome of a successful lookup. RoleDefaulted is set
// when the stored role was empty or unrecognised and Role fell back to
// student.
type Resolution struct {
	Role          role.Role   `json:"role"`
	RoleDefaulted bool        `json:"role_defaulted"`
	Profile       UserProfile `json:"profile"`
}

// Users finds the user row bound to an identity.
type Users interface {
	GetByAuthID(ctx context.Context, authID string) (*model.User, error)
}

// Profiles finds the display profile of a user.
type Profiles interface {
	GetByUserID(ctx context.Context, userID uint64) (*model.Profile, error)
}

// Resolver turns the current identity into a Resolution. Steps run in order
// and each depends on the previous one: identity, user row, role, profile.
type Resolver struct {
	Source   IdentitySource
	users    Users
	profiles Profiles
	cache    Cache
	log      logrus.FieldLogger
}

// NewResolver builds a Resolver reading identities from the request context.
// cache may be nil.
func NewResolver(users Users, profiles Profiles, cache Cache, log logrus.FieldLogger) *Resolver {
	return &Resolver{
		Source:   ContextSource{},
		users:    users,
		profiles: profiles,
		cache:    cache,
		log:      log,
	}
}

// Resolve returns the current user's resolution, or nil when there is no
// identity, no user row, or any lookup fails. Failures are logged and never
// returned.
func (r *Resolver) Resolve(ctx context.Context) *Resolution {
	res, err := r.Lookup(ctx)
	switch {
	case err == nil:
		metrics.RecordResolution("resolved")
		return res
	case errors.Is(err, ErrNoIdentity):
		metrics.RecordResolution("no_identity")
	case errors.Is(err, ErrNoProfile):
		metrics.RecordResolution("no_profile")
		r.log.WithField("auth_id", authIDOf(ctx, r.Source)).Warn("identity has no user row")
	default:
		metrics.RecordResolution("error")
		r.log.WithError(err).WithField("auth_id", authIDOf(ctx, r.Source)).Error("session lookup failed")
	}
	return nil
}

// Lookup is Resolve without collapsing failures: it returns ErrNoIdentity,
// ErrNoProfile or the wrapped lookup error.
func (r *Resolver) Lookup(ctx context.Context) (*Resolution, error) {
	id, ok := r.Source.Current(ctx)
	if !ok {
		return nil, ErrNoIdentity
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var gen uint64
	if r.cache != nil {
		if res, ok := r.cache.Get(ctx, id.ID); ok {
			return res, nil
		}
		gen = r.cache.Generation(ctx, id.ID)
	}

	u, err := r.users.GetByAuthID(ctx, id.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoProfile
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	rl, known := role.Parse(u.Role)
	rl = role.OrDefault(rl)

	p, err := r.profiles.GetByUserID(ctx, u.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup profile: %w", err)
	}

	email := u.Email
	if email == "" {
		email = id.Email
	}
	res := &Resolution{
		Role:          rl,
		RoleDefaulted: !known,
		Profile: UserProfile{
			UserID: u.ID,
			AuthID: u.AuthID,
			Email:  email,
			Role:   rl,
		},
	}
	if p != nil {
		res.Profile.DisplayName = p.DisplayName
		res.Profile.PhotoURL = p.PhotoURL
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Set(ctx, id.ID, gen, res)
	}
	return res, nil
}

// Invalidate drops any cached resolution for authID. Lookups that started
// before the call will not write their result back.
func (r *Resolver) Invalidate(ctx context.Context, authID string) {
	if r.cache != nil {
		r.cache.Invalidate(ctx, authID)
	}
}

func authIDOf(ctx context.Context, src IdentitySource) string {
	if id, ok := src.Current(ctx); ok {
		return id.ID
	}
	return ""
}
