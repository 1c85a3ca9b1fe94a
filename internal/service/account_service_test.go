package service

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinsforstudy/backend/internal/auth"
	"github.com/coinsforstudy/backend/internal/model"
	"github.com/coinsforstudy/backend/internal/notification"
	"github.com/coinsforstudy/backend/internal/progress"
	"github.com/coinsforstudy/backend/internal/repository"
	"github.com/coinsforstudy/backend/internal/role"
	"github.com/coinsforstudy/backend/internal/session"
)

type stubProvider struct {
	signedOut []string
}

func (p *stubProvider) SignUp(_ context.Context, email, _ string) (*auth.Session, error) {
	return &auth.Session{Identity: session.Identity{ID: "auth-" + email, Email: email}, AccessToken: "at"}, nil
}

func (p *stubProvider) SignIn(_ context.Context, email, password string) (*auth.Session, error) {
	if password != "ok" {
		return nil, auth.ErrInvalidCredentials
	}
	return &auth.Session{Identity: session.Identity{ID: "auth-" + email, Email: email}}, nil
}

func (p *stubProvider) Refresh(context.Context, string) (*auth.Session, error) {
	return nil, auth.ErrInvalidToken
}

func (p *stubProvider) SignOut(_ context.Context, access, _ string) error {
	p.signedOut = append(p.signedOut, access)
	return nil
}

func (p *stubProvider) Verify(_ context.Context, token string) (session.Identity, error) {
	if token == "at-amy" {
		return session.Identity{ID: "auth-amy"}, nil
	}
	return session.Identity{}, auth.ErrInvalidToken
}

type memUsers struct {
	rows map[string]*model.User
	next uint64
}

func (m *memUsers) Create(_ context.Context, authID, email, r string) (uint64, error) {
	for _, u := range m.rows {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	m.next++
	m.rows[authID] = &model.User{ID: m.next, AuthID: authID, Email: email, Role: r}
	return m.next, nil
}

func (m *memUsers) GetByAuthID(_ context.Context, authID string) (*model.User, error) {
	if u, ok := m.rows[authID]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

type memProfiles struct{ rows map[uint64]model.Profile }

func (m *memProfiles) GetByUserID(_ context.Context, id uint64) (*model.Profile, error) {
	if p, ok := m.rows[id]; ok {
		return &p, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memProfiles) Upsert(_ context.Context, p model.Profile) error {
	m.rows[p.UserID] = p
	return nil
}

func newAccounts(t *testing.T) (*AccountService, *stubProvider) {
	t.Helper()
	log, _ := test.NewNullLogger()
	users := &memUsers{rows: map[string]*model.User{}}
	profiles := &memProfiles{rows: map[uint64]model.Profile{}}
	prov := &stubProvider{}
	return &AccountService{
		Provider:      prov,
		Users:         users,
		Profiles:      profiles,
		Resolver:      session.NewResolver(users, profiles, session.NewMemoryCache(time.Minute), log),
		Notifications: notification.NewStore(log),
		Progress:      progress.NewRegistry("progress", progress.NewMemoryStorage()),
		Log:           log,
	}, prov
}

func TestRegisterCreatesUserProfileAndWelcome(t *testing.T) {
	svc, _ := newAccounts(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, RegisterInput{Email: "amy", Password: "pw", DisplayName: "Amy", Role: "Teacher"})
	require.NoError(t, err)
	assert.Equal(t, "auth-amy", sess.Identity.ID)

	res := svc.Resolver.Resolve(session.WithIdentity(ctx, sess.Identity))
	require.NotNil(t, res)
	assert.Equal(t, role.Teacher, res.Role)
	assert.Equal(t, "Amy", res.Profile.DisplayName)

	inbox := svc.Notifications.ListFor("auth-amy")
	require.Len(t, inbox, 1)
	assert.Equal(t, "account", inbox[0].Category)
	assert.Empty(t, svc.Notifications.ListFor("auth-bob"))
}

func TestRegisterRejectsAdmin(t *testing.T) {
	svc, _ := newAccounts(t)
	for _, r := range []string{"admin", "wizard"} {
		_, err := svc.Register(context.Background(), RegisterInput{Email: "amy", Password: "pw", Role: r})
		assert.ErrorIs(t, err, ErrRoleNotAllowed)
	}
}

func TestRegisterDefaultsToStudent(t *testing.T) {
	svc, _ := newAccounts(t)
	sess, err := svc.Register(context.Background(), RegisterInput{Email: "amy", Password: "pw"})
	require.NoError(t, err)

	res := svc.Resolver.Resolve(session.WithIdentity(context.Background(), sess.Identity))
	require.NotNil(t, res)
	assert.Equal(t, role.Student, res.Role)
	assert.False(t, res.RoleDefaulted)
}

func TestUpdateProfileInvalidatesCache(t *testing.T) {
	svc, _ := newAccounts(t)
	ctx := context.Background()
	sess, err := svc.Register(ctx, RegisterInput{Email: "amy", Password: "pw", DisplayName: "Amy"})
	require.NoError(t, err)
	signed := session.WithIdentity(ctx, sess.Identity)
	require.NotNil(t, svc.Resolver.Resolve(signed))

	res, err := svc.UpdateProfile(signed, sess.Identity.ID, ProfileUpdate{DisplayName: "Amelia", PhotoURL: "/a.png"})
	require.NoError(t, err)
	assert.Equal(t, "Amelia", res.Profile.DisplayName)
	assert.Equal(t, "Amelia", svc.Resolver.Resolve(signed).Profile.DisplayName)
}

func TestUpdateProfileWithoutUserRow(t *testing.T) {
	svc, _ := newAccounts(t)
	_, err := svc.UpdateProfile(context.Background(), "ghost", ProfileUpdate{DisplayName: "x"})
	assert.ErrorIs(t, err, session.ErrNoProfile)
}

func TestLogoutDropsProgressState(t *testing.T) {
	svc, prov := newAccounts(t)
	tr := svc.Progress.Tracker(ProgressScope("auth-amy", "math"))
	tr.UpdateLive("lesson-1", 40)

	require.NoError(t, svc.Logout(context.Background(), "at-amy", ""))
	assert.Equal(t, []string{"at-amy"}, prov.signedOut)
	assert.NotSame(t, tr, svc.Progress.Tracker(ProgressScope("auth-amy", "math")))
}
