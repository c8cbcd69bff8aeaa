package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	authsvc "shortlet/internal/app/services/auth"
	domainauth "shortlet/internal/domain/auth"
	domainuser "shortlet/internal/domain/user"
	"shortlet/internal/infra/security"
	"shortlet/internal/infra/storage/memory"
)

type fixture struct {
	svc   *authsvc.Service
	users *memory.UserRepository
	now   time.Time
}

func newFixture() *fixture {
	f := &fixture{
		users: memory.NewUserRepository(),
		now:   time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC),
	}
	f.svc = &authsvc.Service{
		Users:      f.users,
		Sessions:   memory.NewSessionStore(),
		Passwords:  security.BcryptHasher{Cost: bcrypt.MinCost},
		Tokens:     security.RandomTokenGenerator{Size: 16},
		SessionTTL: time.Hour,
		Clock:      func() time.Time { return f.now },
	}
	return f
}

func TestRegisterAssignsRealtorRole(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.svc.Register(ctx, authsvc.RegisterParams{Email: " Ada@Example.com ", Name: "Ada", Password: "long-enough", AsRealtor: true})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", res.User.Email)
	assert.True(t, res.User.HasRole(domainuser.RoleRealtor))
	assert.NotEmpty(t, res.Token)

	_, err = f.svc.Register(ctx, authsvc.RegisterParams{Email: "ada@example.com", Name: "Other", Password: "long-enough"})
	assert.ErrorIs(t, err, domainuser.ErrEmailAlreadyUsed)

	_, err = f.svc.Register(ctx, authsvc.RegisterParams{Email: "bob@example.com", Name: "Bob", Password: "short"})
	assert.ErrorIs(t, err, authsvc.ErrPasswordTooShort)
}

func TestSessionExpiresOnServiceClock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	res, err := f.svc.Register(ctx, authsvc.RegisterParams{Email: "ada@example.com", Name: "Ada", Password: "long-enough"})
	require.NoError(t, err)

	resolved, err := f.svc.ResolveToken(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, resolved.User.ID)

	f.now = f.now.Add(time.Hour)
	_, err = f.svc.ResolveToken(ctx, res.Token)
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}

func TestLoginRejectsBadPasswordAndBlockedUsers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	res, err := f.svc.Register(ctx, authsvc.RegisterParams{Email: "ada@example.com", Name: "Ada", Password: "long-enough"})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, authsvc.LoginParams{Email: "ada@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, authsvc.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, authsvc.LoginParams{Email: "nobody@example.com", Password: "long-enough"})
	assert.ErrorIs(t, err, authsvc.ErrInvalidCredentials)

	user, err := f.users.ByID(ctx, res.User.ID)
	require.NoError(t, err)
	user.Block("chargebacks", f.now)
	require.NoError(t, f.users.Save(ctx, user))

	_, err = f.svc.Login(ctx, authsvc.LoginParams{Email: "ada@example.com", Password: "long-enough"})
	assert.ErrorIs(t, err, domainuser.ErrBlocked)
	_, err = f.svc.ResolveToken(ctx, res.Token)
	assert.ErrorIs(t, err, domainuser.ErrBlocked)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.svc.EnsureAdmin(ctx, "ops@example.com", "admin-password"))
	require.NoError(t, f.svc.EnsureAdmin(ctx, "OPS@example.com", "another-password"))

	res, err := f.svc.Login(ctx, authsvc.LoginParams{Email: "ops@example.com", Password: "admin-password"})
	require.NoError(t, err)
	assert.True(t, res.User.HasRole(domainuser.RoleAdmin))
}
