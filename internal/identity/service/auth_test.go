package service

import (
	"context"
	"testing"

	"github.com/kestrelworks/identity/internal/identity/domain"
	"github.com/kestrelworks/identity/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()

	st := newTestStore(t)
	return &AuthService{
		Store: st,
		Users: &UserService{Store: st},
		Codec: newTestCodec(),
	}
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)

	user, token, err := svc.Register(ctx, "Alice@Example.COM", "alice", "hunter2!")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email, "email stored normalized")
	require.Equal(t, domain.RoleUser, user.Role)
	require.True(t, user.EmailVerified)
	require.True(t, user.HasPassword())
	require.NotEmpty(t, token)

	claims, err := svc.Codec.Verify(token)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, "user", claims.Role)

	t.Run("login with original casing", func(t *testing.T) {
		got, token, err := svc.Login(ctx, "ALICE@example.com", "hunter2!")
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)
		require.NotEmpty(t, token)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "alice@example.com", "hunter3!")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "nobody@example.com", "hunter2!")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestRegisterConflicts(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)

	_, _, err := svc.Register(ctx, "bob@example.com", "bob", "pw-one-1")
	require.NoError(t, err)

	t.Run("duplicate email", func(t *testing.T) {
		_, _, err := svc.Register(ctx, "BOB@example.com", "robert", "pw-two-2")
		require.ErrorIs(t, err, ErrEmailExists)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, _, err := svc.Register(ctx, "bob2@example.com", "bob", "pw-two-2")
		require.ErrorIs(t, err, ErrUsernameExists)
	})
}

func TestLoginPasswordlessAccount(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)

	// OAuth-only account has no password credential.
	_, _, err := svc.LoginOAuth(ctx, OAuthProfile{
		Provider: "google",
		OAuthID:  "g-123",
		Email:    "carol@example.com",
	})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "carol@example.com", "anything")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSession(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)

	user, token, err := svc.Register(ctx, "dave@example.com", "dave", "pw-dave-1")
	require.NoError(t, err)

	t.Run("valid token loads fresh user", func(t *testing.T) {
		require.NoError(t, svc.Users.SetRole(ctx, user.ID, domain.RoleAdmin))

		got, err := svc.Session(ctx, token)
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)
		require.Equal(t, domain.RoleAdmin, got.Role, "role change visible without re-issue")
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.Session(ctx, "not.a.token")
		require.ErrorIs(t, err, jwtx.ErrInvalid)
	})

	t.Run("deleted user", func(t *testing.T) {
		require.NoError(t, svc.Users.Delete(ctx, user.ID))

		_, err := svc.Session(ctx, token)
		require.ErrorIs(t, err, ErrUserNotFound)
	})
}
