package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/kestrelworks/identity/internal/identity/domain"
	"github.com/kestrelworks/identity/internal/identity/store"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()

	st, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	st := newStore(t)
	require.NoError(t, st.ApplyMigrations(), "re-running is a no-op")
}

func TestUniqueConstraintMapping(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	_, err := st.Users().CreateUser(ctx, domain.User{
		Email: "a@example.com", Username: "a", Role: domain.RoleUser,
	})
	require.NoError(t, err)

	_, err = st.Users().CreateUser(ctx, domain.User{
		Email: "a@example.com", Username: "b", Role: domain.RoleUser,
	})
	require.ErrorIs(t, err, store.ErrEmailTaken)

	_, err = st.Users().CreateUser(ctx, domain.User{
		Email: "b@example.com", Username: "a", Role: domain.RoleUser,
	})
	require.ErrorIs(t, err, store.ErrUsernameTaken)
}

func TestEmptyUsernamesDoNotCollide(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	// Absent usernames are stored as NULL, which the partial unique index
	// ignores, so any number of placeholder accounts can coexist.
	u1, err := st.Users().CreateUser(ctx, domain.User{Email: "p1@example.com", Role: domain.RoleUser})
	require.NoError(t, err)
	u2, err := st.Users().CreateUser(ctx, domain.User{Email: "p2@example.com", Role: domain.RoleUser})
	require.NoError(t, err)
	require.NotEqual(t, u1.ID, u2.ID)

	got, err := st.Users().GetUserByID(ctx, u1.ID)
	require.NoError(t, err)
	require.Empty(t, got.Username)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Users().CreateUser(ctx, domain.User{
			Email: "tx@example.com", Role: domain.RoleUser,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = st.Users().GetUserByEmail(ctx, "tx@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestNotFoundMapping(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	_, err := st.Users().GetUserByID(ctx, 42)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.ErrorIs(t, st.Users().SetRole(ctx, 42, domain.RoleAdmin), store.ErrNotFound)
	require.ErrorIs(t, st.Users().DeleteUser(ctx, 42), store.ErrNotFound)
	require.ErrorIs(t, st.VerificationCodes().DeleteByUserID(ctx, 42), store.ErrNotFound)
}
