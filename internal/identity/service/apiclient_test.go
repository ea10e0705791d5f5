package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAPIClientLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := &APIClientService{Store: newTestStore(t)}

	client, err := svc.Create(ctx, "companion-backend")
	require.NoError(t, err)
	require.NotEmpty(t, client.APIKey)
	require.True(t, client.Active)

	ok, err := svc.Authenticate(ctx, client.APIKey)
	require.NoError(t, err)
	require.True(t, ok)

	t.Run("unknown key", func(t *testing.T) {
		ok, err := svc.Authenticate(ctx, "not-a-key")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("empty key", func(t *testing.T) {
		ok, err := svc.Authenticate(ctx, "")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("deactivated key stops authenticating", func(t *testing.T) {
		require.NoError(t, svc.SetActive(ctx, client.ID, false))

		ok, err := svc.Authenticate(ctx, client.APIKey)
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, svc.SetActive(ctx, client.ID, true))
		ok, err = svc.Authenticate(ctx, client.APIKey)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("unknown client id", func(t *testing.T) {
		require.ErrorIs(t, svc.SetActive(ctx, 9999, false), ErrClientNotFound)
	})

	clients, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
}

func TestAPIClientBootstrap(t *testing.T) {
	ctx := context.Background()
	svc := &APIClientService{Store: newTestStore(t)}

	t.Run("empty key is a no-op", func(t *testing.T) {
		require.NoError(t, svc.Bootstrap(ctx, "bootstrap", ""))

		clients, err := svc.List(ctx)
		require.NoError(t, err)
		require.Empty(t, clients)
	})

	require.NoError(t, svc.Bootstrap(ctx, "bootstrap", "seed-key"))

	ok, err := svc.Authenticate(ctx, "seed-key")
	require.NoError(t, err)
	require.True(t, ok)

	t.Run("second bootstrap does not reseed", func(t *testing.T) {
		require.NoError(t, svc.Bootstrap(ctx, "bootstrap-2", "other-key"))

		clients, err := svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, clients, 1)
	})
}
