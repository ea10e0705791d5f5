package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kestrelworks/identity/internal/identity/domain"
	"github.com/kestrelworks/identity/internal/identity/store"
	"github.com/kestrelworks/identity/pkg/cryptox"
	"github.com/kestrelworks/identity/pkg/slogx"
)

// APIClientService manages the database-backed keys that gate the internal
// service-to-service API.
type APIClientService struct {
	Store store.Store
}

// Authenticate reports whether the key belongs to an active client. Unknown
// and deactivated keys are both a plain false.
func (s *APIClientService) Authenticate(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}

	_, err := s.Store.APIClients().GetActiveByKey(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Create registers a client with a freshly generated key. The key is only
// returned here; callers must capture it.
func (s *APIClientService) Create(ctx context.Context, name string) (domain.APIClient, error) {
	key, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.APIClient{}, err
	}

	client, err := s.Store.APIClients().CreateAPIClient(ctx, domain.APIClient{
		Name:   name,
		APIKey: key,
		Active: true,
	})
	if err != nil {
		return domain.APIClient{}, err
	}

	slogx.FromContext(ctx).Info("api client created",
		slog.Int64("client_id", client.ID),
		slog.String("name", client.Name))
	return client, nil
}

// List returns all clients, active or not.
func (s *APIClientService) List(ctx context.Context) ([]domain.APIClient, error) {
	return s.Store.APIClients().ListAPIClients(ctx)
}

// SetActive toggles a client's key without deleting its row.
func (s *APIClientService) SetActive(ctx context.Context, id int64, active bool) error {
	err := s.Store.APIClients().SetActive(ctx, id, active)
	if errors.Is(err, store.ErrNotFound) {
		return ErrClientNotFound
	}
	if err == nil {
		slogx.FromContext(ctx).Info("api client toggled",
			slog.Int64("client_id", id),
			slog.Bool("active", active))
	}
	return err
}

// Bootstrap seeds the first client from configuration so a fresh deployment
// has a usable internal API key. It only acts when the table is empty and a
// key was configured.
func (s *APIClientService) Bootstrap(ctx context.Context, name, key string) error {
	if key == "" {
		return nil
	}

	empty, err := s.Store.APIClients().IsEmpty(ctx)
	if err != nil || !empty {
		return err
	}

	if _, err := s.Store.APIClients().CreateAPIClient(ctx, domain.APIClient{
		Name:   name,
		APIKey: key,
		Active: true,
	}); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("bootstrap api client seeded",
		slog.String("name", name))
	return nil
}
