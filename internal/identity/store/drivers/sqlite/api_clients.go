package sqlite

import (
	"context"
	"time"

	"github.com/kestrelworks/identity/internal/identity/domain"
)

type apiClientsRepo struct {
	q dbtx
}

func (r *apiClientsRepo) GetActiveByKey(ctx context.Context, key string) (domain.APIClient, error) {
	var (
		c       domain.APIClient
		created int64
	)

	row := r.q.QueryRowContext(ctx,
		`SELECT id, name, api_key, is_active, created_at
		 FROM api_clients
		 WHERE api_key = ? AND is_active = 1`, key)
	if err := row.Scan(&c.ID, &c.Name, &c.APIKey, &c.Active, &created); err != nil {
		return domain.APIClient{}, mapNotFound(err)
	}

	c.CreatedAt = time.Unix(created, 0).UTC()
	return c, nil
}

func (r *apiClientsRepo) CreateAPIClient(ctx context.Context, c domain.APIClient) (domain.APIClient, error) {
	now := time.Now().UTC()

	res, err := r.q.ExecContext(ctx,
		`INSERT INTO api_clients (name, api_key, is_active, created_at)
		 VALUES (?, ?, ?, ?)`,
		c.Name, c.APIKey, c.Active, now.Unix(),
	)
	if err != nil {
		return domain.APIClient{}, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.APIClient{}, err
	}

	c.ID = id
	c.CreatedAt = now
	return c, nil
}

func (r *apiClientsRepo) ListAPIClients(ctx context.Context) ([]domain.APIClient, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, name, api_key, is_active, created_at
		 FROM api_clients ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []domain.APIClient
	for rows.Next() {
		var (
			c       domain.APIClient
			created int64
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.APIKey, &c.Active, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = time.Unix(created, 0).UTC()
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *apiClientsRepo) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE api_clients SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *apiClientsRepo) IsEmpty(ctx context.Context) (bool, error) {
	var n int64
	row := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM api_clients`)
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n == 0, nil
}
