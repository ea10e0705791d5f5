package sqlite

import (
	"context"
	"time"

	"github.com/kestrelworks/identity/internal/identity/store"
)

type resetTokensRepo struct {
	q dbtx
}

func (r *resetTokensRepo) Upsert(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	// Re-issuing replaces the previous token and re-arms is_used, so only
	// the latest token for a user is ever redeemable.
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO password_reset_tokens (user_id, token, expires_at, is_used)
		 VALUES (?, ?, ?, 0)
		 ON CONFLICT (user_id)
		 DO UPDATE SET token = excluded.token, expires_at = excluded.expires_at, is_used = 0`,
		userID, token, expiresAt.UTC().Unix(),
	)
	return err
}

func (r *resetTokensRepo) Consume(ctx context.Context, token string, now time.Time) (int64, error) {
	// The unused -> used transition is a single conditional UPDATE, so two
	// concurrent consumers can never both observe the token as valid; the
	// loser's UPDATE matches zero rows.
	res, err := r.q.ExecContext(ctx,
		`UPDATE password_reset_tokens
		 SET is_used = 1
		 WHERE token = ? AND is_used = 0 AND expires_at > ?`,
		token, now.UTC().Unix(),
	)
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		// Unknown, expired and already-used all collapse here.
		return 0, store.ErrNotFound
	}

	var userID int64
	row := r.q.QueryRowContext(ctx,
		`SELECT user_id FROM password_reset_tokens WHERE token = ?`, token)
	if err := row.Scan(&userID); err != nil {
		return 0, mapNotFound(err)
	}
	return userID, nil
}

func (r *resetTokensRepo) DeleteByUserID(ctx context.Context, userID int64) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM password_reset_tokens WHERE user_id = ?`, userID)
	return err
}
