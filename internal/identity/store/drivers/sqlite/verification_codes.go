package sqlite

import (
	"context"
	"time"

	"github.com/kestrelworks/identity/internal/identity/domain"
)

type verificationCodesRepo struct {
	q dbtx
}

func (r *verificationCodesRepo) Upsert(ctx context.Context, userID int64, code string, expiresAt time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO verification_codes (user_id, code, expires_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_id)
		 DO UPDATE SET code = excluded.code, expires_at = excluded.expires_at`,
		userID, code, expiresAt.UTC().Unix(),
	)
	return err
}

func (r *verificationCodesRepo) GetByUserID(ctx context.Context, userID int64) (domain.VerificationCode, error) {
	var (
		c       domain.VerificationCode
		expires int64
	)

	row := r.q.QueryRowContext(ctx,
		`SELECT user_id, code, expires_at FROM verification_codes WHERE user_id = ?`,
		userID)
	if err := row.Scan(&c.UserID, &c.Code, &expires); err != nil {
		return domain.VerificationCode{}, mapNotFound(err)
	}

	c.ExpiresAt = time.Unix(expires, 0).UTC()
	return c, nil
}

func (r *verificationCodesRepo) DeleteByUserID(ctx context.Context, userID int64) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM verification_codes WHERE user_id = ?`, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}
