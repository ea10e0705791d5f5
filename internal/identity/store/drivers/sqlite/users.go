package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/kestrelworks/identity/internal/identity/domain"
)

const userColumns = `id, email, username, password_hash, role, oauth_provider,
	oauth_id, profile_picture_url, is_email_verified, created_at, updated_at`

type usersRepo struct {
	q dbtx
}

func (r *usersRepo) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) GetUserByOAuth(ctx context.Context, provider, oauthID string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE oauth_provider = ? AND oauth_id = ?`,
		provider, oauthID)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	now := time.Now().UTC()

	res, err := r.q.ExecContext(ctx,
		`INSERT INTO users (email, username, password_hash, role, oauth_provider,
			oauth_id, profile_picture_url, is_email_verified, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Email,
		mapStringNull(u.Username),
		mapStringNull(u.PasswordHash),
		string(u.Role),
		mapStringNull(u.OAuthProvider),
		mapStringNull(u.OAuthID),
		mapStringNull(u.ProfilePictureURL),
		u.EmailVerified,
		now.Unix(),
		now.Unix(),
	)
	if err != nil {
		return domain.User{}, mapUserConflict(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.User{}, err
	}

	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	return u, nil
}

func (r *usersRepo) UpdateProfile(ctx context.Context, userID int64, username, picture *string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users
		 SET username = COALESCE(?, username),
		     profile_picture_url = COALESCE(?, profile_picture_url),
		     updated_at = ?
		 WHERE id = ?`,
		mapOptionalString(username),
		mapOptionalString(picture),
		time.Now().UTC().Unix(),
		userID,
	)
	if err != nil {
		return mapUserConflict(err)
	}
	return requireRow(res)
}

func (r *usersRepo) FillProfileGaps(ctx context.Context, userID int64, username, picture string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users
		 SET username = COALESCE(username, ?),
		     profile_picture_url = COALESCE(profile_picture_url, ?),
		     updated_at = ?
		 WHERE id = ?`,
		mapStringNull(username),
		mapStringNull(picture),
		time.Now().UTC().Unix(),
		userID,
	)
	if err != nil {
		return mapUserConflict(err)
	}
	return requireRow(res)
}

func (r *usersRepo) AttachOAuth(ctx context.Context, userID int64, provider, oauthID string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users
		 SET oauth_provider = ?, oauth_id = ?, is_email_verified = 1, updated_at = ?
		 WHERE id = ?`,
		provider, oauthID, time.Now().UTC().Unix(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) SetUsernameAndPassword(ctx context.Context, userID int64, username, passwordHash string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET username = ?, password_hash = ?, updated_at = ? WHERE id = ?`,
		mapStringNull(username), passwordHash, time.Now().UTC().Unix(), userID,
	)
	if err != nil {
		return mapUserConflict(err)
	}
	return requireRow(res)
}

func (r *usersRepo) SetPasswordHash(ctx context.Context, userID int64, passwordHash string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC().Unix(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) MarkEmailVerified(ctx context.Context, userID int64) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET is_email_verified = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Unix(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) SetRole(ctx context.Context, userID int64, role domain.Role) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		string(role), time.Now().UTC().Unix(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row *sql.Row) (domain.User, error) {
	u, err := scanUserRow(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func scanUserRow(row rowScanner) (domain.User, error) {
	var (
		u                  domain.User
		role               string
		username           sql.NullString
		passwordHash       sql.NullString
		provider           sql.NullString
		oauthID            sql.NullString
		picture            sql.NullString
		createdAt, updated int64
	)

	err := row.Scan(
		&u.ID,
		&u.Email,
		&username,
		&passwordHash,
		&role,
		&provider,
		&oauthID,
		&picture,
		&u.EmailVerified,
		&createdAt,
		&updated,
	)
	if err != nil {
		return domain.User{}, err
	}

	u.Username = mapNullString(username)
	u.PasswordHash = mapNullString(passwordHash)
	u.Role = domain.Role(role)
	u.OAuthProvider = mapNullString(provider)
	u.OAuthID = mapNullString(oauthID)
	u.ProfilePictureURL = mapNullString(picture)
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	u.UpdatedAt = time.Unix(updated, 0).UTC()
	return u, nil
}
