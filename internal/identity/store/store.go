package store

import (
	"context"
	"errors"
	"time"

	"github.com/kestrelworks/identity/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrEmailTaken    = errors.New("store: email already exists")
	ErrUsernameTaken = errors.New("store: username already exists")
)

// Store is the root data access interface. Concrete drivers implement it and
// expose sub-repositories to keep concerns tidy and testable.
type Store interface {
	Users() Users
	VerificationCodes() VerificationCodes
	ResetTokens() ResetTokens
	APIClients() APIClients

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns
	// nil and rolling back otherwise. Multi-step operations that must be
	// atomic (verification-code consumption, password reset completion)
	// go through here.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by surrogate id.
	GetUserByID(ctx context.Context, id int64) (domain.User, error)

	// GetUserByEmail looks up by normalized email (case-insensitive).
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUserByOAuth looks up by the (provider, oauth_id) pair.
	GetUserByOAuth(ctx context.Context, provider, oauthID string) (domain.User, error)

	// CreateUser inserts a new user and returns it with the assigned id.
	// Uniqueness violations map to ErrEmailTaken / ErrUsernameTaken.
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)

	// UpdateProfile partially updates username and picture; nil fields
	// keep their prior values.
	UpdateProfile(ctx context.Context, userID int64, username, picture *string) error

	// FillProfileGaps sets username and picture only where the stored
	// value is absent. Provider-supplied data never overwrites a value
	// the user chose themselves.
	FillProfileGaps(ctx context.Context, userID int64, username, picture string) error

	// AttachOAuth links the OAuth pair to an existing user and marks the
	// email verified (providers are trusted for email ownership).
	AttachOAuth(ctx context.Context, userID int64, provider, oauthID string) error

	// SetUsernameAndPassword completes a multi-step signup.
	SetUsernameAndPassword(ctx context.Context, userID int64, username, passwordHash string) error

	// SetPasswordHash replaces the password credential.
	SetPasswordHash(ctx context.Context, userID int64, passwordHash string) error

	// MarkEmailVerified flips is_email_verified.
	MarkEmailVerified(ctx context.Context, userID int64) error

	// SetRole changes the user's role.
	SetRole(ctx context.Context, userID int64, role domain.Role) error

	// ListUsers returns all users ordered by id.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// DeleteUser removes a user; codes and tokens cascade per schema.
	DeleteUser(ctx context.Context, userID int64) error
}

type VerificationCodes interface {
	// Upsert stores a code for the user, replacing any existing one so at
	// most one live code exists per user.
	Upsert(ctx context.Context, userID int64, code string, expiresAt time.Time) error

	// GetByUserID returns the user's live code row, if any.
	GetByUserID(ctx context.Context, userID int64) (domain.VerificationCode, error)

	// DeleteByUserID removes the user's code (single-use consumption).
	DeleteByUserID(ctx context.Context, userID int64) error
}

type ResetTokens interface {
	// Upsert stores a reset token for the user, replacing and
	// re-arming any prior issuance.
	Upsert(ctx context.Context, userID int64, token string, expiresAt time.Time) error

	// Consume atomically transitions the token unused -> used and returns
	// the owning user id. Unknown, expired and already-used tokens all
	// return ErrNotFound; under concurrent calls at most one succeeds.
	Consume(ctx context.Context, token string, now time.Time) (int64, error)

	// DeleteByUserID invalidates any remaining tokens for the user.
	DeleteByUserID(ctx context.Context, userID int64) error
}

type APIClients interface {
	// GetActiveByKey returns the active client owning the key.
	GetActiveByKey(ctx context.Context, key string) (domain.APIClient, error)

	// CreateAPIClient inserts a client and returns it with the assigned id.
	CreateAPIClient(ctx context.Context, c domain.APIClient) (domain.APIClient, error)

	// ListAPIClients returns all clients ordered by id.
	ListAPIClients(ctx context.Context) ([]domain.APIClient, error)

	// SetActive enables or disables a client's key.
	SetActive(ctx context.Context, id int64, active bool) error

	// IsEmpty reports whether any clients exist (bootstrap check).
	IsEmpty(ctx context.Context) (bool, error)
}
