package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kestrelworks/identity/internal/identity/domain"
	"github.com/kestrelworks/identity/internal/identity/store"
	"github.com/kestrelworks/identity/pkg/cryptox"
	"github.com/kestrelworks/identity/pkg/slogx"
)

// DefaultResetTTL bounds how long a password reset token stays redeemable.
const DefaultResetTTL = time.Hour

// ResetService manages single-use password reset tokens. Issuing never
// reveals whether an email is registered, and redemption is atomic so a
// token authorizes at most one password change.
type ResetService struct {
	Store store.Store
}

// Create stores a reset token for the email's user. An empty token is
// generated, a zero expiry defaults to DefaultResetTTL from now. An unknown
// email is a silent no-op that still returns a token, so the outcome gives
// the caller no signal about which addresses exist.
func (s *ResetService) Create(ctx context.Context, email, token string, expiresAt time.Time) (string, error) {
	email = domain.NormalizeEmail(email)

	if token == "" {
		var err error
		token, err = cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return "", err
		}
	}
	if expiresAt.IsZero() {
		expiresAt = time.Now().UTC().Add(DefaultResetTTL)
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return token, nil
	}
	if err != nil {
		return "", err
	}

	if err := s.Store.ResetTokens().Upsert(ctx, user.ID, token, expiresAt); err != nil {
		return "", err
	}

	slogx.FromContext(ctx).Info("reset token issued",
		slog.Int64("user_id", user.ID))
	return token, nil
}

// Consume redeems a token, returning the owning user id. Unknown, expired
// and already-used tokens all fail with ErrResetTokenInvalid; under
// concurrent redemption exactly one caller wins.
func (s *ResetService) Consume(ctx context.Context, token string) (int64, error) {
	userID, err := s.Store.ResetTokens().Consume(ctx, token, time.Now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		return 0, ErrResetTokenInvalid
	}
	return userID, err
}

// SetPassword replaces the user's password and invalidates any remaining
// reset tokens in one transaction.
func (s *ResetService) SetPassword(ctx context.Context, userID int64, password string) error {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SetPasswordHash(ctx, userID, hash); err != nil {
			return err
		}
		return tx.ResetTokens().DeleteByUserID(ctx, userID)
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	if err == nil {
		slogx.FromContext(ctx).Info("password changed",
			slog.Int64("user_id", userID))
	}
	return err
}

// Complete redeems a token and sets the new password atomically. If any step
// fails the token is not burned.
func (s *ResetService) Complete(ctx context.Context, token, password string) (int64, error) {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	var userID int64
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		id, err := tx.ResetTokens().Consume(ctx, token, time.Now().UTC())
		if err != nil {
			return err
		}
		if err := tx.Users().SetPasswordHash(ctx, id, hash); err != nil {
			return err
		}
		if err := tx.ResetTokens().DeleteByUserID(ctx, id); err != nil {
			return err
		}
		userID = id
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return 0, ErrResetTokenInvalid
	}
	if err != nil {
		return 0, err
	}

	slogx.FromContext(ctx).Info("password reset completed",
		slog.Int64("user_id", userID))
	return userID, nil
}
