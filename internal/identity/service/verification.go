package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kestrelworks/identity/internal/identity/domain"
	"github.com/kestrelworks/identity/internal/identity/store"
	"github.com/kestrelworks/identity/pkg/cryptox"
	"github.com/kestrelworks/identity/pkg/slogx"
)

// Defaults applied when the caller supplies no code or expiry. Delivery of
// the code (email) is the caller's job; this service only stores and checks.
const (
	DefaultCodeDigits = 6
	DefaultCodeTTL    = 15 * time.Minute
)

// VerificationService manages email verification codes. A user has at most
// one live code; storing a new one replaces it and a successful check
// consumes it.
type VerificationService struct {
	Store store.Store
}

// StoreCode records a verification code for the user, replacing any prior
// one. An empty code is generated, a zero expiry defaults to DefaultCodeTTL
// from now. The stored code is returned so the caller can deliver it.
func (s *VerificationService) StoreCode(ctx context.Context, userID int64, code string, expiresAt time.Time) (domain.VerificationCode, error) {
	if code == "" {
		var err error
		code, err = cryptox.GenerateNumericCode(DefaultCodeDigits)
		if err != nil {
			return domain.VerificationCode{}, err
		}
	}
	if expiresAt.IsZero() {
		expiresAt = time.Now().UTC().Add(DefaultCodeTTL)
	}

	if _, err := s.Store.Users().GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.VerificationCode{}, ErrUserNotFound
		}
		return domain.VerificationCode{}, err
	}

	if err := s.Store.VerificationCodes().Upsert(ctx, userID, code, expiresAt); err != nil {
		return domain.VerificationCode{}, err
	}
	return domain.VerificationCode{UserID: userID, Code: code, ExpiresAt: expiresAt}, nil
}

// Verify checks a code against the one stored for the email's user. A match
// deletes the code and marks the email verified in one transaction; an
// unknown email, missing code, expired code or mismatch returns false with
// nothing mutated. The bool carries the outcome so callers cannot tell the
// failure modes apart.
func (s *VerificationService) Verify(ctx context.Context, email, code string) (bool, error) {
	email = domain.NormalizeEmail(email)

	var verified bool
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		user, err := tx.Users().GetUserByEmail(ctx, email)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		stored, err := tx.VerificationCodes().GetByUserID(ctx, user.ID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if stored.Expired(time.Now().UTC()) || stored.Code != code {
			return nil
		}

		if err := tx.VerificationCodes().DeleteByUserID(ctx, user.ID); err != nil {
			return err
		}
		if err := tx.Users().MarkEmailVerified(ctx, user.ID); err != nil {
			return err
		}

		verified = true
		slogx.FromContext(ctx).Info("email verified",
			slog.Int64("user_id", user.ID))
		return nil
	})
	if err != nil {
		return false, err
	}
	return verified, nil
}
