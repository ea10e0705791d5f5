package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kestrelworks/identity/internal/identity/domain"
	"github.com/kestrelworks/identity/internal/identity/store"
	"github.com/kestrelworks/identity/pkg/cryptox"
	"github.com/kestrelworks/identity/pkg/jwtx"
	"github.com/kestrelworks/identity/pkg/slogx"
)

// AuthService implements password and OAuth login plus session issuance.
// Identity resolution for OAuth logins is delegated to Users so the public
// login surface and the internal API share one merging algorithm.
type AuthService struct {
	Store store.Store
	Users *UserService
	Codec *jwtx.Codec
}

// Register creates a password account and returns the user with a fresh
// session token. Email is normalized before uniqueness applies. Direct
// registrations are marked verified: the product only sends verification
// codes on the multi-step flow that starts from CreateFromEmail.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (domain.User, string, error) {
	email = domain.NormalizeEmail(email)

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.Store.Users().CreateUser(ctx, domain.User{
		Email:         email,
		Username:      username,
		PasswordHash:  hash,
		Role:          domain.RoleUser,
		EmailVerified: true,
	})
	if err != nil {
		return domain.User{}, "", mapUserConflict(err)
	}

	token, err := s.Codec.Sign(user.ID, user.Email, string(user.Role))
	if err != nil {
		return domain.User{}, "", err
	}

	slogx.FromContext(ctx).Info("user registered",
		slog.Int64("user_id", user.ID))
	return user, token, nil
}

// Login authenticates a password credential. Unknown email, a password-less
// account and a wrong password all return ErrInvalidCredentials so the
// response never reveals whether the address is registered.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	email = domain.NormalizeEmail(email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, "", ErrInvalidCredentials
		}
		return domain.User{}, "", err
	}

	if !user.HasPassword() || !cryptox.VerifyPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}

	token, err := s.Codec.Sign(user.ID, user.Email, string(user.Role))
	if err != nil {
		return domain.User{}, "", err
	}

	slogx.FromContext(ctx).Info("user logged in",
		slog.Int64("user_id", user.ID))
	return user, token, nil
}

// LoginOAuth resolves (or creates) the identity behind an OAuth profile and
// issues a session token for it.
func (s *AuthService) LoginOAuth(ctx context.Context, profile OAuthProfile) (domain.User, string, error) {
	user, err := s.Users.LinkOAuth(ctx, profile)
	if err != nil {
		return domain.User{}, "", err
	}

	token, err := s.Codec.Sign(user.ID, user.Email, string(user.Role))
	if err != nil {
		return domain.User{}, "", err
	}

	slogx.FromContext(ctx).Info("oauth login",
		slog.Int64("user_id", user.ID),
		slog.String("provider", profile.Provider))
	return user, token, nil
}

// Session verifies a bearer token and loads the current user record. The
// returned user reflects the database, not the claims, so role changes made
// after issuance are visible immediately.
func (s *AuthService) Session(ctx context.Context, token string) (domain.User, error) {
	claims, err := s.Codec.Verify(token)
	if err != nil {
		return domain.User{}, err
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// mapUserConflict rewrites store uniqueness sentinels into the service's
// caller-facing equivalents.
func mapUserConflict(err error) error {
	switch {
	case errors.Is(err, store.ErrEmailTaken):
		return ErrEmailExists
	case errors.Is(err, store.ErrUsernameTaken):
		return ErrUsernameExists
	}
	return err
}
