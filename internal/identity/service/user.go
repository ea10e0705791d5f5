package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kestrelworks/identity/internal/identity/domain"
	"github.com/kestrelworks/identity/internal/identity/store"
	"github.com/kestrelworks/identity/pkg/cryptox"
	"github.com/kestrelworks/identity/pkg/slogx"
)

// UserService is the identity resolver. All paths that locate, create or
// merge user records go through here so the public API, the OAuth flow and
// the internal service API agree on one set of rules.
type UserService struct {
	Store store.Store
}

// OAuthProfile is the provider-asserted identity handed to LinkOAuth. Email
// is required; the rest is best-effort profile data.
type OAuthProfile struct {
	Provider          string
	OAuthID           string
	Email             string
	Username          string
	ProfilePictureURL string
}

// FindQuery selects a user by exactly one of the supported keys. When more
// than one is set, precedence is id, then the OAuth pair, then email.
type FindQuery struct {
	ID       int64
	Provider string
	OAuthID  string
	Email    string
}

// Find resolves a query to a user, or ErrUserNotFound.
func (s *UserService) Find(ctx context.Context, q FindQuery) (domain.User, error) {
	var (
		user domain.User
		err  error
	)

	switch {
	case q.ID != 0:
		user, err = s.Store.Users().GetUserByID(ctx, q.ID)
	case q.Provider != "" && q.OAuthID != "":
		user, err = s.Store.Users().GetUserByOAuth(ctx, q.Provider, q.OAuthID)
	case q.Email != "":
		user, err = s.Store.Users().GetUserByEmail(ctx, domain.NormalizeEmail(q.Email))
	default:
		return domain.User{}, ErrUserNotFound
	}

	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return user, err
}

// CreateFromEmail returns the user for an email address, creating an
// unverified placeholder when none exists. Calling it twice with the same
// address yields the same record.
func (s *UserService) CreateFromEmail(ctx context.Context, email string) (domain.User, error) {
	email = domain.NormalizeEmail(email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	user, err = s.Store.Users().CreateUser(ctx, domain.User{
		Email: email,
		Role:  domain.RoleUser,
	})
	if errors.Is(err, store.ErrEmailTaken) {
		// Lost a create race; the row exists now.
		return s.Store.Users().GetUserByEmail(ctx, email)
	}
	if err != nil {
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("placeholder user created",
		slog.Int64("user_id", user.ID))
	return user, nil
}

// LinkOAuth merges an OAuth assertion into the user table. Resolution order:
// the (provider, oauth id) pair, then the normalized email, then a fresh
// account. Attaching to an email account marks it verified, since the
// provider has already proven ownership of the address. Provider profile
// data only fills fields the user has not set themselves.
func (s *UserService) LinkOAuth(ctx context.Context, p OAuthProfile) (domain.User, error) {
	if p.Provider == "" || p.OAuthID == "" || p.Email == "" {
		return domain.User{}, fmt.Errorf("oauth profile incomplete: provider=%q", p.Provider)
	}
	email := domain.NormalizeEmail(p.Email)

	user, err := s.Store.Users().GetUserByOAuth(ctx, p.Provider, p.OAuthID)
	if err == nil {
		return s.fillGaps(ctx, user.ID, p)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	user, err = s.Store.Users().GetUserByEmail(ctx, email)
	if err == nil {
		if err := s.Store.Users().AttachOAuth(ctx, user.ID, p.Provider, p.OAuthID); err != nil {
			return domain.User{}, err
		}
		slogx.FromContext(ctx).Info("oauth linked to existing account",
			slog.Int64("user_id", user.ID),
			slog.String("provider", p.Provider))
		return s.fillGaps(ctx, user.ID, p)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	username := p.Username
	if username == "" {
		username = domain.UsernameFromEmail(email)
	}

	user, err = s.createOAuthUser(ctx, p, email, username)
	if err != nil {
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("oauth user created",
		slog.Int64("user_id", user.ID),
		slog.String("provider", p.Provider))
	return user, nil
}

func (s *UserService) createOAuthUser(ctx context.Context, p OAuthProfile, email, username string) (domain.User, error) {
	user, err := s.Store.Users().CreateUser(ctx, domain.User{
		Email:             email,
		Username:          username,
		Role:              domain.RoleUser,
		OAuthProvider:     p.Provider,
		OAuthID:           p.OAuthID,
		ProfilePictureURL: p.ProfilePictureURL,
		EmailVerified:     true,
	})
	if errors.Is(err, store.ErrUsernameTaken) {
		// The derived username belongs to someone else. The account is
		// still created; the user can pick a name later.
		return s.Store.Users().CreateUser(ctx, domain.User{
			Email:             email,
			Role:              domain.RoleUser,
			OAuthProvider:     p.Provider,
			OAuthID:           p.OAuthID,
			ProfilePictureURL: p.ProfilePictureURL,
			EmailVerified:     true,
		})
	}
	return user, err
}

// fillGaps applies provider profile data to absent fields only, then
// re-reads the row. A username collision with another account downgrades to
// filling the picture alone.
func (s *UserService) fillGaps(ctx context.Context, userID int64, p OAuthProfile) (domain.User, error) {
	err := s.Store.Users().FillProfileGaps(ctx, userID, p.Username, p.ProfilePictureURL)
	if errors.Is(err, store.ErrUsernameTaken) {
		err = s.Store.Users().FillProfileGaps(ctx, userID, "", p.ProfilePictureURL)
	}
	if err != nil {
		return domain.User{}, err
	}
	return s.Store.Users().GetUserByID(ctx, userID)
}

// SetPasswordAndUsername completes the multi-step signup by attaching the
// login credentials to a verified placeholder account.
func (s *UserService) SetPasswordAndUsername(ctx context.Context, userID int64, username, password string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	if !user.EmailVerified {
		return domain.User{}, ErrNotVerified
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	if err := s.Store.Users().SetUsernameAndPassword(ctx, userID, username, hash); err != nil {
		return domain.User{}, mapUserConflict(err)
	}
	return s.Store.Users().GetUserByID(ctx, userID)
}

// UpdateProfile partially updates the caller's profile. Nil fields keep
// their stored values.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, username, picture *string) (domain.User, error) {
	if err := s.Store.Users().UpdateProfile(ctx, userID, username, picture); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, mapUserConflict(err)
	}
	return s.Store.Users().GetUserByID(ctx, userID)
}

// Get fetches a user by id.
func (s *UserService) Get(ctx context.Context, userID int64) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return user, err
}

// List returns all users ordered by id.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users().ListUsers(ctx)
}

// Delete removes a user and, via schema cascade, their codes and tokens.
func (s *UserService) Delete(ctx context.Context, userID int64) error {
	err := s.Store.Users().DeleteUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	if err == nil {
		slogx.FromContext(ctx).Info("user deleted", slog.Int64("user_id", userID))
	}
	return err
}

// SetRole changes a user's role after validating it.
func (s *UserService) SetRole(ctx context.Context, userID int64, role domain.Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}

	err := s.Store.Users().SetRole(ctx, userID, role)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	if err == nil {
		slogx.FromContext(ctx).Info("role changed",
			slog.Int64("user_id", userID),
			slog.String("role", string(role)))
	}
	return err
}
