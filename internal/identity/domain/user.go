package domain

import (
	"strings"
	"time"
)

// Role is the coarse authorization level attached to a user. The product has
// exactly two levels; anything finer-grained belongs to a future schema.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is the durable identity record. A user always ends up with a password
// credential, an OAuth credential, or both; the only password-less,
// OAuth-less state is the short-lived email placeholder created by the
// multi-step signup flow before verification completes.
type User struct {
	ID                int64
	Email             string // stored normalized lowercase, unique
	Username          string // optional; unique when present
	PasswordHash      string // argon2 encoded; empty for OAuth-only accounts
	Role              Role
	OAuthProvider     string // optional pair; unique together when present
	OAuthID           string
	ProfilePictureURL string
	EmailVerified     bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasPassword reports whether a password credential is set.
func (u User) HasPassword() bool { return u.PasswordHash != "" }

// HasOAuth reports whether an OAuth credential is linked.
func (u User) HasOAuth() bool { return u.OAuthProvider != "" && u.OAuthID != "" }

// PublicUser is the caller-facing view of a user. It never carries the
// password hash or the raw OAuth id.
type PublicUser struct {
	ID                int64  `json:"id"`
	Email             string `json:"email"`
	Username          string `json:"username,omitempty"`
	Role              Role   `json:"role"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
	EmailVerified     bool   `json:"is_email_verified"`
}

// Public returns the external view of the user.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:                u.ID,
		Email:             u.Email,
		Username:          u.Username,
		Role:              u.Role,
		ProfilePictureURL: u.ProfilePictureURL,
		EmailVerified:     u.EmailVerified,
	}
}

// NormalizeEmail canonicalizes an email for lookup and storage. Uniqueness
// is enforced on this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UsernameFromEmail derives a default username from the address local-part,
// used when an OAuth provider supplies no display name.
func UsernameFromEmail(email string) string {
	local, _, _ := strings.Cut(NormalizeEmail(email), "@")
	return local
}
