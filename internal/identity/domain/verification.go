package domain

import "time"

// VerificationCode is a short-lived numeric challenge proving email
// ownership. At most one live code exists per user; issuing a new one
// replaces the old, and a successful verification deletes it.
type VerificationCode struct {
	UserID    int64
	Code      string
	ExpiresAt time.Time
}

// Expired reports whether the code has lapsed at the given instant.
func (c VerificationCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// PasswordResetToken is a single-use opaque token authorizing a password
// change. It transitions unused to used exactly once; a used or expired
// token never authorizes anything.
type PasswordResetToken struct {
	UserID    int64
	Token     string
	ExpiresAt time.Time
	Used      bool
}
