// Package jwtx signs and verifies the compact session tokens carried by API
// callers. The signing scheme is pinned to HS256 with a single process-wide
// secret; there is no caller-selectable algorithm and no "alg: none" path.
package jwtx

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is used when the configured expiry string cannot be
// parsed. Seven days matches the product's historical default.
const DefaultSessionTTL = 7 * 24 * time.Hour

var (
	// ErrInvalid covers malformed tokens, bad signatures and algorithm
	// mismatches. Externally these are indistinguishable from ErrExpired;
	// the split exists for logging only.
	ErrInvalid = errors.New("jwtx: invalid token")
	ErrExpired = errors.New("jwtx: token expired")
)

// Claims is the signed assertion of identity carried by a session token.
// UserID shadows the registered "sub" claim so it serializes as an integer,
// which is what the product's other consumers of this token expect.
type Claims struct {
	UserID int64  `json:"sub"`
	Email  string `json:"email"`
	Role   string `json:"role"`

	jwt.RegisteredClaims
}

// Codec signs and verifies session tokens. Construct once at startup and
// treat as read-only afterwards.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

func NewCodec(secret string, ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Codec{secret: []byte(secret), ttl: ttl}
}

// TTL reports the configured session lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Sign produces a compact JWT with {sub, email, role, iat, exp} claims.
// exp is iat plus the configured TTL.
func (c *Codec) Sign(userID int64, email, role string) (string, error) {
	return c.SignAt(userID, email, role, time.Now().UTC())
}

// SignAt is Sign with an explicit issue time, useful in tests.
func (c *Codec) SignAt(userID int64, email, role string, now time.Time) (string, error) {
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return token, nil
}

// Verify checks the signature and expiry of a session token and returns its
// claims. Verification failures collapse to ErrInvalid except expiry, which
// is ErrExpired.
func (c *Codec) Verify(token string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(
		token,
		&Claims{},
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalid
	}

	return *claims, nil
}

// ParseExpiry converts a configured expiry string into a duration. The
// grammar is <integer><unit> with unit in {s, m, h, d}, or a bare integer
// meaning seconds (e.g. "7d", "12h", "900"). Anything unparseable falls back
// to DefaultSessionTTL rather than failing startup.
func ParseExpiry(s string) time.Duration {
	if s == "" {
		return DefaultSessionTTL
	}

	if secs, err := strconv.Atoi(s); err == nil {
		if secs <= 0 {
			return DefaultSessionTTL
		}
		return time.Duration(secs) * time.Second
	}

	unit := s[len(s)-1]
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return DefaultSessionTTL
	}

	switch unit {
	case 's':
		return time.Duration(n) * time.Second
	case 'm':
		return time.Duration(n) * time.Minute
	case 'h':
		return time.Duration(n) * time.Hour
	case 'd':
		return time.Duration(n) * 24 * time.Hour
	default:
		return DefaultSessionTTL
	}
}
