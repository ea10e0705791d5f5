package jwtx

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func TestSignVerify_RoundTrip(t *testing.T) {
	codec := NewCodec(testSecret, time.Hour)

	now := time.Now().UTC().Truncate(time.Second)
	token, err := codec.SignAt(42, "a@x.com", "admin", now)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3, "compact JWT framing: header.payload.signature")

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.Equal(t, "a@x.com", claims.Email)
	require.Equal(t, "admin", claims.Role)
	require.Equal(t, time.Hour,
		claims.ExpiresAt.Sub(claims.IssuedAt.Time),
		"exp - iat must equal the configured ttl")
}

func TestVerify_TamperedSignature(t *testing.T) {
	codec := NewCodec(testSecret, time.Hour)

	token, err := codec.Sign(1, "a@x.com", "user")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	require.NoError(t, err)

	// Flip a single bit in the signature segment.
	sig[0] ^= 0x01
	tampered := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(sig)

	_, err = codec.Verify(tampered)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestVerify_TamperedPayload(t *testing.T) {
	codec := NewCodec(testSecret, time.Hour)

	token, err := codec.Sign(1, "a@x.com", "user")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	payload := `{"sub":1,"email":"a@x.com","role":"admin","exp":9999999999}`
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(payload))

	_, err = codec.Verify(strings.Join(parts, "."))
	require.ErrorIs(t, err, ErrInvalid, "role escalation in payload must break the signature")
}

func TestVerify_Expired(t *testing.T) {
	codec := NewCodec(testSecret, time.Minute)

	token, err := codec.SignAt(1, "a@x.com", "user", time.Now().UTC().Add(-2*time.Minute))
	require.NoError(t, err)

	_, err = codec.Verify(token)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := NewCodec("secret-a", time.Hour).Sign(1, "a@x.com", "user")
	require.NoError(t, err)

	_, err = NewCodec("secret-b", time.Hour).Verify(token)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestVerify_RejectsUnpinnedAlgorithms(t *testing.T) {
	codec := NewCodec(testSecret, time.Hour)

	claims := Claims{
		UserID: 7,
		Email:  "a@x.com",
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	t.Run("alg none", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = codec.Verify(token)
		require.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("HS512", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).
			SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = codec.Verify(token)
		require.ErrorIs(t, err, ErrInvalid)
	})
}

func TestVerify_Garbage(t *testing.T) {
	codec := NewCodec(testSecret, time.Hour)

	for _, token := range []string{"", "not-a-jwt", "a.b", "a.b.c.d"} {
		_, err := codec.Verify(token)
		require.ErrorIs(t, err, ErrInvalid, "token %q", token)
	}
}

func TestParseExpiry(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"45s", 45 * time.Second},
		{"30m", 30 * time.Minute},
		{"12h", 12 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"900", 900 * time.Second},
		{"", DefaultSessionTTL},
		{"abc", DefaultSessionTTL},
		{"7w", DefaultSessionTTL},
		{"-5m", DefaultSessionTTL},
		{"0", DefaultSessionTTL},
		{"d", DefaultSessionTTL},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, ParseExpiry(tt.in))
		})
	}
}
