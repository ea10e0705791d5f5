package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kestrelworks/identity/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func gatedHandler(t *testing.T, codec *jwtx.Codec, role string) http.Handler {
	t.Helper()
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFromContext(r.Context())
		require.True(t, ok, "identity must be attached before the handler runs")
		require.NotZero(t, id)
		w.WriteHeader(http.StatusNoContent)
	})
	return Chain(inner, AuthnMiddleware(codec), RequireRole(role))
}

func TestAuthnMiddleware(t *testing.T) {
	codec := jwtx.NewCodec("gate-secret", time.Hour)
	handler := gatedHandler(t, codec, "user")

	t.Run("valid token passes", func(t *testing.T) {
		token, err := codec.Sign(7, "a@x.com", "user")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token gets same 401 as invalid", func(t *testing.T) {
		expired := jwtx.NewCodec("gate-secret", time.Minute)
		token, err := expired.SignAt(7, "a@x.com", "user", time.Now().Add(-time.Hour))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRole_Ordering(t *testing.T) {
	codec := jwtx.NewCodec("gate-secret", time.Hour)
	admin := gatedHandler(t, codec, "admin")

	t.Run("unauthenticated gets 401 not 403", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		admin.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code,
			"identity must be established before any role decision")
	})

	t.Run("authenticated non-admin gets 403", func(t *testing.T) {
		token, err := codec.Sign(7, "a@x.com", "user")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		admin.ServeHTTP(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin passes", func(t *testing.T) {
		token, err := codec.Sign(8, "root@x.com", "admin")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		admin.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("role gate without authn rejects", func(t *testing.T) {
		// Misordered chain: RequireRole finds no identity and refuses.
		bare := Chain(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler must not run")
			}),
			RequireRole("admin"),
		)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		bare.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAPIKeyMiddleware(t *testing.T) {
	authenticate := func(ctx context.Context, key string) (bool, error) {
		switch key {
		case "valid-key":
			return true, nil
		case "boom":
			return false, errors.New("db down")
		default:
			return false, nil
		}
	}

	handler := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
		APIKeyMiddleware(authenticate),
	)

	tests := []struct {
		name string
		key  string
		want int
	}{
		{"valid key", "valid-key", http.StatusNoContent},
		{"missing key", "", http.StatusUnauthorized},
		{"unknown key", "nope", http.StatusUnauthorized},
		{"lookup failure", "boom", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/internal/users/find", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRateLimitByIP(t *testing.T) {
	handler := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
		RateLimitByIP(RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}),
	)

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusNoContent, send("10.0.0.1:1234"))
	require.Equal(t, http.StatusNoContent, send("10.0.0.1:1234"))
	require.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1234"))

	// A different client is unaffected.
	require.Equal(t, http.StatusNoContent, send("10.0.0.2:1234"))
}
