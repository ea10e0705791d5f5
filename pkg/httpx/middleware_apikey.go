package httpx

import (
	"context"
	"net/http"

	"github.com/kestrelworks/identity/pkg/slogx"
)

// APIKeyAuthenticator reports whether the presented key belongs to an active
// API client. Errors are infrastructure failures, not rejections.
type APIKeyAuthenticator func(ctx context.Context, key string) (bool, error)

// APIKeyMiddleware gates the internal service-to-service surface behind an
// X-API-Key header. Missing, unknown and inactive keys all produce the same
// 401 body.
func APIKeyMiddleware(authenticate APIKeyAuthenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			key := r.Header.Get("X-API-Key")
			if key == "" {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "missing API key")
				return
			}

			ok, err := authenticate(ctx, key)
			if err != nil {
				log.Error("api key lookup failed", "err", err)
				WriteError(w, http.StatusInternalServerError, "internal_error", "")
				return
			}
			if !ok {
				log.Warn("rejected api key")
				WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid or inactive API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
