package httpx

import "net/http"

// RequireRole restricts an endpoint to callers whose verified session claims
// carry the given role. It must sit inside AuthnMiddleware in the chain: if
// no identity has been attached yet there is no role to check, and the
// request is answered 401 rather than 403.
func RequireRole(role string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			have, ok := roleFromContext(r.Context())
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			if have != role {
				WriteError(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
