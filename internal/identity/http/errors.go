package http

import (
	"errors"
	"net/http"

	"github.com/kestrelworks/identity/internal/identity/service"
	"github.com/kestrelworks/identity/internal/identity/store"
	"github.com/kestrelworks/identity/pkg/httpx"
	"github.com/kestrelworks/identity/pkg/jwtx"
	"github.com/kestrelworks/identity/pkg/slogx"
)

// writeServiceError maps service sentinels onto HTTP statuses. Anything not
// recognized is a 500 with the detail kept out of the response body.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	case errors.Is(err, service.ErrNotVerified):
		httpx.WriteError(w, http.StatusUnauthorized, "email_not_verified", "email address has not been verified")
	case errors.Is(err, service.ErrResetTokenInvalid):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_reset_token", "reset token is invalid, expired or already used")
	case errors.Is(err, jwtx.ErrExpired), errors.Is(err, jwtx.ErrInvalid):
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
	case errors.Is(err, service.ErrEmailExists):
		httpx.WriteError(w, http.StatusConflict, "email_exists", "an account with this email already exists")
	case errors.Is(err, service.ErrUsernameExists):
		httpx.WriteError(w, http.StatusConflict, "username_exists", "this username is already taken")
	case errors.Is(err, service.ErrInvalidRole):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_role", "role must be user or admin")
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrClientNotFound),
		errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

func writeBadRequest(w http.ResponseWriter, message string) {
	httpx.WriteError(w, http.StatusBadRequest, "invalid_request", message)
}
