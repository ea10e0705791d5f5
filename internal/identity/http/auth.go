package http

import (
	"net/http"
	"strings"

	"github.com/kestrelworks/identity/internal/identity/domain"
	"github.com/kestrelworks/identity/internal/identity/service"
	"github.com/kestrelworks/identity/pkg/httpx"
)

// AuthHandler serves the public authentication endpoints.
type AuthHandler struct {
	Auth *service.AuthService
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type oauthLoginRequest struct {
	Provider          string `json:"provider"`
	OAuthID           string `json:"oauth_id"`
	Email             string `json:"email"`
	Username          string `json:"username,omitempty"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
}

type sessionResponse struct {
	Token string            `json:"token"`
	User  domain.PublicUser `json:"user"`
}

const minPasswordLength = 8

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if !validEmail(req.Email) {
		writeBadRequest(w, "a valid email is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeBadRequest(w, "password must be at least 8 characters")
		return
	}

	user, token, err := h.Auth.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, sessionResponse{Token: token, User: user.Public()})
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	user, token, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sessionResponse{Token: token, User: user.Public()})
}

func (h *AuthHandler) HandleOAuth(w http.ResponseWriter, r *http.Request) {
	var req oauthLoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if req.Provider == "" || req.OAuthID == "" || !validEmail(req.Email) {
		writeBadRequest(w, "provider, oauth_id and a valid email are required")
		return
	}

	user, token, err := h.Auth.LoginOAuth(r.Context(), service.OAuthProfile{
		Provider:          req.Provider,
		OAuthID:           req.OAuthID,
		Email:             req.Email,
		Username:          req.Username,
		ProfilePictureURL: req.ProfilePictureURL,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sessionResponse{Token: token, User: user.Public()})
}

// HandleSession returns the current user for a valid bearer token. It reads
// the token itself rather than sitting behind the authn middleware so the
// user record in the response is always freshly loaded.
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	user, err := h.Auth.Session(r.Context(), strings.TrimSpace(strings.TrimPrefix(authz, "Bearer")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, user.Public())
}

// validEmail is a light sanity check; real validation happens when the
// address proves it can receive a verification code.
func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}
