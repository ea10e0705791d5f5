package http

import (
	"net/http"
	"time"

	"github.com/kestrelworks/identity/internal/identity/domain"
	"github.com/kestrelworks/identity/internal/identity/service"
	"github.com/kestrelworks/identity/pkg/httpx"
)

// InternalHandler serves the service-to-service API used by the companion
// backend. Callers are authenticated with an API key, not a user session, so
// these endpoints operate on arbitrary users by design.
type InternalHandler struct {
	Users        *service.UserService
	Verification *service.VerificationService
	Reset        *service.ResetService
}

// internalUserView extends the public view with facts a trusted backend
// needs for flow decisions. The password hash still never leaves the
// service.
type internalUserView struct {
	domain.PublicUser
	HasPassword   bool      `json:"has_password"`
	OAuthProvider string    `json:"oauth_provider,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toInternalView(u domain.User) internalUserView {
	return internalUserView{
		PublicUser:    u.Public(),
		HasPassword:   u.HasPassword(),
		OAuthProvider: u.OAuthProvider,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

type findUserRequest struct {
	ID       int64  `json:"id,omitempty"`
	Email    string `json:"email,omitempty"`
	Provider string `json:"provider,omitempty"`
	OAuthID  string `json:"oauth_id,omitempty"`
}

func (h *InternalHandler) HandleFindUser(w http.ResponseWriter, r *http.Request) {
	var req findUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}

	user, err := h.Users.Find(r.Context(), service.FindQuery{
		ID:       req.ID,
		Email:    req.Email,
		Provider: req.Provider,
		OAuthID:  req.OAuthID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toInternalView(user))
}

type createFromEmailRequest struct {
	Email string `json:"email"`
}

func (h *InternalHandler) HandleCreateFromEmail(w http.ResponseWriter, r *http.Request) {
	var req createFromEmailRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if !validEmail(req.Email) {
		writeBadRequest(w, "a valid email is required")
		return
	}

	user, err := h.Users.CreateFromEmail(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toInternalView(user))
}

func (h *InternalHandler) HandleLinkOAuth(w http.ResponseWriter, r *http.Request) {
	var req oauthLoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if req.Provider == "" || req.OAuthID == "" || !validEmail(req.Email) {
		writeBadRequest(w, "provider, oauth_id and a valid email are required")
		return
	}

	user, err := h.Users.LinkOAuth(r.Context(), service.OAuthProfile{
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

	httpx.WriteJSON(w, http.StatusOK, toInternalView(user))
}

type setCredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *InternalHandler) HandleSetCredentials(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid user id")
		return
	}

	var req setCredentialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeBadRequest(w, "password must be at least 8 characters")
		return
	}

	user, err := h.Users.SetPasswordAndUsername(r.Context(), userID, req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toInternalView(user))
}

func (h *InternalHandler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid user id")
		return
	}

	var req updateProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}

	user, err := h.Users.UpdateProfile(r.Context(), userID, req.Username, req.ProfilePictureURL)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toInternalView(user))
}

func (h *InternalHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]internalUserView, 0, len(users))
	for _, u := range users {
		out = append(out, toInternalView(u))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

type storeCodeRequest struct {
	UserID    int64     `json:"user_id"`
	Code      string    `json:"code,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

type storeCodeResponse struct {
	UserID    int64     `json:"user_id"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleStoreCode records a verification code. Code and expiry are optional;
// the caller is responsible for delivering the returned code by email.
func (h *InternalHandler) HandleStoreCode(w http.ResponseWriter, r *http.Request) {
	var req storeCodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if req.UserID <= 0 {
		writeBadRequest(w, "user_id is required")
		return
	}

	code, err := h.Verification.StoreCode(r.Context(), req.UserID, req.Code, req.ExpiresAt)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, storeCodeResponse{
		UserID:    code.UserID,
		Code:      code.Code,
		ExpiresAt: code.ExpiresAt,
	})
}

type verifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type verifyCodeResponse struct {
	Verified bool `json:"verified"`
}

func (h *InternalHandler) HandleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if req.Email == "" || req.Code == "" {
		writeBadRequest(w, "email and code are required")
		return
	}

	ok, err := h.Verification.Verify(r.Context(), req.Email, req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, verifyCodeResponse{Verified: ok})
}

type createResetRequest struct {
	Email     string    `json:"email"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

type createResetResponse struct {
	Token string `json:"token"`
}

// HandleCreateReset issues a reset token. Unknown emails get the same shaped
// response as known ones.
func (h *InternalHandler) HandleCreateReset(w http.ResponseWriter, r *http.Request) {
	var req createResetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if !validEmail(req.Email) {
		writeBadRequest(w, "a valid email is required")
		return
	}

	token, err := h.Reset.Create(r.Context(), req.Email, req.Token, req.ExpiresAt)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, createResetResponse{Token: token})
}

type consumeResetRequest struct {
	Token string `json:"token"`
}

type consumeResetResponse struct {
	UserID int64 `json:"user_id"`
}

func (h *InternalHandler) HandleConsumeReset(w http.ResponseWriter, r *http.Request) {
	var req consumeResetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}

	userID, err := h.Reset.Consume(r.Context(), req.Token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, consumeResetResponse{UserID: userID})
}

type setPasswordRequest struct {
	Password string `json:"password"`
}

func (h *InternalHandler) HandleSetPassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid user id")
		return
	}

	var req setPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeBadRequest(w, "password must be at least 8 characters")
		return
	}

	if err := h.Reset.SetPassword(r.Context(), userID, req.Password); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
