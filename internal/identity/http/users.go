package http

import (
	"net/http"
	"strconv"

	"github.com/kestrelworks/identity/internal/identity/domain"
	"github.com/kestrelworks/identity/internal/identity/service"
	"github.com/kestrelworks/identity/pkg/httpx"
)

// UserHandler serves the caller's own profile plus the admin user surface.
type UserHandler struct {
	Users *service.UserService
}

type updateProfileRequest struct {
	Username          *string `json:"username,omitempty"`
	ProfilePictureURL *string `json:"profile_picture_url,omitempty"`
}

type setRoleRequest struct {
	Role string `json:"role"`
}

// HandleUpdateMe partially updates the authenticated caller's profile.
// Omitted fields keep their stored values.
func (h *UserHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "")
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

	httpx.WriteJSON(w, http.StatusOK, user.Public())
}

func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]domain.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid user id")
		return
	}

	user, err := h.Users.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, user.Public())
}

func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid user id")
		return
	}

	if err := h.Users.Delete(r.Context(), userID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid user id")
		return
	}

	var req setRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}

	if err := h.Users.SetRole(r.Context(), userID, domain.Role(req.Role)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	user, err := h.Users.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user.Public())
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
