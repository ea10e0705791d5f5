package http

import (
	"net/http"
	"time"

	"github.com/kestrelworks/identity/internal/identity/domain"
	"github.com/kestrelworks/identity/internal/identity/service"
	"github.com/kestrelworks/identity/pkg/httpx"
)

// ClientHandler serves the admin API-client management endpoints.
type ClientHandler struct {
	Clients *service.APIClientService
}

type createClientRequest struct {
	Name string `json:"name"`
}

type setClientActiveRequest struct {
	Active bool `json:"active"`
}

// clientView hides the key on list responses; the key is only revealed once,
// in the create response.
type clientView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type createdClientView struct {
	clientView
	APIKey string `json:"api_key"`
}

func toClientView(c domain.APIClient) clientView {
	return clientView{ID: c.ID, Name: c.Name, Active: c.Active, CreatedAt: c.CreatedAt}
}

func (h *ClientHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Clients.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]clientView, 0, len(clients))
	for _, c := range clients {
		out = append(out, toClientView(c))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *ClientHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}

	client, err := h.Clients.Create(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, createdClientView{
		clientView: toClientView(client),
		APIKey:     client.APIKey,
	})
}

func (h *ClientHandler) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid client id")
		return
	}

	var req setClientActiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}

	if err := h.Clients.SetActive(r.Context(), id, req.Active); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
