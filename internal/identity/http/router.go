package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kestrelworks/identity/internal/identity/service"
	"github.com/kestrelworks/identity/internal/identity/store"
	"github.com/kestrelworks/identity/pkg/httpx"
	"github.com/kestrelworks/identity/pkg/jwtx"
	"github.com/kestrelworks/identity/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	codec     *jwtx.Codec
	version   string
	startTime time.Time
	logger    *slog.Logger
	store     store.Store

	AuthService         *service.AuthService
	UserService         *service.UserService
	VerificationService *service.VerificationService
	ResetService        *service.ResetService
	ClientService       *service.APIClientService
}

func NewRouter(codec *jwtx.Codec, version string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:       http.NewServeMux(),
		codec:     codec,
		version:   version,
		startTime: time.Now(),
		logger:    logger,
		store:     st,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerAdmin()
	r.registerInternal()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Auth: r.AuthService}

	// Credential-accepting endpoints get the strict per-IP budget.
	r.Mux.Handle("POST /api/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/oauth",
		httpx.Chain(http.HandlerFunc(h.HandleOAuth),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Session check is hit on every page load; keep it lenient.
	r.Mux.Handle("GET /api/auth/session",
		httpx.Chain(http.HandlerFunc(h.HandleSession),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UserHandler{Users: r.UserService}

	r.Mux.Handle("PUT /api/users/me",
		httpx.Chain(http.HandlerFunc(h.HandleUpdateMe),
			httpx.AuthnMiddleware(r.codec),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	users := &UserHandler{Users: r.UserService}
	clients := &ClientHandler{Clients: r.ClientService}

	admin := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h,
			httpx.AuthnMiddleware(r.codec),
			httpx.RequireRole("admin"),
		)
	}

	r.Mux.Handle("GET /api/users", admin(users.HandleList))
	r.Mux.Handle("GET /api/users/{id}", admin(users.HandleGet))
	r.Mux.Handle("DELETE /api/users/{id}", admin(users.HandleDelete))
	r.Mux.Handle("PUT /api/users/{id}/role", admin(users.HandleSetRole))

	r.Mux.Handle("GET /api/admin/clients", admin(clients.HandleList))
	r.Mux.Handle("POST /api/admin/clients", admin(clients.HandleCreate))
	r.Mux.Handle("PUT /api/admin/clients/{id}", admin(clients.HandleSetActive))
}

func (r *Router) registerInternal() {
	h := &InternalHandler{
		Users:        r.UserService,
		Verification: r.VerificationService,
		Reset:        r.ResetService,
	}

	keyed := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.APIKeyMiddleware(r.ClientService.Authenticate),
		)
	}

	r.Mux.Handle("POST /api/internal/users/find", keyed(h.HandleFindUser))
	r.Mux.Handle("POST /api/internal/users", keyed(h.HandleCreateFromEmail))
	r.Mux.Handle("POST /api/internal/users/oauth", keyed(h.HandleLinkOAuth))
	r.Mux.Handle("POST /api/internal/users/{id}/credentials", keyed(h.HandleSetCredentials))
	r.Mux.Handle("PUT /api/internal/users/{id}", keyed(h.HandleUpdateUser))
	r.Mux.Handle("GET /api/internal/users", keyed(h.HandleListUsers))

	r.Mux.Handle("POST /api/internal/verification-codes", keyed(h.HandleStoreCode))
	r.Mux.Handle("POST /api/internal/verification-codes/verify", keyed(h.HandleVerifyCode))

	r.Mux.Handle("POST /api/internal/reset-tokens", keyed(h.HandleCreateReset))
	r.Mux.Handle("POST /api/internal/reset-tokens/consume", keyed(h.HandleConsumeReset))
	r.Mux.Handle("PUT /api/internal/users/{id}/password", keyed(h.HandleSetPassword))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.version))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.version, r.store))
}
