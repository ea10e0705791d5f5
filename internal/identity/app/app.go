package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/kestrelworks/identity/internal/identity/http"
	"github.com/kestrelworks/identity/internal/identity/service"
	"github.com/kestrelworks/identity/internal/identity/store"
	"github.com/kestrelworks/identity/internal/identity/store/drivers/sqlite"
	"github.com/kestrelworks/identity/pkg/cryptox"
	"github.com/kestrelworks/identity/pkg/jwtx"
	"github.com/kestrelworks/identity/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	// bootstrapClientName labels the API client seeded from BOOTSTRAP_API_KEY.
	bootstrapClientName = "bootstrap"
)

// Application wires the identity service together: config, logger, store,
// token codec, services and the HTTP server.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	codec *jwtx.Codec

	authService         *service.AuthService
	userService         *service.UserService
	verificationService *service.VerificationService
	resetService        *service.ResetService
	clientService       *service.APIClientService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "identity-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initCodec(); err != nil {
		return nil, err
	}
	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	app.initServices()

	if err := app.clientService.Bootstrap(
		context.Background(), bootstrapClientName, app.cfg.BootstrapAPIKey,
	); err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to bootstrap api client: %w", err)
	}

	app.initHTTP()
	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("identity service starting",
		"port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown stops the HTTP server gracefully, then closes the store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down identity service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("identity service stopped")
	return nil
}

// initCodec builds the session token codec. Outside dev the secret must be
// supplied; in dev a throwaway secret keeps local startup frictionless at
// the cost of sessions not surviving restarts.
func (app *Application) initCodec() error {
	secret := app.cfg.JWTSecret
	if secret == "" {
		if app.cfg.Env != "dev" {
			return fmt.Errorf("JWT_SECRET is required when ENV=%s", app.cfg.Env)
		}

		generated, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return fmt.Errorf("failed to generate dev JWT secret: %w", err)
		}
		secret = generated
		app.logger.Warn("JWT_SECRET not set, generated an ephemeral dev secret")
	}

	app.codec = jwtx.NewCodec(secret, jwtx.ParseExpiry(app.cfg.JWTExpiresIn))
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initServices() {
	app.userService = &service.UserService{Store: app.db}
	app.authService = &service.AuthService{
		Store: app.db,
		Users: app.userService,
		Codec: app.codec,
	}
	app.verificationService = &service.VerificationService{Store: app.db}
	app.resetService = &service.ResetService{Store: app.db}
	app.clientService = &service.APIClientService{Store: app.db}
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.codec, BuildVersion, app.db, app.logger)

	router.AuthService = app.authService
	router.UserService = app.userService
	router.VerificationService = app.verificationService
	router.ResetService = app.resetService
	router.ClientService = app.clientService
	router.ApplyRoutes()

	app.router = router
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
