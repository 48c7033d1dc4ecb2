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

	"github.com/aussiebroadwan/idbridge/internal/bridge/domain"
	"github.com/aussiebroadwan/idbridge/internal/bridge/events"
	httpapi "github.com/aussiebroadwan/idbridge/internal/bridge/http"
	"github.com/aussiebroadwan/idbridge/internal/bridge/service"
	"github.com/aussiebroadwan/idbridge/internal/bridge/store"
	"github.com/aussiebroadwan/idbridge/internal/bridge/store/drivers/sqlite"
	"github.com/aussiebroadwan/idbridge/pkg/jwtx"
	"github.com/aussiebroadwan/idbridge/pkg/providersdk"
	"github.com/aussiebroadwan/idbridge/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the bridge with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	verifier *jwtx.RS256Verifier
	provider *providersdk.Client
	registry *prometheus.Registry
	reporter events.Reporter

	// Services
	gate       *service.Gate
	reconciler *service.Reconciler

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
// A missing or unreadable provider key is an error: the bridge never starts
// without a way to verify tokens.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "idbridge",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	verifier, err := LoadVerifier(app.cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.verifier = verifier

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initTelemetry()
	app.initServices()

	if err := app.initHTTP(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	return app, nil
}

// Handler is the root handler, exposed for tests.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.logger.Info("identity bridge starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"provider", app.cfg.ProviderURL,
		"prefix", app.cfg.RoutePrefix,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.db.Close()
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

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down identity bridge...")

	// Give outstanding requests a deadline for completion
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

	app.logger.Info("identity bridge stopped")
	return nil
}

// initDatabase opens the account store and applies migrations
func (app *Application) initDatabase() error {
	dsn := app.cfg.DatabaseFile
	if dsn != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	}

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

// initTelemetry sets up the metrics registry and the event sinks
func (app *Application) initTelemetry() {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app.reporter = events.Multi{
		events.Log{},
		events.NewPrometheus(app.registry),
	}
}

// initServices wires the provider client, the reconciler and the gate
func (app *Application) initServices() {
	app.provider = providersdk.NewClient(app.cfg.ProviderURL, app.cfg.ClientID, app.cfg.ClientSecret)
	app.provider.RedirectURL = app.cfg.RedirectURL
	app.provider.HTTPClient.Timeout = app.cfg.UpstreamTimeout

	app.reconciler = &service.Reconciler{
		Store:           app.db,
		RequireVerified: app.cfg.RequireVerified,
		SyncDisplayName: app.cfg.SyncDisplayName,
		Reporter:        app.reporter,
	}

	app.gate = &service.Gate{
		Verifier:         app.verifier,
		Store:            app.db,
		SuperadminSecret: app.cfg.SuperadminSecret,
		Reporter:         app.reporter,
	}

	if app.cfg.SuperadminSecret == "" {
		app.logger.Info("superadmin bypass disabled")
	}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() error {
	datosRoles, err := domain.ParseRoleSet(app.cfg.DatosRoles)
	if err != nil {
		return fmt.Errorf("failed to parse BRIDGE_DATOS_ROLES: %w", err)
	}

	router := httpapi.NewRouter(
		app.gate,
		app.reconciler,
		app.provider,
		app.db,
		BuildVersion,
		app.logger,
	)
	router.Prefix = app.cfg.RoutePrefix
	router.DatosRoles = datosRoles
	router.Reporter = app.reporter
	router.Metrics = app.registry
	router.ApplyRoutes()

	app.logger.Info("routes mounted", "prefix", router.Prefix, "datos_roles", datosRoles.String())

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
