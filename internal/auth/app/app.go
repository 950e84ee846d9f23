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

	"github.com/aussiebroadwan/gatekeeper/internal/auth/cache"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/cache/drivers/memory"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/cache/drivers/redis"
	httpapi "github.com/aussiebroadwan/gatekeeper/internal/auth/http"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	cache  cache.Cache
	sealer *cryptox.Sealer
	hasher *cryptox.Hasher

	// Services
	authService         *service.AuthService
	totpService         *service.TOTPService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gatekeeper",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initCache(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.initSecrets(); err != nil {
		_ = app.cache.Close()
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Handler exposes the configured router.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
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
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	var errs []error
	if err := app.cache.Close(); err != nil {
		app.logger.Error("error closing cache", "error", err)
		errs = append(errs, err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
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

// initCache selects the session cache driver.
func (app *Application) initCache(ctx context.Context) error {
	switch app.cfg.CacheDriver {
	case CacheDriverRedis:
		c, err := redis.Connect(ctx, app.cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.cache = c
	default:
		app.cache = memory.New()
	}

	app.logger.Info("session cache ready", "driver", app.cfg.CacheDriver)
	return nil
}

// initSecrets loads the key that seals TOTP secrets at rest and the
// password hasher.
func (app *Application) initSecrets() error {
	sealer, ephemeral, err := cryptox.LoadSealer(app.cfg.MasterKeyPath)
	if err != nil {
		return fmt.Errorf("failed to load master key: %w", err)
	}
	if ephemeral {
		app.logger.Warn("using an ephemeral master key, enabled TOTP secrets will not survive a restart")
	}
	app.sealer = sealer
	app.hasher = cryptox.NewHasher(app.cfg.MaxConcurrentHashes)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.authService = &service.AuthService{
		Store: app.db,
		Sessions: &service.SessionIssuer{
			Cache: app.cache,
			TTL:   app.cfg.SessionTTL,
		},
		Hasher:                     app.hasher,
		NeedsConfirmedRegistration: app.cfg.NeedsConfirmedRegistration,
	}

	app.totpService = &service.TOTPService{
		Store:      app.db,
		Cache:      app.cache,
		Sealer:     app.sealer,
		Issuer:     app.cfg.TOTPIssuer,
		PendingTTL: app.cfg.TOTPPendingTTL,
	}

	// Redis expires keys itself; only the in-process cache needs sweeping.
	var sweepers []cache.Sweeper
	if sw, ok := app.cache.(cache.Sweeper); ok {
		sweepers = append(sweepers, sw)
	}
	app.housekeepingService = service.NewHousekeepingService(
		app.logger,
		app.cfg.HousekeepingInterval,
		sweepers...,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.cache, app.logger)

	router.AuthService = app.authService
	router.TOTPService = app.totpService
	router.ExposeRegistrationErrors = app.cfg.ExposeRegistrationErrors
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
