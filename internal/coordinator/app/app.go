package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/caseflow/caseflow/internal/coordinator/flow"
	httpapi "github.com/caseflow/caseflow/internal/coordinator/http"
	"github.com/caseflow/caseflow/internal/coordinator/notify"
	"github.com/caseflow/caseflow/internal/coordinator/service"
	"github.com/caseflow/caseflow/internal/coordinator/store"
	"github.com/caseflow/caseflow/internal/coordinator/store/drivers/sqlite"
	"github.com/caseflow/caseflow/pkg/jwtx"
	"github.com/caseflow/caseflow/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application wires the workflow coordinator together: storage, signing
// keys, flow definitions, services, and the HTTP server. Everything is
// constructed explicitly here; there is no registration magic.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         store.Store
	keyManager *jwtx.KeyManager
	flows      *flow.Registry
	publisher  notify.Publisher

	tokenService        *service.TokenService
	clientService       *service.ClientService
	processService      *service.ProcessService
	taskService         *service.TaskService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router

	stopHousekeeping context.CancelFunc
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "caseflow",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	keyManager, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Algorithm: cfg.Algorithm,
		Issuer:    cfg.Issuer,
		RSABits:   cfg.RSABits,
		NumKeys:   cfg.NumKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	app.keyManager = keyManager

	if err := app.initFlows(); err != nil {
		return nil, err
	}
	app.publisher = notify.NewLogPublisher(app.logger)

	app.initServices()

	if err := app.seed(context.Background()); err != nil {
		return nil, err
	}

	app.initHTTP()
	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	hkCtx, cancel := context.WithCancel(context.Background())
	app.stopHousekeeping = cancel
	go app.housekeepingService.Run(hkCtx)

	app.logger.Info("caseflow starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
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

// Shutdown drains in-flight requests, stops housekeeping, and closes the
// database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down caseflow...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.stopHousekeeping != nil {
		app.stopHousekeeping()
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("caseflow stopped")
	return nil
}

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

func (app *Application) initFlows() error {
	app.flows = flow.NewRegistry()
	for _, def := range flow.Builtin() {
		if err := app.flows.Register(def); err != nil {
			return fmt.Errorf("failed to register flow %q: %w", def.Key, err)
		}
	}
	return nil
}

func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Store:        app.db,
		Keys:         app.keyManager,
		Issuer:       app.cfg.Issuer,
		RefreshTTL:   app.cfg.RefreshTTL,
		StoreTimeout: app.cfg.StoreTimeout,
	}

	app.clientService = &service.ClientService{
		Store:        app.db,
		StoreTimeout: app.cfg.StoreTimeout,
	}

	app.processService = &service.ProcessService{
		Store:        app.db,
		Flows:        app.flows,
		Publisher:    app.publisher,
		StoreTimeout: app.cfg.StoreTimeout,
	}

	app.taskService = &service.TaskService{
		Store:        app.db,
		Flows:        app.flows,
		Publisher:    app.publisher,
		StoreTimeout: app.cfg.StoreTimeout,
	}

	app.housekeepingService = &service.HousekeepingService{
		Store:        app.db,
		Logger:       app.logger,
		Interval:     app.cfg.HousekeepingInterval,
		StoreTimeout: app.cfg.StoreTimeout,
	}
}

func (app *Application) initHTTP() {
	app.router = httpapi.NewRouter(
		app.keyManager.KeySet,
		app.keyManager.Verifier,
		app.db,
		app.logger,
	)
	app.router.TokenService = app.tokenService
	app.router.ClientService = app.clientService
	app.router.ProcessService = app.processService
	app.router.TaskService = app.taskService
	app.router.ApplyRoutes()

	app.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Port),
		Handler: app.router,
	}
}
