package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/crewdeck/crewdeck/internal/identity/http"
	"github.com/crewdeck/crewdeck/internal/identity/metrics"
	"github.com/crewdeck/crewdeck/internal/identity/notify"
	"github.com/crewdeck/crewdeck/internal/identity/service"
	"github.com/crewdeck/crewdeck/internal/identity/store"
	"github.com/crewdeck/crewdeck/internal/identity/store/drivers/sqlite"
	"github.com/crewdeck/crewdeck/pkg/cryptox"
	"github.com/crewdeck/crewdeck/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the identity service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	sender notify.Sender

	credentialService   *service.CredentialService
	sessionService      *service.SessionService
	otpService          *service.OtpService
	recoveryService     *service.RecoveryService
	accessService       *service.AccessService
	inviteService       *service.InviteService
	accountService      *service.AccountService
	orgService          *service.OrgService
	housekeepingService *service.HousekeepingService

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

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	metrics.Register()

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.sender = notify.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, app.logger)

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("identity service starting", "port", app.cfg.Port, "version", BuildVersion)

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

// Shutdown drains in-flight requests, stops housekeeping and closes the
// database.
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

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("identity service stopped")
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

func (app *Application) initServices() error {
	credentials, err := service.NewCredentialService(app.db)
	if err != nil {
		return fmt.Errorf("failed to initialize credential service: %w", err)
	}
	app.credentialService = credentials

	app.sessionService = &service.SessionService{
		Store:       app.db,
		Credentials: app.credentialService,
		TTL:         app.cfg.SessionTTL,
	}
	app.otpService = &service.OtpService{
		Store:  app.db,
		Sender: app.sender,
		TTL:    app.cfg.OtpTTL,
	}
	app.recoveryService = &service.RecoveryService{
		Store:    app.db,
		Sender:   app.sender,
		LinkBase: app.cfg.LinkBase,
		TTL:      app.cfg.RecoveryTTL,
	}
	app.accessService = &service.AccessService{Store: app.db}
	app.inviteService = &service.InviteService{
		Store:    app.db,
		Access:   app.accessService,
		Sender:   app.sender,
		LinkBase: app.cfg.LinkBase,
		TTL:      app.cfg.InviteTTL,
	}
	app.accountService = &service.AccountService{
		Store: app.db,
		Otp:   app.otpService,
	}
	app.orgService = &service.OrgService{
		Store:  app.db,
		Access: app.accessService,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	router.SessionService = app.sessionService
	router.OtpService = app.otpService
	router.RecoveryService = app.recoveryService
	router.AccessService = app.accessService
	router.InviteService = app.inviteService
	router.AccountService = app.accountService
	router.OrgService = app.orgService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
