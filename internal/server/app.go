// Package server initializes and runs the application server. It selects the
// storage backend, wires the services and the liveness sweep, and starts the
// public HTTP endpoint with graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lifesignal/lifesignal/internal/logging"
	"github.com/lifesignal/lifesignal/internal/obs"
	"github.com/lifesignal/lifesignal/internal/server/config"
	"github.com/lifesignal/lifesignal/internal/server/dispatch"
	"github.com/lifesignal/lifesignal/internal/server/httpapi"
	"github.com/lifesignal/lifesignal/internal/server/liveness"
	"github.com/lifesignal/lifesignal/internal/server/lockout"
	"github.com/lifesignal/lifesignal/internal/server/notify"
	"github.com/lifesignal/lifesignal/internal/server/shared/db"
	"github.com/lifesignal/lifesignal/internal/server/trustees"
	"github.com/lifesignal/lifesignal/internal/server/vault"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	manager db.RepositoryManager
	handler *httpapi.Handler
	engine  *dispatch.Engine
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	manager, err := newRepositoryManager(c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	notifier := newNotifier(c, logger)

	vaultSvc, err := vault.NewService(manager.Vault(), c, logger)
	if err != nil {
		return nil, fmt.Errorf("vault init error: %w", err)
	}
	livenessSvc := liveness.NewService(manager.Principals(), manager.Trustees(), logger)
	lockoutSvc := lockout.NewService(manager.Principals(), manager.Trustees(), notifier, logger)
	trusteeSvc := trustees.NewService(manager.Trustees(), notifier, logger)

	handler := httpapi.NewHandler(c, logger, manager.Principals(), livenessSvc, lockoutSvc, trusteeSvc, vaultSvc)
	engine := dispatch.NewEngine(manager.Principals(), manager.Trustees(), vaultSvc, notifier, c.NotifyTimeout, logger)

	obs.Init()

	return &App{
		config:  c,
		logger:  logger,
		manager: manager,
		handler: handler,
		engine:  engine,
	}, nil
}

// newRepositoryManager picks postgres when a DSN is configured, otherwise
// the in-memory store.
func newRepositoryManager(c *config.Config) (db.RepositoryManager, error) {
	if c.DatabaseDSN == "" {
		return db.NewInMemoryRepositoryManager(), nil
	}
	return db.NewPostgresRepositoryManager(c.DatabaseDSN)
}

// newNotifier posts to the configured webhook, or logs deliveries when no
// endpoint is set.
func newNotifier(c *config.Config, logger logging.Logger) notify.Notifier {
	if c.NotifyEndpoint == "" {
		return notify.NewLogNotifier(logger)
	}
	return notify.NewWebhookNotifier(c.NotifyEndpoint, c.NotifyTimeout)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: app.handler.Routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "http server listening", "addr", app.config.EndpointAddrHTTP)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "http server", "error", err)
		cancelFunc()
	}
}

// startSweep runs the liveness check on the configured cadence until the
// context is cancelled.
func (app *App) startSweep(ctx context.Context) {

	ticker := time.NewTicker(app.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := app.engine.RunCheck(ctx, time.Now().UTC()); err != nil {
				app.logger.Error(ctx, "liveness sweep", "error", err)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startSweep(ctx)
	}()

	wg.Wait()

	if conn := app.manager.Conn(); conn != nil {
		if err := conn.Close(); err != nil {
			app.logger.Error(ctx, "closing db", "error", err)
		}
	}
}
