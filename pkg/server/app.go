package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"PredWatch/internal/usecase"
	pkgch "PredWatch/pkg/clickhouse"
	"PredWatch/pkg/config"
	xhttp "PredWatch/pkg/http"
	applogger "PredWatch/pkg/logger"
	"PredWatch/pkg/sqlite"
)

// App encapsulates the entire application lifecycle: the periodic
// monitoring workers, the HTTP surface, and the storage clients that
// must close in order on shutdown.
type App struct {
	cfg       *config.Config
	logger    *applogger.Logger
	scheduler *usecase.Scheduler
	handler   xhttp.Handler

	httpServer *xhttp.Server
	chClient   *pkgch.Client
	sqClient   *sqlite.Client
	closers    []func() error
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	scheduler *usecase.Scheduler,
	handler xhttp.Handler,
	chClient *pkgch.Client,
	sqClient *sqlite.Client,
) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		scheduler: scheduler,
		handler:   handler,
		chClient:  chClient,
		sqClient:  sqClient,
	}
}

// AddCloser registers an extra resource to close on shutdown, such as
// the Redis cache or the Kafka producer.
func (a *App) AddCloser(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	a.scheduler.Start(ctx)
	a.logger.Info("monitoring workers started",
		applogger.Strings("tickers", a.cfg.Monitor.Tickers))

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("http server listening", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown stops workers first so no cycle is mid-write when the
// storage clients close.
func (a *App) shutdown(ctx context.Context) error {
	a.scheduler.Shutdown()
	a.logger.Info("workers drained")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("resource close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.sqClient != nil {
		if err := a.sqClient.Close(); err != nil {
			a.logger.Warn("sqlite close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
