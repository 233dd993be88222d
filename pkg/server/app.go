package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bournewang/ai-hedge-fund/internal/domain/repository"
	"github.com/bournewang/ai-hedge-fund/internal/middleware"
	"github.com/bournewang/ai-hedge-fund/internal/service/push"
	"github.com/bournewang/ai-hedge-fund/internal/service/scheduler"
	"github.com/bournewang/ai-hedge-fund/internal/usecase"
	"github.com/bournewang/ai-hedge-fund/pkg/config"
	xhttp "github.com/bournewang/ai-hedge-fund/pkg/http"
	applogger "github.com/bournewang/ai-hedge-fund/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	ctrl        *usecase.RunController
	hub         *push.Hub
	throttle    *middleware.PushThrottle
	sched       *scheduler.Scheduler
	publisher   repository.ResultPublisher
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	ctrl *usecase.RunController,
	hub *push.Hub,
	throttle *middleware.PushThrottle,
	sched *scheduler.Scheduler,
	publisher repository.ResultPublisher,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		ctrl:      ctrl,
		hub:       hub,
		throttle:  throttle,
		sched:     sched,
		publisher: publisher,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Route aggregated warn/error logs through Kafka when both sides are on.
	if a.cfg.Logging.Collector.Enabled {
		if pub, ok := a.publisher.(applogger.Publisher); ok {
			a.log.AddCollector(&applogger.CollectionConfig{
				TimeInterval:   a.cfg.Logging.Collector.Interval,
				CountThreshold: a.cfg.Logging.Collector.CountThreshold,
				Topic:          a.cfg.Logging.Collector.Topic,
				Publisher:      pub,
			})
			a.log.Info("log collector attached", applogger.String("topic", a.cfg.Logging.Collector.Topic))
		}
	}

	// Watcher fan-out: hub distributes, throttle coalesces run updates.
	go a.hub.Run(ctx)
	a.throttle.Start(ctx)

	if a.cfg.Scheduler.Enabled {
		if err := a.sched.Start(); err != nil {
			a.log.Error("scheduler start error", applogger.Error(err))
			return err
		}
		a.log.Info("scheduler started", applogger.Int("jobs", a.sched.Entries()))
	}

	opts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	}
	if a.cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithRequestMetrics(a.log, a.cfg.Metrics.SlowThreshold))
	}
	a.httpServer = xhttp.NewServer(a.httpHandler, opts...)

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("backend", a.cfg.Backend.URL))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	// Stop sources of new work before draining what is in flight.
	if a.cfg.Scheduler.Enabled {
		a.sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.ctrl.Cancel() {
		a.log.Info("canceled in-flight run")
	}
	a.throttle.Stop()

	// The collector flushes through the publisher, so detach it first.
	a.log.RemoveCollector()
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
