// Package server runs the long-lived desk process: the collector loop and the
// HTTP API, stopped together on SIGINT or SIGTERM.
package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"PerpDesk/internal/usecase"
	"PerpDesk/pkg/config"
	xhttp "PerpDesk/pkg/http"
	applogger "PerpDesk/pkg/logger"
)

// App encapsulates the serve lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	collector  *usecase.Collector
	handler    xhttp.Handler
	httpServer *xhttp.Server
}

func New(cfg *config.Config, l *applogger.Logger, collector *usecase.Collector, handler xhttp.Handler) *App {
	return &App{
		cfg:       cfg,
		l:         applogger.OrNop(l).With("app"),
		collector: collector,
		handler:   handler,
	}
}

// Run starts the collector (unless withCollector is false) and the HTTP
// server, then blocks until interrupted.
func (a *App) Run(withCollector bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx, withCollector)
}

// RunContext is Run with an explicit lifetime.
func (a *App) RunContext(ctx context.Context, withCollector bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(a.cfg.Server.CORSOrigins...),
		xhttp.WithLogger(a.l),
	)

	var wg sync.WaitGroup
	if withCollector && a.collector != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.collector.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.l.Error("collector stopped", applogger.Error(err))
			}
		}()
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown(&wg)
}

func (a *App) shutdown(wg *sync.WaitGroup) error {
	// ctx is already cancelled; give the server its own budget
	err := a.httpServer.Stop(context.Background())
	if err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}
	wg.Wait()
	a.l.Info("shutdown complete")
	return err
}
