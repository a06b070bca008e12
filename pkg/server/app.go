package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"TrendPulse/pkg/config"
	xhttp "TrendPulse/pkg/http"
	applogger "TrendPulse/pkg/logger"
)

const pruneInterval = time.Minute

// Pruner drops idle per-client state.
type Pruner interface {
	Prune() int
}

type namedCloser struct {
	name string
	c    io.Closer
}

// Option configures App.
type Option func(*App)

// WithCloser registers a resource closed on shutdown, in registration order. A nil
// closer is ignored.
func WithCloser(name string, c io.Closer) Option {
	return func(a *App) {
		if isNil(c) {
			return
		}
		a.closers = append(a.closers, namedCloser{name: name, c: c})
	}
}

// WithLimiter prunes the limiter's idle buckets while the app runs.
func WithLimiter(p Pruner) Option {
	return func(a *App) {
		if isNil(p) {
			return
		}
		a.pruner = p
	}
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	closers    []namedCloser
	pruner     Pruner
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, srv *xhttp.Server, opts ...Option) *App {
	a := &App{cfg: cfg, l: l, httpServer: srv}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the application and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("trendpulse started",
		applogger.String("keyword", a.cfg.Trends.Keyword),
		applogger.Int("window_days", a.cfg.Trends.WindowDays),
		applogger.Int("port", a.cfg.Server.Port),
	)

	if a.pruner != nil {
		go a.pruneLoop(ctx)
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) pruneLoop(ctx context.Context) {
	t := time.NewTicker(pruneInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.pruner.Prune(); n > 0 {
				a.l.Debug("rate limiter pruned", applogger.Int("buckets", n))
			}
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	a.l.Info("shutting down...")

	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	for _, c := range a.closers {
		if err := c.c.Close(); err != nil {
			a.l.Warn("close error", applogger.String("resource", c.name), applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}

// isNil catches interfaces holding a nil pointer, which wire passes for disabled parts.
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}
