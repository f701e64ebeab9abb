// Package app assembles the service graph shared by volunteerd and
// volunteerctl from a resolved configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"volunteercore/internal/config"
	"volunteercore/internal/core"
	"volunteercore/internal/httpapi"
	"volunteercore/internal/notify"
	"volunteercore/pkg/domain"
)

const shutdownTimeout = 10 * time.Second

// expvarName is the /debug/vars key for lifecycle counters.
const expvarName = "volunteercore_lifecycle"

// App owns the opened store, notifier and service.
type App struct {
	Config   config.Config
	Logger   logrus.FieldLogger
	Store    core.PersistentStore
	Notifier domain.Notifier
	Inbox    notify.Reader // nil when the notifier keeps nothing
	Registry *prometheus.Registry
	Metrics  core.MetricsRecorder // nil when metrics.driver is none
	Tracer   *core.JSONTracer     // nil unless trace.output is set
	Service  *core.Service

	closers []func() error
}

// Open connects every backend named by cfg. On error anything already opened
// is closed.
func Open(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store, err := core.OpenPersistentStore(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	notifier, closeNotifier, err := notify.Open(ctx, cfg.NotifyConfig(), logger)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open notifier: %w", err)
	}
	a.Notifier = notifier
	a.closers = append(a.closers, closeNotifier)
	if reader, ok := notify.AsReader(notifier); ok {
		a.Inbox = reader
	}

	if err := a.openObservability(cfg.Metrics, cfg.Trace); err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Service = core.NewService(store, notifier,
		core.WithLogger(logger.WithField("component", "lifecycle")),
		core.WithMetricsRecorder(a.Metrics),
		core.WithTracer(a.tracer()),
		core.WithDispatchConcurrency(cfg.DispatchConcurrency),
	)
	logger.WithFields(logrus.Fields{
		"storage":  cfg.Storage.Driver,
		"notifier": cfg.Notifier.Driver,
		"metrics":  cfg.Metrics.Driver,
	}).Info("volunteercore ready")
	return a, nil
}

func (a *App) openObservability(mc config.MetricsConfig, tc config.TraceConfig) error {
	switch mc.Driver {
	case config.MetricsPrometheus, "":
		rec, err := core.NewPrometheusMetricsRecorder(a.Registry)
		if err != nil {
			return err
		}
		a.Metrics = rec
	case config.MetricsExpvar:
		a.Metrics = core.NewExpvarMetricsRecorder(expvarName)
	case config.MetricsNone:
	default:
		return fmt.Errorf("unknown metrics driver %q", mc.Driver)
	}

	switch tc.Output {
	case "":
	case config.TraceStderr:
		a.Tracer = core.NewJSONTracer(os.Stderr)
	default:
		f, err := os.OpenFile(tc.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open trace output: %w", err)
		}
		a.closers = append(a.closers, f.Close)
		a.Tracer = core.NewJSONTracer(f)
	}
	return nil
}

// tracer keeps a nil *JSONTracer from reaching WithTracer as a non-nil interface.
func (a *App) tracer() core.Tracer {
	if a.Tracer == nil {
		return nil
	}
	return a.Tracer
}

// Handler returns the HTTP API for the app.
func (a *App) Handler() (http.Handler, error) {
	return httpapi.NewRouter(httpapi.Dependencies{
		Service:        a.Service,
		Inbox:          a.Inbox,
		Registry:       a.Registry,
		DebugVars:      a.Config.Metrics.Driver == config.MetricsExpvar,
		Logger:         a.Logger.WithField("component", "http"),
		RequestTimeout: 30 * time.Second,
	})
}

// Serve listens on the configured address until ctx is cancelled, then shuts
// the server down gracefully.
func (a *App) Serve(ctx context.Context) error {
	handler, err := a.Handler()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              a.Config.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.Logger.WithField("addr", srv.Addr).Info("http listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.Logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases backends in reverse open order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
