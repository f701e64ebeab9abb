// Package httpapi exposes the lifecycle service over JSON/HTTP.
package httpapi

import (
	"expvar"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"volunteercore/internal/core"
	"volunteercore/internal/notify"
)

const maxBodyBytes = 1 << 20

// Dependencies wires the router. Inbox and Registry are optional; without a
// registry no /metrics endpoint is served.
type Dependencies struct {
	Service  *core.Service
	Inbox    notify.Reader
	Registry *prometheus.Registry
	Logger   logrus.FieldLogger

	// DebugVars serves the expvar set at /debug/vars.
	DebugVars bool

	// RequestTimeout bounds each request; zero disables the limit.
	RequestTimeout time.Duration
}

// NewRouter returns the HTTP handler for deps.
func NewRouter(deps Dependencies) (http.Handler, error) {
	if deps.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		deps.Logger = l
	}
	h := &handler{service: deps.Service, inbox: deps.Inbox}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	if deps.Registry != nil {
		metrics, err := newHTTPMetrics(deps.Registry)
		if err != nil {
			return nil, err
		}
		r.Use(metrics.instrument)
	}
	if deps.RequestTimeout > 0 {
		r.Use(middleware.Timeout(deps.RequestTimeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}
	if deps.DebugVars {
		r.Method(http.MethodGet, "/debug/vars", expvar.Handler())
	}

	r.Route("/applications", func(r chi.Router) {
		r.Post("/", h.submit)
		r.Get("/", h.list)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Post("/status", h.changeStatus)
			r.Post("/withdraw", h.withdraw)
		})
	})
	r.Get("/recipients/{id}/notifications", h.notifications)
	return r, nil
}

func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"request_id":  middleware.GetReqID(r.Context()),
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(started).Milliseconds(),
			}).Info("http request")
		})
	}
}
