package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const DefaultMetricsPath = "/metrics"

type RouterConfig struct {
	MetricsPath    string
	MetricsHandler http.Handler
	// RateLimiter guards the dashboard route. Nil disables limiting.
	RateLimiter *RateLimiter
	// TrustProxyHeaders takes the client address from X-Forwarded-For or
	// X-Real-IP. Enable it only behind a proxy that overwrites them, since
	// the rate limiter keys on that address.
	TrustProxyHeaders bool
	Metrics     *Metrics
	Logger      *slog.Logger
}

// NewRouter mounts the dashboard at / and the operational endpoints beside
// it. Every other path answers 404.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = DefaultMetricsPath
	}

	r := chi.NewRouter()
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(func(next http.Handler) http.Handler { return WithLogging(next, logger) })
	r.Use(func(next http.Handler) http.Handler { return WithRecovery(next, logger) })
	r.Use(func(next http.Handler) http.Handler { return WithMetrics(next, cfg.Metrics) })

	r.Group(func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(func(next http.Handler) http.Handler {
				return WithRateLimit(next, cfg.RateLimiter, cfg.Metrics)
			})
		}
		r.Get("/", h.Dashboard)
	})

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, metricsPath, cfg.MetricsHandler)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
