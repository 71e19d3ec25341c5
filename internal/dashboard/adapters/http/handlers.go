package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dejobratic/ticketboard/internal/dashboard/app"
	"github.com/dejobratic/ticketboard/internal/dashboard/metrics"
	"github.com/dejobratic/ticketboard/internal/dashboard/view"
	"github.com/dejobratic/ticketboard/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

const readinessTimeout = 2 * time.Second

// Handler serves the dashboard page and the operational probes.
type Handler struct {
	service    *app.Service
	renderer   *view.Renderer
	renderWait time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type HandlerOption func(*Handler)

// WithRenderWait bounds how long a page waits for its queries to settle.
// Zero renders whatever state the cache holds.
func WithRenderWait(d time.Duration) HandlerOption {
	return func(h *Handler) {
		h.renderWait = d
	}
}

func WithRenderMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// NewHandler constructs a Handler.
func NewHandler(service *app.Service, renderer *view.Renderer, logger *slog.Logger, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		service:  service,
		renderer: renderer,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Dashboard subscribes to the page queries, waits for them within the
// render budget and renders whatever state they reached. Subscriptions are
// released when the response is written.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	dash := h.service.OpenDashboard()
	defer dash.Close()

	if h.renderWait > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, h.renderWait)
		err := dash.Wait(waitCtx)
		cancel()
		if err != nil && ctx.Err() != nil {
			h.logger.DebugContext(ctx, "client went away before dashboard settled", "error", ctx.Err())
			return
		}
	}

	page := h.renderer.Compose(ctx,
		dash.Process.State(),
		dash.TopCustomers.State(),
		dash.UnusedBarcodes.State(),
	)
	telemetry.AddEvent(ctx, "dashboard.composed",
		attribute.String("outcome", page.Outcome()),
		attribute.Bool("processing", page.Processing),
	)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.renderer.Render(w, page); err != nil {
		h.logger.ErrorContext(ctx, "failed to render dashboard", "error", err)
		h.metrics.RecordPage(metrics.OutcomeFailed, time.Since(start).Seconds())
		writeError(w, http.StatusInternalServerError, "failed to render dashboard")
		return
	}

	h.metrics.RecordPage(page.Outcome(), time.Since(start).Seconds())
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz reports ready when the backend API answers.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := h.service.Ready(ctx); err != nil {
		h.logger.WarnContext(ctx, "backend not ready", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
