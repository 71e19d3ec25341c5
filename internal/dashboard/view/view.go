// Package view renders the dashboard page and its panels from query states.
package view

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/dejobratic/ticketboard/internal/dashboard/app"
	"github.com/dejobratic/ticketboard/internal/dashboard/domain"
	"github.com/dejobratic/ticketboard/internal/dashboard/metrics"
	"github.com/dejobratic/ticketboard/internal/dashboard/ports"
	"github.com/dejobratic/ticketboard/internal/query"
)

//go:embed templates/*.html
var templateFS embed.FS

// DefaultRefreshInterval is the auto-refresh hint used while panels are
// still pending.
const DefaultRefreshInterval = 2 * time.Second

// Panel carries the state shared by every dashboard panel.
type Panel struct {
	Loading bool
	// Notice is a user-visible error message. Empty unless errors are shown.
	Notice string
}

type TopCustomersPanel struct {
	Panel
	Rows []domain.CustomerTicketCount
}

type UnusedBarcodesPanel struct {
	Panel
	Total    int
	Barcodes []domain.UnusedBarcode
}

type OrdersPanel struct {
	Panel
	Orders []domain.ProcessedOrder
}

// Page is the full dashboard model handed to the layout template.
type Page struct {
	Processing     bool
	TopCustomers   TopCustomersPanel
	UnusedBarcodes UnusedBarcodesPanel
	Orders         OrdersPanel
	// RefreshSeconds is non-zero when the browser should reload the page.
	RefreshSeconds int
}

// Pending reports whether any part of the page is still loading.
func (p Page) Pending() bool {
	return p.Processing || p.TopCustomers.Loading || p.UnusedBarcodes.Loading
}

// Outcome classifies the page for render metrics.
func (p Page) Outcome() string {
	switch {
	case p.Processing:
		return metrics.OutcomeProcessing
	case p.Pending():
		return metrics.OutcomePartial
	default:
		return metrics.OutcomeComplete
	}
}

type Renderer struct {
	tmpl            *template.Template
	logger          *slog.Logger
	metrics         *metrics.Metrics
	showErrors      bool
	refreshInterval time.Duration
}

type Option func(*Renderer)

// WithShowErrors turns on a visible notice in panels whose query failed.
func WithShowErrors(show bool) Option {
	return func(r *Renderer) {
		r.showErrors = show
	}
}

// WithRefreshInterval sets the reload hint for pages with pending panels.
// Zero disables it.
func WithRefreshInterval(d time.Duration) Option {
	return func(r *Renderer) {
		r.refreshInterval = d
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Renderer) {
		r.metrics = m
	}
}

func NewRenderer(logger *slog.Logger, opts ...Option) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	r := &Renderer{
		tmpl:            tmpl,
		logger:          logger,
		refreshInterval: DefaultRefreshInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Compose builds the page model. While process is pending the page is the
// processing placeholder; otherwise every panel reflects its own state.
func (r *Renderer) Compose(
	ctx context.Context,
	process query.State[domain.ProcessResponse],
	top query.State[domain.TopCustomersResponse],
	unused query.State[domain.UnusedBarcodesResponse],
) Page {
	var page Page
	if process.IsPending() {
		r.metrics.RecordPanel(string(app.KeyProcess), process.Status().String())
		page.Processing = true
	} else {
		page.Orders = r.processedOrders(ctx, process)
		page.TopCustomers = r.topCustomers(ctx, top)
		page.UnusedBarcodes = r.unusedBarcodes(ctx, unused)
	}

	if page.Pending() && r.refreshInterval > 0 {
		page.RefreshSeconds = int(math.Ceil(r.refreshInterval.Seconds()))
	}
	return page
}

// Render executes the layout into w. Nothing is written when execution
// fails.
func (r *Renderer) Render(w io.Writer, page Page) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// RenderPanel executes one named panel template, for fragment rendering
// and tests.
func (r *Renderer) RenderPanel(w io.Writer, name string, panel any) error {
	if err := r.tmpl.ExecuteTemplate(w, name, panel); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return nil
}

// swallow records an error the panel renders as empty data.
func (r *Renderer) swallow(ctx context.Context, key query.Key, title string, err error) string {
	r.metrics.RecordPanel(string(key), query.StatusError.String())
	if r.showErrors {
		return notice(title, err)
	}

	r.metrics.RecordSwallowedError(string(key))
	r.logger.WarnContext(ctx, "query error hidden from dashboard",
		"query_key", string(key),
		"error", err,
	)
	return ""
}

func notice(title string, err error) string {
	var httpErr *ports.HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Sprintf("Could not load %s (backend returned %d).", title, httpErr.Status)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Sprintf("Loading %s timed out.", title)
	}
	return fmt.Sprintf("Could not load %s.", title)
}
