package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Page render outcomes.
const (
	OutcomeComplete   = "complete"
	OutcomeProcessing = "processing"
	OutcomePartial    = "partial"
	OutcomeFailed     = "failed"
)

// Metrics counts dashboard renders for the Prometheus endpoint.
type Metrics struct {
	pageRenders     *prometheus.CounterVec
	panelRenders    *prometheus.CounterVec
	swallowedErrors *prometheus.CounterVec
	renderDuration  prometheus.Histogram
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		pageRenders: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ticketboard_page_renders_total",
			Help: "Dashboard page renders by outcome",
		}, []string{"outcome"}),
		panelRenders: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ticketboard_panel_renders_total",
			Help: "Dashboard panel renders by panel and query state",
		}, []string{"panel", "state"}),
		swallowedErrors: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ticketboard_swallowed_errors_total",
			Help: "Query errors rendered without a visible notice",
		}, []string{"query_key"}),
		renderDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "ticketboard_page_render_duration_seconds",
			Help:    "Time from request to rendered dashboard, including the settle wait",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

func (m *Metrics) RecordPage(outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.pageRenders.WithLabelValues(outcome).Inc()
	m.renderDuration.Observe(durationSeconds)
}

func (m *Metrics) RecordPanel(panel, state string) {
	if m == nil {
		return
	}
	m.panelRenders.WithLabelValues(panel, state).Inc()
}

func (m *Metrics) RecordSwallowedError(key string) {
	if m == nil {
		return
	}
	m.swallowedErrors.WithLabelValues(key).Inc()
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		var alreadyRegistered prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegistered) {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		var alreadyRegistered prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegistered) {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}
