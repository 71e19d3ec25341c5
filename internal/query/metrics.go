package query

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Lookup outcomes recorded when a subscription attaches to the cache.
const (
	LookupMiss  = "miss"
	LookupHit   = "hit"
	LookupStale = "stale"
	LookupJoin  = "join"
)

type Metrics struct {
	lookupsTotal  metric.Int64Counter
	fetchDuration metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.lookupsTotal, err = meter.Int64Counter(
		"query_cache_lookups_total",
		metric.WithDescription("Query cache subscriptions by lookup outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create query_cache_lookups_total counter: %w", err)
	}

	m.fetchDuration, err = meter.Float64Histogram(
		"query_fetch_duration_seconds",
		metric.WithDescription("Duration of query fetches issued by the cache"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create query_fetch_duration histogram: %w", err)
	}

	return m, nil
}

// Family is the key up to its first ':'. Parameterised keys such as
// "customerOrders:42" share the family "customerOrders", which keeps metric
// labels bounded.
func (k Key) Family() string {
	family, _, _ := strings.Cut(string(k), ":")
	return family
}

func (m *Metrics) RecordLookup(ctx context.Context, key Key, outcome string) {
	if m == nil {
		return
	}
	m.lookupsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("query.key", key.Family()),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordFetch(ctx context.Context, key Key, durationSeconds float64, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.fetchDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("query.key", key.Family()),
		attribute.String("status", status),
	))
}
