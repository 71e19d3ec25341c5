package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/dejobratic/ticketboard/internal/dashboard/adapters/backend"
	"github.com/dejobratic/ticketboard/internal/dashboard/domain"
	"github.com/dejobratic/ticketboard/internal/dashboard/ports"
	"github.com/dejobratic/ticketboard/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ObservableClient decorates an AnalyticsAPI with a span and a latency
// measurement per call.
type ObservableClient struct {
	api     ports.AnalyticsAPI
	metrics *backend.Metrics
}

func NewObservableClient(api ports.AnalyticsAPI, metrics *backend.Metrics) *ObservableClient {
	return &ObservableClient{
		api:     api,
		metrics: metrics,
	}
}

func (c *ObservableClient) ProcessedOrders(ctx context.Context) (domain.ProcessResponse, error) {
	ctx, span := c.start(ctx, "ProcessedOrders", "/process")
	defer span.End()

	start := time.Now()
	resp, err := c.api.ProcessedOrders(ctx)
	c.finish(ctx, span, "/process", start, err)
	if err != nil {
		return domain.ProcessResponse{}, err
	}

	span.SetAttributes(attribute.Int("result.orders", len(resp.Data.Orders)))
	return resp, nil
}

func (c *ObservableClient) TopCustomers(ctx context.Context) (domain.TopCustomersResponse, error) {
	ctx, span := c.start(ctx, "TopCustomers", "/customers/top")
	defer span.End()

	start := time.Now()
	resp, err := c.api.TopCustomers(ctx)
	c.finish(ctx, span, "/customers/top", start, err)
	if err != nil {
		return domain.TopCustomersResponse{}, err
	}

	span.SetAttributes(attribute.Int("result.count", len(resp.Data)))
	return resp, nil
}

func (c *ObservableClient) UnusedBarcodes(ctx context.Context) (domain.UnusedBarcodesResponse, error) {
	ctx, span := c.start(ctx, "UnusedBarcodes", "/barcodes/unused")
	defer span.End()

	start := time.Now()
	resp, err := c.api.UnusedBarcodes(ctx)
	c.finish(ctx, span, "/barcodes/unused", start, err)
	if err != nil {
		return domain.UnusedBarcodesResponse{}, err
	}

	span.SetAttributes(attribute.Int("result.count", resp.Data.Total()))
	return resp, nil
}

func (c *ObservableClient) CustomerOrders(ctx context.Context, customerID int64) (domain.CustomerOrdersResponse, error) {
	ctx, span := c.start(ctx, "CustomerOrders", "/orders/{customerId}", attribute.Int64("customer.id", customerID))
	defer span.End()

	start := time.Now()
	resp, err := c.api.CustomerOrders(ctx, customerID)
	c.finish(ctx, span, "/orders/{customerId}", start, err)
	if err != nil {
		return domain.CustomerOrdersResponse{}, err
	}

	span.SetAttributes(attribute.Int("result.orders", len(resp.Data)))
	return resp, nil
}

func (c *ObservableClient) Ping(ctx context.Context) error {
	ctx, span := c.start(ctx, "Ping", "/")
	defer span.End()

	start := time.Now()
	err := c.api.Ping(ctx)
	c.finish(ctx, span, "/", start, err)
	return err
}

func (c *ObservableClient) start(ctx context.Context, method, endpoint string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return telemetry.StartSpan(ctx, "AnalyticsAPI."+method, append([]attribute.KeyValue{
		attribute.String("http.method", "GET"),
		attribute.String("endpoint", endpoint),
	}, attrs...)...)
}

func (c *ObservableClient) finish(ctx context.Context, span trace.Span, endpoint string, start time.Time, err error) {
	c.metrics.RecordRequest(ctx, endpoint, time.Since(start).Seconds(), err == nil)

	var httpErr *ports.HTTPError
	if errors.As(err, &httpErr) {
		span.SetAttributes(attribute.Int("http.status_code", httpErr.Status))
	}
	telemetry.SetSpanResult(span, err)
}
