package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dejobratic/ticketboard/internal/dashboard/domain"
	"github.com/dejobratic/ticketboard/internal/dashboard/ports"
	"github.com/dejobratic/ticketboard/internal/query"
)

// Service bundles the dashboard's read use cases over one shared cache.
type Service struct {
	api   ports.AnalyticsAPI
	cache *query.Cache
}

// NewService wires required dependencies.
func NewService(api ports.AnalyticsAPI, cache *query.Cache) *Service {
	return &Service{
		api:   api,
		cache: cache,
	}
}

// Dashboard holds the subscriptions of one page render.
type Dashboard struct {
	Process        *query.Subscription[domain.ProcessResponse]
	TopCustomers   *query.Subscription[domain.TopCustomersResponse]
	UnusedBarcodes *query.Subscription[domain.UnusedBarcodesResponse]
}

// OpenDashboard subscribes to all three dashboard queries at once so their
// fetches run concurrently. The caller must call Close.
func (s *Service) OpenDashboard() *Dashboard {
	return &Dashboard{
		Process:        ProcessQuery(s.api).Subscribe(s.cache),
		TopCustomers:   TopCustomersQuery(s.api).Subscribe(s.cache),
		UnusedBarcodes: UnusedBarcodesQuery(s.api).Subscribe(s.cache),
	}
}

// CustomerOrders reads one customer's orders through the cache.
func (s *Service) CustomerOrders(ctx context.Context, customerID int64) (domain.CustomerOrdersResponse, error) {
	sub := CustomerOrdersQuery(s.api, customerID).Subscribe(s.cache)
	defer sub.Unsubscribe()

	state, err := sub.Wait(ctx)
	if err != nil {
		return domain.CustomerOrdersResponse{}, err
	}
	if err := state.Err(); err != nil {
		return domain.CustomerOrdersResponse{}, err
	}
	data, _ := state.Data()
	return data, nil
}

// Ready reports whether the backend answers.
func (s *Service) Ready(ctx context.Context) error {
	return s.api.Ping(ctx)
}

// Wait blocks until every query has settled or ctx is done.
func (d *Dashboard) Wait(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := d.Process.Wait(ctx)
		return err
	})
	g.Go(func() error {
		_, err := d.TopCustomers.Wait(ctx)
		return err
	})
	g.Go(func() error {
		_, err := d.UnusedBarcodes.Wait(ctx)
		return err
	})
	return g.Wait()
}

// Pending reports whether any query has not settled yet.
func (d *Dashboard) Pending() bool {
	return d.Process.State().IsPending() ||
		d.TopCustomers.State().IsPending() ||
		d.UnusedBarcodes.State().IsPending()
}

// Close releases every subscription.
func (d *Dashboard) Close() {
	d.Process.Unsubscribe()
	d.TopCustomers.Unsubscribe()
	d.UnusedBarcodes.Unsubscribe()
}
