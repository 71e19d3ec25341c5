package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dejobratic/ticketboard/internal/dashboard/adapters/memory"
	"github.com/dejobratic/ticketboard/internal/dashboard/app"
	"github.com/dejobratic/ticketboard/internal/dashboard/domain"
	"github.com/dejobratic/ticketboard/internal/dashboard/ports"
	"github.com/dejobratic/ticketboard/internal/query"
)

func newService(t *testing.T) (*app.Service, *memory.API, *query.Cache) {
	t.Helper()

	api := memory.NewAPI()
	cache := query.New()
	t.Cleanup(cache.Close)
	return app.NewService(api, cache), api, cache
}

func TestQueryKeys(t *testing.T) {
	api := memory.NewAPI()

	tests := []struct {
		name string
		got  query.Key
		want query.Key
	}{
		{name: "process", got: app.ProcessQuery(api).Key, want: "process"},
		{name: "top customers", got: app.TopCustomersQuery(api).Key, want: "topCustomers"},
		{name: "unused barcodes", got: app.UnusedBarcodesQuery(api).Key, want: "unusedBarcodes"},
		{name: "customer orders", got: app.CustomerOrdersQuery(api, 7).Key, want: "customerOrders:7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("expected key %q, got %q", tt.want, tt.got)
			}
		})
	}
}

func TestOpenDashboard(t *testing.T) {
	t.Run("settles all three queries", func(t *testing.T) {
		svc, api, _ := newService(t)
		api.SetOrders(domain.ProcessedOrder{OrderID: 1, CustomerID: 10, Barcodes: []domain.Barcode{"A", "B"}})
		api.SetTopCustomers(domain.CustomerTicketCount{CustomerID: 10, TicketCount: 2})

		dash := svc.OpenDashboard()
		defer dash.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := dash.Wait(ctx); err != nil {
			t.Fatalf("Wait() failed: %v", err)
		}

		if dash.Pending() {
			t.Error("expected no pending queries")
		}
		process, ok := dash.Process.State().Data()
		if !ok || len(process.Data.Orders) != 1 {
			t.Errorf("expected 1 processed order, got %+v", process)
		}
	})

	t.Run("captures backend errors per query", func(t *testing.T) {
		svc, api, _ := newService(t)
		api.Fail(memory.EndpointTopCustomers, &ports.HTTPError{Op: "get top customers", Status: 500})

		dash := svc.OpenDashboard()
		defer dash.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := dash.Wait(ctx); err != nil {
			t.Fatalf("Wait() failed: %v", err)
		}

		if dash.TopCustomers.State().Status() != query.StatusError {
			t.Errorf("expected error state, got %s", dash.TopCustomers.State().Status())
		}
		if dash.Process.State().Status() != query.StatusSuccess {
			t.Errorf("expected process success, got %s", dash.Process.State().Status())
		}
	})

	t.Run("close releases entries", func(t *testing.T) {
		api := memory.NewAPI()
		cache := query.New(query.WithGCTime(0))
		defer cache.Close()
		svc := app.NewService(api, cache)

		dash := svc.OpenDashboard()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = dash.Wait(ctx)
		dash.Close()

		if cache.Len() != 0 {
			t.Errorf("expected empty cache, got %d entries", cache.Len())
		}
	})
}

func TestCustomerOrders(t *testing.T) {
	t.Run("returns orders for known customer", func(t *testing.T) {
		svc, api, _ := newService(t)
		api.SetOrders(
			domain.ProcessedOrder{OrderID: 1, CustomerID: 10},
			domain.ProcessedOrder{OrderID: 2, CustomerID: 11},
		)

		resp, err := svc.CustomerOrders(context.Background(), 11)
		if err != nil {
			t.Fatalf("CustomerOrders() failed: %v", err)
		}
		if len(resp.Data) != 1 || resp.Data[0].OrderID != 2 {
			t.Errorf("unexpected orders %+v", resp.Data)
		}
	})

	t.Run("surfaces 404 for unknown customer", func(t *testing.T) {
		svc, _, _ := newService(t)

		_, err := svc.CustomerOrders(context.Background(), 99)

		var httpErr *ports.HTTPError
		if !errors.As(err, &httpErr) || httpErr.Status != 404 {
			t.Errorf("expected 404 HTTPError, got %v", err)
		}
	})
}

func TestReady(t *testing.T) {
	svc, api, _ := newService(t)
	if err := svc.Ready(context.Background()); err != nil {
		t.Errorf("Ready() failed: %v", err)
	}

	api.Fail(memory.EndpointPing, errors.New("down"))
	if err := svc.Ready(context.Background()); err == nil {
		t.Error("expected Ready() to fail")
	}
}
