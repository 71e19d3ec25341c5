package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dejobratic/ticketboard/internal/dashboard/ports"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL + "/api")
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}
	return client
}

func TestNewClient(t *testing.T) {
	t.Run("defaults the base url", func(t *testing.T) {
		client, err := NewClient("")
		if err != nil {
			t.Fatalf("NewClient() failed: %v", err)
		}
		if client.BaseURL() != DefaultBaseURL {
			t.Errorf("expected %q, got %q", DefaultBaseURL, client.BaseURL())
		}
	})

	t.Run("trims trailing slash", func(t *testing.T) {
		client, err := NewClient("http://backend:5000/api/")
		if err != nil {
			t.Fatalf("NewClient() failed: %v", err)
		}
		if client.BaseURL() != "http://backend:5000/api" {
			t.Errorf("unexpected base url %q", client.BaseURL())
		}
	})

	tests := []struct {
		name    string
		baseURL string
	}{
		{name: "rejects unsupported scheme", baseURL: "ftp://backend/api"},
		{name: "rejects missing host", baseURL: "http:///api"},
		{name: "rejects relative url", baseURL: "/api"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClient(tt.baseURL); err == nil {
				t.Errorf("expected error for %q", tt.baseURL)
			}
		})
	}
}

func TestProcessedOrders(t *testing.T) {
	t.Run("decodes orders with numeric barcodes", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || r.URL.Path != "/api/process" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"success","data":{"orders":[
				{"order_id":1,"customer_id":10,"barcodes":[111,"222"]}
			],"analytics":{"top_customers":[{"customer_id":10,"ticket_count":2}],
			"unused_barcodes":{"count":1,"barcodes":[{"barcode":333}]}}}}`))
		})

		resp, err := client.ProcessedOrders(context.Background())
		if err != nil {
			t.Fatalf("ProcessedOrders() failed: %v", err)
		}

		if resp.Status != "success" {
			t.Errorf("expected status success, got %q", resp.Status)
		}
		if len(resp.Data.Orders) != 1 {
			t.Fatalf("expected 1 order, got %d", len(resp.Data.Orders))
		}
		if got := resp.Data.Orders[0].JoinedBarcodes(); got != "111, 222" {
			t.Errorf("expected barcodes %q, got %q", "111, 222", got)
		}
		if resp.Data.Analytics == nil || resp.Data.Analytics.UnusedBarcodes.Total() != 1 {
			t.Errorf("expected analytics with 1 unused barcode, got %+v", resp.Data.Analytics)
		}
	})

	t.Run("returns HTTPError with backend message", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"status":"error","message":"Error processing orders"}`))
		})

		_, err := client.ProcessedOrders(context.Background())

		var httpErr *ports.HTTPError
		if !errors.As(err, &httpErr) {
			t.Fatalf("expected HTTPError, got %T: %v", err, err)
		}
		if httpErr.Status != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", httpErr.Status)
		}
		if httpErr.Message() != "Error processing orders" {
			t.Errorf("unexpected message %q", httpErr.Message())
		}
	})

	t.Run("returns DecodeError for malformed body", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"status":"success","data":`))
		})

		_, err := client.ProcessedOrders(context.Background())

		var decodeErr *ports.DecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("expected DecodeError, got %T: %v", err, err)
		}
	})

	t.Run("returns TransportError when backend is unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		client, err := NewClient(url)
		if err != nil {
			t.Fatalf("NewClient() failed: %v", err)
		}

		_, err = client.ProcessedOrders(context.Background())

		var transportErr *ports.TransportError
		if !errors.As(err, &transportErr) {
			t.Fatalf("expected TransportError, got %T: %v", err, err)
		}
	})

	t.Run("honours context cancellation", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data":{"orders":[]}}`))
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.ProcessedOrders(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestTopCustomers(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/customers/top" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"success","data":[
			{"customer_id":10,"ticket_count":7},{"customer_id":11,"ticket_count":3}]}`))
	})

	resp, err := client.TopCustomers(context.Background())
	if err != nil {
		t.Fatalf("TopCustomers() failed: %v", err)
	}

	if len(resp.Data) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(resp.Data))
	}
	if resp.Data[0].CustomerID != 10 || resp.Data[0].TicketCount != 7 {
		t.Errorf("unexpected first row %+v", resp.Data[0])
	}
}

func TestUnusedBarcodes(t *testing.T) {
	t.Run("decodes count and barcodes", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/barcodes/unused" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			_, _ = w.Write([]byte(`{"status":"success","data":{"count":2,"barcodes":[
				{"barcode":"A1"},{"barcode":42}]}}`))
		})

		resp, err := client.UnusedBarcodes(context.Background())
		if err != nil {
			t.Fatalf("UnusedBarcodes() failed: %v", err)
		}

		if resp.Data.Total() != 2 {
			t.Errorf("expected total 2, got %d", resp.Data.Total())
		}
		if resp.Data.Barcodes[1].Barcode != "42" {
			t.Errorf("expected barcode 42, got %q", resp.Data.Barcodes[1].Barcode)
		}
	})

	t.Run("missing count totals zero", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data":{"barcodes":[]}}`))
		})

		resp, err := client.UnusedBarcodes(context.Background())
		if err != nil {
			t.Fatalf("UnusedBarcodes() failed: %v", err)
		}
		if resp.Data.Count != nil || resp.Data.Total() != 0 {
			t.Errorf("expected nil count and zero total, got %+v", resp.Data)
		}
	})
}

func TestCustomerOrders(t *testing.T) {
	t.Run("requests the customer path", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/orders/42" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			_, _ = w.Write([]byte(`{"status":"success","data":[
				{"order_id":7,"customer_id":42,"barcodes":["X"]}]}`))
		})

		resp, err := client.CustomerOrders(context.Background(), 42)
		if err != nil {
			t.Fatalf("CustomerOrders() failed: %v", err)
		}
		if len(resp.Data) != 1 || resp.Data[0].OrderID != 7 {
			t.Errorf("unexpected orders %+v", resp.Data)
		}
	})

	t.Run("returns 404 as HTTPError", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":"error","message":"No orders found for customer 42"}`))
		})

		_, err := client.CustomerOrders(context.Background(), 42)

		var httpErr *ports.HTTPError
		if !errors.As(err, &httpErr) || httpErr.Status != http.StatusNotFound {
			t.Fatalf("expected 404 HTTPError, got %v", err)
		}
	})
}

func TestPing(t *testing.T) {
	t.Run("succeeds on 2xx without decoding", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			_, _ = w.Write([]byte("ok"))
		})

		if err := client.Ping(context.Background()); err != nil {
			t.Errorf("Ping() failed: %v", err)
		}
	})

	t.Run("fails on 503", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		if err := client.Ping(context.Background()); err == nil {
			t.Error("expected Ping() to fail")
		}
	})
}
