package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dejobratic/ticketboard/internal/dashboard/domain"
	"github.com/dejobratic/ticketboard/internal/dashboard/ports"
)

// Endpoint names accepted by Fail and Calls.
const (
	EndpointProcess        = "/process"
	EndpointTopCustomers   = "/customers/top"
	EndpointUnusedBarcodes = "/barcodes/unused"
	EndpointCustomerOrders = "/orders/{customerId}"
	EndpointPing           = "/"
)

// API serves fixed analytics from memory. Useful for local development and
// tests; it counts calls per endpoint and can be told to fail.
type API struct {
	mu       sync.RWMutex
	orders   []domain.ProcessedOrder
	top      []domain.CustomerTicketCount
	unused   domain.UnusedBarcodeReport
	failures map[string]error
	calls    map[string]int
}

func NewAPI() *API {
	return &API{
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (a *API) SetOrders(orders ...domain.ProcessedOrder) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.orders = append([]domain.ProcessedOrder(nil), orders...)
}

func (a *API) SetTopCustomers(rows ...domain.CustomerTicketCount) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.top = append([]domain.CustomerTicketCount(nil), rows...)
}

func (a *API) SetUnusedBarcodes(report domain.UnusedBarcodeReport) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unused = report
}

// Fail makes every later call to endpoint return err. A nil err clears it.
func (a *API) Fail(endpoint string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err == nil {
		delete(a.failures, endpoint)
		return
	}
	a.failures[endpoint] = err
}

// Calls returns how many times endpoint was requested.
func (a *API) Calls(endpoint string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.calls[endpoint]
}

func (a *API) ProcessedOrders(_ context.Context) (domain.ProcessResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.record(EndpointProcess); err != nil {
		return domain.ProcessResponse{}, err
	}
	return domain.ProcessResponse{
		Status: "success",
		Data:   domain.ProcessResult{Orders: append([]domain.ProcessedOrder(nil), a.orders...)},
	}, nil
}

func (a *API) TopCustomers(_ context.Context) (domain.TopCustomersResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.record(EndpointTopCustomers); err != nil {
		return domain.TopCustomersResponse{}, err
	}
	return domain.TopCustomersResponse{
		Status: "success",
		Data:   append([]domain.CustomerTicketCount(nil), a.top...),
	}, nil
}

func (a *API) UnusedBarcodes(_ context.Context) (domain.UnusedBarcodesResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.record(EndpointUnusedBarcodes); err != nil {
		return domain.UnusedBarcodesResponse{}, err
	}
	return domain.UnusedBarcodesResponse{Status: "success", Data: a.unused}, nil
}

// CustomerOrders filters the stored orders by customer, answering 404 like
// the backend when the customer has none.
func (a *API) CustomerOrders(_ context.Context, customerID int64) (domain.CustomerOrdersResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.record(EndpointCustomerOrders); err != nil {
		return domain.CustomerOrdersResponse{}, err
	}

	var result []domain.ProcessedOrder
	for _, order := range a.orders {
		if order.CustomerID == customerID {
			result = append(result, order)
		}
	}
	if len(result) == 0 {
		body := fmt.Sprintf(`{"status":"error","message":"No orders found for customer %d"}`, customerID)
		return domain.CustomerOrdersResponse{}, &ports.HTTPError{Op: "get customer orders", Status: 404, Body: []byte(body)}
	}
	return domain.CustomerOrdersResponse{Status: "success", Data: result}, nil
}

func (a *API) Ping(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.record(EndpointPing)
}

func (a *API) record(endpoint string) error {
	a.calls[endpoint]++
	return a.failures[endpoint]
}
