package ports

import (
	"context"

	"github.com/dejobratic/ticketboard/internal/dashboard/domain"
)

// AnalyticsAPI exposes the backend analytics endpoints the dashboard reads.
type AnalyticsAPI interface {
	ProcessedOrders(ctx context.Context) (domain.ProcessResponse, error)
	TopCustomers(ctx context.Context) (domain.TopCustomersResponse, error)
	UnusedBarcodes(ctx context.Context) (domain.UnusedBarcodesResponse, error)
	CustomerOrders(ctx context.Context, customerID int64) (domain.CustomerOrdersResponse, error)
	Ping(ctx context.Context) error
}
