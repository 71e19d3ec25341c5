package app

import (
	"context"
	"strconv"

	"github.com/dejobratic/ticketboard/internal/dashboard/domain"
	"github.com/dejobratic/ticketboard/internal/dashboard/ports"
	"github.com/dejobratic/ticketboard/internal/query"
)

// Query keys shared by every page render.
const (
	KeyProcess        query.Key = "process"
	KeyTopCustomers   query.Key = "topCustomers"
	KeyUnusedBarcodes query.Key = "unusedBarcodes"
)

func ProcessQuery(api ports.AnalyticsAPI) query.Definition[domain.ProcessResponse] {
	return query.Definition[domain.ProcessResponse]{
		Key:   KeyProcess,
		Fetch: api.ProcessedOrders,
	}
}

func TopCustomersQuery(api ports.AnalyticsAPI) query.Definition[domain.TopCustomersResponse] {
	return query.Definition[domain.TopCustomersResponse]{
		Key:   KeyTopCustomers,
		Fetch: api.TopCustomers,
	}
}

func UnusedBarcodesQuery(api ports.AnalyticsAPI) query.Definition[domain.UnusedBarcodesResponse] {
	return query.Definition[domain.UnusedBarcodesResponse]{
		Key:   KeyUnusedBarcodes,
		Fetch: api.UnusedBarcodes,
	}
}

// CustomerOrdersQuery is keyed per customer so each customer gets its own
// cache entry.
func CustomerOrdersQuery(api ports.AnalyticsAPI, customerID int64) query.Definition[domain.CustomerOrdersResponse] {
	return query.Definition[domain.CustomerOrdersResponse]{
		Key: query.Key("customerOrders:" + strconv.FormatInt(customerID, 10)),
		Fetch: func(ctx context.Context) (domain.CustomerOrdersResponse, error) {
			return api.CustomerOrders(ctx, customerID)
		},
	}
}
