package view

import (
	"context"

	"github.com/dejobratic/ticketboard/internal/dashboard/app"
	"github.com/dejobratic/ticketboard/internal/dashboard/domain"
	"github.com/dejobratic/ticketboard/internal/query"
)

// Panels of a failed query keep showing the rows of its last successful
// fetch, if there was one.
func (r *Renderer) topCustomers(ctx context.Context, state query.State[domain.TopCustomersResponse]) TopCustomersPanel {
	return query.Match(state,
		func() TopCustomersPanel {
			r.metrics.RecordPanel(string(app.KeyTopCustomers), query.StatusPending.String())
			return TopCustomersPanel{Panel: Panel{Loading: true}}
		},
		func(resp domain.TopCustomersResponse) TopCustomersPanel {
			r.metrics.RecordPanel(string(app.KeyTopCustomers), query.StatusSuccess.String())
			return TopCustomersPanel{Rows: resp.Data}
		},
		func(err error) TopCustomersPanel {
			panel := TopCustomersPanel{Panel: Panel{Notice: r.swallow(ctx, app.KeyTopCustomers, "top customers", err)}}
			if last, ok := state.LastData(); ok {
				panel.Rows = last.Data
			}
			return panel
		},
	)
}

func (r *Renderer) unusedBarcodes(ctx context.Context, state query.State[domain.UnusedBarcodesResponse]) UnusedBarcodesPanel {
	return query.Match(state,
		func() UnusedBarcodesPanel {
			r.metrics.RecordPanel(string(app.KeyUnusedBarcodes), query.StatusPending.String())
			return UnusedBarcodesPanel{Panel: Panel{Loading: true}}
		},
		func(resp domain.UnusedBarcodesResponse) UnusedBarcodesPanel {
			r.metrics.RecordPanel(string(app.KeyUnusedBarcodes), query.StatusSuccess.String())
			return UnusedBarcodesPanel{Total: resp.Data.Total(), Barcodes: resp.Data.Barcodes}
		},
		func(err error) UnusedBarcodesPanel {
			panel := UnusedBarcodesPanel{Panel: Panel{Notice: r.swallow(ctx, app.KeyUnusedBarcodes, "unused barcodes", err)}}
			if last, ok := state.LastData(); ok {
				panel.Total = last.Data.Total()
				panel.Barcodes = last.Data.Barcodes
			}
			return panel
		},
	)
}

func (r *Renderer) processedOrders(ctx context.Context, state query.State[domain.ProcessResponse]) OrdersPanel {
	return query.Match(state,
		func() OrdersPanel {
			r.metrics.RecordPanel(string(app.KeyProcess), query.StatusPending.String())
			return OrdersPanel{Panel: Panel{Loading: true}}
		},
		func(resp domain.ProcessResponse) OrdersPanel {
			r.metrics.RecordPanel(string(app.KeyProcess), query.StatusSuccess.String())
			return OrdersPanel{Orders: resp.Data.Orders}
		},
		func(err error) OrdersPanel {
			panel := OrdersPanel{Panel: Panel{Notice: r.swallow(ctx, app.KeyProcess, "processed orders", err)}}
			if last, ok := state.LastData(); ok {
				panel.Orders = last.Data.Orders
			}
			return panel
		},
	)
}
