package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Envelope is the backend's response wrapper.
type Envelope[T any] struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}

// Barcode is a ticket barcode. The backend may encode it as a JSON string or
// a JSON number; both decode to the same textual value.
type Barcode string

func (b *Barcode) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*b = Barcode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return fmt.Errorf("barcode must be a string or number: %w", err)
	}
	*b = Barcode(n.String())
	return nil
}

// ProcessedOrder is an order with the barcodes (tickets) assigned to it.
type ProcessedOrder struct {
	OrderID    int64     `json:"order_id"`
	CustomerID int64     `json:"customer_id"`
	Barcodes   []Barcode `json:"barcodes"`
}

// TicketCount is the number of tickets in the order.
func (o ProcessedOrder) TicketCount() int {
	return len(o.Barcodes)
}

// JoinedBarcodes renders the barcodes as a comma-separated list.
func (o ProcessedOrder) JoinedBarcodes() string {
	parts := make([]string, len(o.Barcodes))
	for i, b := range o.Barcodes {
		parts[i] = string(b)
	}
	return strings.Join(parts, ", ")
}

// CustomerTicketCount is one row of the top-customers leaderboard.
type CustomerTicketCount struct {
	CustomerID  int64 `json:"customer_id"`
	TicketCount int   `json:"ticket_count"`
}

// UnusedBarcode is a barcode not assigned to any order.
type UnusedBarcode struct {
	Barcode Barcode `json:"barcode"`
	OrderID *int64  `json:"order_id,omitempty"`
}

// UnusedBarcodeReport lists unused barcodes. Count is nil when the backend
// omits it.
type UnusedBarcodeReport struct {
	Count    *int            `json:"count,omitempty"`
	Barcodes []UnusedBarcode `json:"barcodes"`
}

// Total returns the reported count, or 0 when absent.
func (r UnusedBarcodeReport) Total() int {
	if r.Count == nil {
		return 0
	}
	return *r.Count
}

// ProcessAnalytics is the analytics block returned alongside processed
// orders.
type ProcessAnalytics struct {
	TopCustomers   []CustomerTicketCount `json:"top_customers"`
	UnusedBarcodes UnusedBarcodeReport   `json:"unused_barcodes"`
}

// ProcessResult is the payload of the process endpoint.
type ProcessResult struct {
	Orders    []ProcessedOrder  `json:"orders"`
	Analytics *ProcessAnalytics `json:"analytics,omitempty"`
}

type (
	ProcessResponse        = Envelope[ProcessResult]
	TopCustomersResponse   = Envelope[[]CustomerTicketCount]
	UnusedBarcodesResponse = Envelope[UnusedBarcodeReport]
	CustomerOrdersResponse = Envelope[[]ProcessedOrder]
)
