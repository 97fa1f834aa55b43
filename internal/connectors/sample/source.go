package sample

import (
	"context"
	"strconv"

	"customer-request-dashboard/internal/orders"
)

// Order is a built-in demo request, keyed the way the static demo page keys
// its objects.
type Order struct {
	ID         int
	Timestamp  string
	Customer   string
	Phone      string
	Details    string
	Priority   string
	Status     string
	AssignedTo string
}

// Orders is the demo data set.
var Orders = []Order{
	{ID: 1, Timestamp: "2025-09-22 15:30", Customer: "John Doe", Phone: "+1-555-0123", Details: "Product inquiry - Premium Package", Priority: "High", Status: "Processing", AssignedTo: "Team A"},
	{ID: 2, Timestamp: "2025-09-22 14:45", Customer: "Jane Smith", Phone: "+1-555-0124", Details: "Support request - Installation help", Priority: "Medium", Status: "Completed", AssignedTo: "Team B"},
	{ID: 3, Timestamp: "2025-09-22 13:20", Customer: "Bob Johnson", Phone: "+1-555-0125", Details: "Sales inquiry - Bulk order", Priority: "Low", Status: "Pending", AssignedTo: "Team C"},
}

// Source serves a fixed order list through the regular normalization path.
type Source struct {
	orders []Order
}

// NewSource returns a source over items, or the demo set when items is nil.
func NewSource(items []Order) *Source {
	if items == nil {
		items = Orders
	}
	return &Source{orders: items}
}

func (s *Source) Name() string {
	return "sample"
}

func (s *Source) Load(_ context.Context) ([]orders.RawRow, error) {
	out := make([]orders.RawRow, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, orders.RawRow{
			"id":         strconv.Itoa(o.ID),
			"timestamp":  o.Timestamp,
			"customer":   o.Customer,
			"phone":      o.Phone,
			"details":    o.Details,
			"priority":   o.Priority,
			"status":     o.Status,
			"assignedTo": o.AssignedTo,
		})
	}
	return out, nil
}
