package orders

import (
	"context"
	"time"
)

// Service exposes the order API used by the order desk.
type Service interface {
	// List returns a paginated set of orders that match the provided query.
	List(ctx context.Context, token string, query Query) (ListResult, error)

	// Get loads a single order.
	Get(ctx context.Context, token, orderID string) (Order, error)

	// Create registers a manual order.
	Create(ctx context.Context, token string, req CreateRequest) (Order, error)

	// Update edits customer, line item and scheduling details of an order.
	Update(ctx context.Context, token, orderID string, req UpdateRequest) (Order, error)

	// Delete removes an order. Permanent deletes erase it; otherwise it is soft deleted.
	Delete(ctx context.Context, token, orderID string, permanent bool) error

	// Restore clears the soft delete marker.
	Restore(ctx context.Context, token, orderID string) (Order, error)

	// Confirm marks the order as confirmed by the customer, optionally assigning a carrier.
	Confirm(ctx context.Context, token, orderID string, req ConfirmRequest) (Order, error)

	// Reject cancels the order before dispatch.
	Reject(ctx context.Context, token, orderID string, req RejectRequest) (Order, error)

	// UpdateStatus attempts to transition an order to the provided status.
	UpdateStatus(ctx context.Context, token, orderID string, req StatusUpdateRequest) (Order, error)

	// MarkContacted records that the customer was reached.
	MarkContacted(ctx context.Context, token, orderID string) (Order, error)

	// MarkPrinted records that the shipping label of a single order was printed.
	MarkPrinted(ctx context.Context, token, orderID string) (Order, error)

	// BulkPrintDispatch marks a batch of orders as printed and dispatched, reporting per-order outcomes.
	BulkPrintDispatch(ctx context.Context, token string, orderIDs []string) (BulkPrintResult, error)

	// MarkTest flags or unflags an order as a test order.
	MarkTest(ctx context.Context, token, orderID string, isTest bool) (Order, error)
}

// CreateRequest captures the fields of a manually created order.
type CreateRequest struct {
	Customer     Customer   `json:"customer"`
	LineItems    []LineItem `json:"line_items"`
	CarrierID    string     `json:"carrier_id,omitempty"`
	Pickup       bool       `json:"is_pickup,omitempty"`
	Currency     string     `json:"currency,omitempty"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	IsTest       bool       `json:"is_test,omitempty"`
}

// UpdateRequest captures editable order fields. Nil fields are left untouched.
type UpdateRequest struct {
	Customer     *Customer  `json:"customer,omitempty"`
	LineItems    []LineItem `json:"line_items,omitempty"`
	CarrierID    *string    `json:"carrier_id,omitempty"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
}

// ConfirmRequest confirms an order.
type ConfirmRequest struct {
	CarrierID string `json:"carrier_id,omitempty"`
	Note      string `json:"note,omitempty"`
}

// RejectRequest cancels an order.
type RejectRequest struct {
	Reason string `json:"reason,omitempty"`
}

// StatusUpdateRequest describes a status change.
type StatusUpdateRequest struct {
	Status Status `json:"status"`
	Note   string `json:"note,omitempty"`
}

// BulkPrintItem is the per-order outcome of a bulk print.
type BulkPrintItem struct {
	OrderID string `json:"order_id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Order   *Order `json:"order,omitempty"`
}

// BulkPrintResult aggregates bulk print outcomes.
type BulkPrintResult struct {
	Items []BulkPrintItem `json:"results"`
}

// Succeeded returns the items that were marked.
func (r BulkPrintResult) Succeeded() []BulkPrintItem {
	out := make([]BulkPrintItem, 0, len(r.Items))
	for _, item := range r.Items {
		if item.Success {
			out = append(out, item)
		}
	}
	return out
}

// Failed returns the items the backend could not mark.
func (r BulkPrintResult) Failed() []BulkPrintItem {
	out := make([]BulkPrintItem, 0)
	for _, item := range r.Items {
		if !item.Success {
			out = append(out, item)
		}
	}
	return out
}
