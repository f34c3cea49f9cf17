package orders

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Customer holds the contact fields captured at checkout.
type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
}

// LineItem is a single product row on an order.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ImageURL  string          `json:"image_url,omitempty"`
}

// Subtotal returns quantity times unit price.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Order is the cached, possibly stale copy of an order owned by the order API.
type Order struct {
	ID            string          `json:"id"`
	Number        string          `json:"order_number"`
	Customer      Customer        `json:"customer"`
	LineItems     []LineItem      `json:"line_items"`
	Status        Status          `json:"status"`
	CarrierID     string          `json:"carrier_id,omitempty"`
	CarrierName   string          `json:"carrier_name,omitempty"`
	Pickup        bool            `json:"is_pickup"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	DeliveryToken string          `json:"delivery_token,omitempty"`
	IsTest        bool            `json:"is_test"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
	PrintedAt     *time.Time      `json:"printed_at,omitempty"`
	ScheduledFor  *time.Time      `json:"scheduled_for,omitempty"`
	ContactedAt   *time.Time      `json:"contacted_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// HasDeliveryToken reports whether a shipping label can be generated for the order.
func (o Order) HasDeliveryToken() bool {
	return strings.TrimSpace(o.DeliveryToken) != ""
}

// IsDeleted reports whether the order carries a soft delete marker.
func (o Order) IsDeleted() bool {
	return o.DeletedAt != nil
}

// IsPrinted reports whether a label was printed for the order.
func (o Order) IsPrinted() bool {
	return o.PrintedAt != nil
}

// Clone returns a deep copy so snapshots never alias live state.
func (o Order) Clone() Order {
	out := o
	if o.LineItems != nil {
		out.LineItems = make([]LineItem, len(o.LineItems))
		copy(out.LineItems, o.LineItems)
	}
	out.DeletedAt = cloneTime(o.DeletedAt)
	out.PrintedAt = cloneTime(o.PrintedAt)
	out.ScheduledFor = cloneTime(o.ScheduledFor)
	out.ContactedAt = cloneTime(o.ContactedAt)
	return out
}

// Merge reconciles a server representation with the locally cached order. The server wins
// for every field it carries; fields the payload leaves empty keep the local value so
// derived data such as line item thumbnails survives partial responses. The soft delete
// marker and test flag always follow the server.
func Merge(local, server Order) Order {
	out := server.Clone()
	if out.ID == "" {
		out.ID = local.ID
	}
	if out.Number == "" {
		out.Number = local.Number
	}
	out.Customer = mergeCustomer(local.Customer, out.Customer)
	out.LineItems = mergeLineItems(local.LineItems, out.LineItems)
	if out.Status == "" {
		out.Status = local.Status
	}
	if out.CarrierID == "" && !out.Pickup {
		out.CarrierID = local.CarrierID
	}
	if out.CarrierName == "" && out.CarrierID == local.CarrierID {
		out.CarrierName = local.CarrierName
	}
	if out.Total.IsZero() {
		out.Total = local.Total
	}
	if out.Currency == "" {
		out.Currency = local.Currency
	}
	if out.DeliveryToken == "" {
		out.DeliveryToken = local.DeliveryToken
	}
	if out.PrintedAt == nil {
		out.PrintedAt = cloneTime(local.PrintedAt)
	}
	if out.ScheduledFor == nil {
		out.ScheduledFor = cloneTime(local.ScheduledFor)
	}
	if out.ContactedAt == nil {
		out.ContactedAt = cloneTime(local.ContactedAt)
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = local.CreatedAt
	}
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = local.UpdatedAt
	}
	return out
}

func mergeCustomer(local, server Customer) Customer {
	out := server
	if out.Name == "" {
		out.Name = local.Name
	}
	if out.Phone == "" {
		out.Phone = local.Phone
	}
	if out.Email == "" {
		out.Email = local.Email
	}
	if out.Address == "" {
		out.Address = local.Address
	}
	if out.City == "" {
		out.City = local.City
	}
	return out
}

func mergeLineItems(local, server []LineItem) []LineItem {
	if len(server) == 0 {
		if local == nil {
			return nil
		}
		out := make([]LineItem, len(local))
		copy(out, local)
		return out
	}
	images := make(map[string]string, len(local))
	for _, item := range local {
		if item.ImageURL != "" {
			images[item.ProductID] = item.ImageURL
		}
	}
	out := make([]LineItem, len(server))
	for i, item := range server {
		if item.ImageURL == "" {
			item.ImageURL = images[item.ProductID]
		}
		out[i] = item
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// TotalOf sums the line item subtotals.
func TotalOf(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}
