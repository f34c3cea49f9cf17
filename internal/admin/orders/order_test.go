package orders

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestMergeKeepsFieldsTheServerOmits(t *testing.T) {
	t.Parallel()

	printed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	local := Order{
		ID:          "ord-1",
		Number:      "#1001",
		Customer:    Customer{Name: "José", Phone: "+595 981 000000", City: "Luque"},
		LineItems:   []LineItem{{ProductID: "p1", Name: "Sérum", Quantity: 1, UnitPrice: decimal.NewFromInt(10), ImageURL: "/img/p1.png"}},
		Status:      StatusPending,
		CarrierID:   "carrier-aex",
		CarrierName: "AEX",
		Total:       decimal.NewFromInt(10),
		Currency:    "PYG",
		PrintedAt:   &printed,
		CreatedAt:   printed.Add(-time.Hour),
	}
	server := Order{
		ID:        "ord-1",
		Customer:  Customer{Phone: "+595 981 999999"},
		LineItems: []LineItem{{ProductID: "p1", Name: "Sérum", Quantity: 2, UnitPrice: decimal.NewFromInt(10)}},
		Status:    StatusConfirmed,
		CarrierID: "carrier-aex",
	}

	merged := Merge(local, server)
	require.Equal(t, StatusConfirmed, merged.Status)
	require.Equal(t, "#1001", merged.Number)
	require.Equal(t, "José", merged.Customer.Name)
	require.Equal(t, "+595 981 999999", merged.Customer.Phone)
	require.Equal(t, "Luque", merged.Customer.City)
	require.Equal(t, 2, merged.LineItems[0].Quantity)
	require.Equal(t, "/img/p1.png", merged.LineItems[0].ImageURL)
	require.Equal(t, "AEX", merged.CarrierName)
	require.Equal(t, "PYG", merged.Currency)
	require.NotNil(t, merged.PrintedAt)
	require.Equal(t, local.CreatedAt, merged.CreatedAt)
}

func TestMergeFollowsServerDeleteMarker(t *testing.T) {
	t.Parallel()

	deleted := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	local := Order{ID: "ord-1", Status: StatusPending, DeletedAt: &deleted, IsTest: true}
	merged := Merge(local, Order{ID: "ord-1", Status: StatusPending})
	require.False(t, merged.IsDeleted())
	require.False(t, merged.IsTest)
}

func TestCloneDoesNotAlias(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	original := Order{ID: "ord-1", LineItems: []LineItem{{ProductID: "p1", Quantity: 1}}, PrintedAt: &at}
	clone := original.Clone()
	clone.LineItems[0].Quantity = 5
	*clone.PrintedAt = at.Add(time.Hour)

	require.Equal(t, 1, original.LineItems[0].Quantity)
	require.Equal(t, at, *original.PrintedAt)
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	status, err := ParseStatus(" In-Transit ")
	require.NoError(t, err)
	require.Equal(t, StatusInTransit, status)
	require.True(t, status.IsDispatched())

	_, err = ParseStatus("lost")
	require.ErrorIs(t, err, ErrUnknownStatus)

	require.True(t, CanTransition(StatusIncident, StatusInTransit))
	require.False(t, CanTransition(StatusDelivered, StatusReturned))
	require.Len(t, AllStatuses(), 12)
	require.Equal(t, "Despachado", StatusShipped.Label())
}

func TestQueryValuesOmitsInactiveFilters(t *testing.T) {
	t.Parallel()

	values := Query{Carrier: CarrierAll, Scheduled: ScheduledAll, Search: "  ", Limit: 50}.Values()
	require.Equal(t, "limit=50&offset=0", values.Encode())
}

func TestNormalizeSearch(t *testing.T) {
	t.Parallel()

	require.Equal(t, "jose benitez", NormalizeSearch("  JOSÉ   Benítez "))
	require.Equal(t, "abc123", NormalizeSearch("ＡＢＣ１２３"))
}
