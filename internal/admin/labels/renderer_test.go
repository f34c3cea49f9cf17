package labels

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	adminorders "github.com/T0MGL/0rdefy-sub009/internal/admin/orders"
)

func TestSheetRendererRendersOneLabelPerOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	r := NewSheetRenderer(time.UTC)
	r.Now = func() time.Time { return now }

	orders := []adminorders.Order{
		{ID: "ord-1", Number: "#1001", Customer: adminorders.Customer{Name: "José <b>Benítez</b>", City: "Luque"}, CarrierName: "AEX", DeliveryToken: "DT-1", Total: decimal.NewFromInt(150000), Currency: "PYG"},
		{ID: "ord-2", Number: "#1002", Customer: adminorders.Customer{Name: "Ana"}, Pickup: true, DeliveryToken: "DT-2", Total: decimal.NewFromInt(95000), Currency: "PYG"},
	}

	artifact, err := r.Render(context.Background(), orders)
	require.NoError(t, err)
	require.NotEmpty(t, artifact.ID)
	require.Equal(t, []string{"ord-1", "ord-2"}, artifact.OrderIDs)
	require.Equal(t, "etiquetas-20250310-120000.html", artifact.Filename)
	require.Contains(t, artifact.ContentType, "text/html")

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(artifact.Body))
	require.NoError(t, err)
	require.Equal(t, 2, doc.Find("section.label").Length())
	first := doc.Find(`section.label[data-order-id="ord-1"]`)
	require.Equal(t, "DT-1", first.Find(".token").Text())
	require.Equal(t, "Cobrar: Gs. 150.000", first.Find(".cod").Text())
	require.Zero(t, first.Find("b").Length(), "customer markup must be escaped")
	require.Equal(t, "Retiro en tienda", doc.Find(`section.label[data-order-id="ord-2"] .carrier`).Text())
}

func TestSheetRendererRefusesOrdersWithoutToken(t *testing.T) {
	t.Parallel()

	r := NewSheetRenderer(nil)
	_, err := r.Render(context.Background(), []adminorders.Order{{ID: "ord-1", Number: "#1001"}})
	require.ErrorIs(t, err, adminorders.ErrMissingDeliveryToken)

	_, err = r.Render(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoOrders)
}

func TestStoreExpiresArtifacts(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	store := NewStore(time.Minute)
	store.now = func() time.Time { return now }

	store.Put(Artifact{ID: "a1", CreatedAt: now})
	got, ok := store.Get("a1")
	require.True(t, ok)
	require.Equal(t, "a1", got.ID)

	now = now.Add(2 * time.Minute)
	_, ok = store.Get("a1")
	require.False(t, ok)
	_, ok = store.Get("missing")
	require.False(t, ok)
}
