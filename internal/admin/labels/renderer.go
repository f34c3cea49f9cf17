package labels

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/oklog/ulid/v2"

	adminorders "github.com/T0MGL/0rdefy-sub009/internal/admin/orders"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/templates/helpers"
)

// ErrNoOrders is returned when a sheet is requested for an empty batch.
var ErrNoOrders = errors.New("labels: no orders to render")

// Artifact is a generated, downloadable label sheet.
type Artifact struct {
	ID          string
	Filename    string
	ContentType string
	Body        []byte
	CreatedAt   time.Time
	OrderIDs    []string
	// Owner identifies the operator allowed to download the sheet.
	Owner string
}

// SheetRenderer renders printable HTML label sheets, one label per order.
type SheetRenderer struct {
	Location *time.Location
	Now      func() time.Time
}

// NewSheetRenderer constructs a renderer printing dates in loc.
func NewSheetRenderer(loc *time.Location) *SheetRenderer {
	if loc == nil {
		loc = time.UTC
	}
	return &SheetRenderer{Location: loc, Now: time.Now}
}

// Render produces the label sheet. Every order must carry a delivery token.
func (r *SheetRenderer) Render(ctx context.Context, orders []adminorders.Order) (Artifact, error) {
	if len(orders) == 0 {
		return Artifact{}, ErrNoOrders
	}
	var missing []string
	for _, order := range orders {
		if !order.HasDeliveryToken() {
			missing = append(missing, order.Number)
		}
	}
	if len(missing) > 0 {
		return Artifact{}, fmt.Errorf("%w: %s", adminorders.ErrMissingDeliveryToken, strings.Join(missing, ", "))
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	created := now()

	var buf bytes.Buffer
	if err := sheet(orders, r.Location, created).Render(ctx, &buf); err != nil {
		return Artifact{}, fmt.Errorf("labels: render sheet: %w", err)
	}

	ids := make([]string, len(orders))
	for i, order := range orders {
		ids[i] = order.ID
	}
	return Artifact{
		ID:          ulid.Make().String(),
		Filename:    fmt.Sprintf("etiquetas-%s.html", created.In(r.Location).Format("20060102-150405")),
		ContentType: "text/html; charset=utf-8",
		Body:        buf.Bytes(),
		CreatedAt:   created,
		OrderIDs:    ids,
	}, nil
}

func sheet(orders []adminorders.Order, loc *time.Location, created time.Time) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="es"><head><meta charset="utf-8"><title>Etiquetas</title>`+
			`<style>@page{size:A4;margin:8mm}body{font-family:sans-serif}.label{border:1px dashed #333;padding:6mm;margin-bottom:4mm;page-break-inside:avoid}`+
			`.token{font-family:monospace;font-size:18pt;letter-spacing:2px}</style></head><body>`); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, `<p class="generated">Generado %s · %d etiquetas</p>`, templ.EscapeString(helpers.Date(created, loc, "")), len(orders)); err != nil {
			return err
		}
		for _, order := range orders {
			if err := label(order, loc).Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

func label(order adminorders.Order, loc *time.Location) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		carrier := order.CarrierName
		if order.Pickup {
			carrier = "Retiro en tienda"
		} else if carrier == "" {
			carrier = order.CarrierID
		}
		var b strings.Builder
		fmt.Fprintf(&b, `<section class="label" data-order-id="%s">`, templ.EscapeString(order.ID))
		fmt.Fprintf(&b, `<h2>Pedido %s</h2>`, templ.EscapeString(order.Number))
		fmt.Fprintf(&b, `<p class="customer">%s · %s</p>`, templ.EscapeString(order.Customer.Name), templ.EscapeString(order.Customer.Phone))
		fmt.Fprintf(&b, `<p class="address">%s, %s</p>`, templ.EscapeString(order.Customer.Address), templ.EscapeString(order.Customer.City))
		fmt.Fprintf(&b, `<p class="carrier">%s</p>`, templ.EscapeString(carrier))
		if order.ScheduledFor != nil {
			fmt.Fprintf(&b, `<p class="scheduled">Entrega programada: %s</p>`, templ.EscapeString(helpers.Date(*order.ScheduledFor, loc, "02/01/2006")))
		}
		fmt.Fprintf(&b, `<p class="cod">Cobrar: %s</p>`, templ.EscapeString(helpers.Money(order.Total, order.Currency)))
		fmt.Fprintf(&b, `<p class="token">%s</p>`, templ.EscapeString(order.DeliveryToken))
		b.WriteString(`</section>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
