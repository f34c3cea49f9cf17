package orders

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/T0MGL/0rdefy-sub009/internal/admin/templates/partials"
)

// NewOrderData is the manual order form.
type NewOrderData struct {
	BasePath string
	Action   string
	Error    string
	Values   map[string]string
}

// NewOrderPayload builds the form view model. values holds previously submitted fields.
func NewOrderPayload(basePath string, values map[string]string, errMsg string) NewOrderData {
	if values == nil {
		values = map[string]string{}
	}
	if values["quantity"] == "" {
		values["quantity"] = "1"
	}
	if values["currency"] == "" {
		values["currency"] = "PYG"
	}
	return NewOrderData{
		BasePath: basePath,
		Action:   joinBase(basePath, "/orders/new"),
		Error:    errMsg,
		Values:   values,
	}
}

var newOrderFields = []struct {
	name     string
	label    string
	kind     string
	required bool
}{
	{"name", "Cliente", "text", true},
	{"phone", "Teléfono", "tel", true},
	{"address", "Dirección", "text", false},
	{"city", "Ciudad", "text", false},
	{"product", "Producto", "text", true},
	{"quantity", "Cantidad", "number", true},
	{"unit_price", "Precio unitario", "text", true},
	{"currency", "Moneda", "text", false},
	{"carrier_id", "Transportadora", "text", false},
	{"scheduled_for", "Entrega programada", "date", false},
}

// NewOrderForm renders the form fragment. It swaps itself on validation errors.
func NewOrderForm(data NewOrderData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, `<form id="new-order-form" class="grid max-w-xl grid-cols-2 gap-3 rounded-lg border border-slate-200 bg-white p-4" hx-post="%s" hx-target="this" hx-swap="outerHTML">`, esc(data.Action))
		if data.Error != "" {
			fmt.Fprintf(&b, `<p role="alert" class="col-span-2 text-sm text-rose-700" data-form-error>%s</p>`, esc(data.Error))
		}
		for _, field := range newOrderFields {
			required := ""
			if field.required {
				required = " required"
			}
			fmt.Fprintf(&b, `<label class="text-xs text-slate-500">%s<input type="%s" name="%s" value="%s" class="block w-full rounded border border-slate-200 px-2 py-1 text-sm"%s></label>`,
				esc(field.label), field.kind, field.name, esc(data.Values[field.name]), required)
		}
		for _, flag := range []struct{ name, label string }{{"pickup", "Retiro en tienda"}, {"is_test", "Pedido de prueba"}} {
			checked := ""
			if data.Values[flag.name] != "" {
				checked = " checked"
			}
			fmt.Fprintf(&b, `<label class="flex items-center gap-2 text-sm"><input type="checkbox" name="%s" value="1"%s>%s</label>`, flag.name, checked, esc(flag.label))
		}
		b.WriteString(`<div class="col-span-2 flex justify-end"><button type="submit" class="rounded bg-slate-900 px-4 py-2 text-sm text-white">Crear pedido</button></div></form>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// NewOrderPage renders the manual order page.
func NewOrderPage(data NewOrderData) templ.Component {
	crumbs := []partials.Breadcrumb{
		{Label: "Pedidos", Href: joinBase(data.BasePath, "/orders")},
		{Label: "Nuevo pedido"},
	}
	return partials.Layout("Nuevo pedido", crumbs, NewOrderForm(data))
}
