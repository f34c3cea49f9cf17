package orders

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/T0MGL/0rdefy-sub009/internal/admin/templates/helpers"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/templates/partials"
)

// TableID is the DOM id every table swap targets.
const TableID = "orders-table"

var esc = templ.EscapeString[string]

// Index renders the full orders page.
func Index(page PageData) templ.Component {
	return partials.Layout(page.Title, page.Breadcrumbs, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<section class="flex flex-col gap-4" data-orders-page data-poll-seconds="%d" data-visibility-url="%s" data-refresh-url="%s">`,
			page.PollSeconds, esc(page.Endpoints.Visibility), esc(page.Endpoints.Refresh)); err != nil {
			return err
		}
		if err := FilterControls(page.Filters, page.Endpoints).Render(ctx, w); err != nil {
			return err
		}
		if err := Table(page.Table).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</section>`)
		return err
	}))
}

func swapAttrs() string {
	return fmt.Sprintf(`hx-target="#%s" hx-swap="outerHTML"`, TableID)
}

// FilterControls renders chips, selects, the date range and the search box.
func FilterControls(bar FilterBar, endpoints Endpoints) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="flex flex-col gap-3 rounded-lg border border-slate-200 bg-white p-4" data-orders-filters>`)

		b.WriteString(`<div class="flex flex-wrap gap-2" role="group" aria-label="Estado" data-status-chips>`)
		for _, chip := range bar.StatusChips {
			pressed := "false"
			if chip.Active {
				pressed = "true"
			}
			fmt.Fprintf(&b, `<button type="button" class="%s" aria-pressed="%s" data-status-chip="%s" hx-post="%s" hx-vals='%s' %s>%s</button>`,
				helpers.ChipClass(chip.Active), pressed, esc(chip.Value), esc(endpoints.Filters), esc(chip.Vals), swapAttrs(), esc(chip.Label))
		}
		b.WriteString(`</div>`)

		b.WriteString(`<div class="flex flex-wrap items-end gap-3">`)
		writeSelect(&b, "carrier", "Transportadora", bar.CarrierOptions, endpoints.Filters)
		writeSelect(&b, "scheduled", "Entrega", bar.ScheduledOptions, endpoints.Filters)

		fmt.Fprintf(&b, `<form class="flex items-end gap-2" data-date-range hx-post="%s" hx-trigger="change" %s>`, esc(endpoints.Filters), swapAttrs())
		b.WriteString(`<input type="hidden" name="range" value="1">`)
		fmt.Fprintf(&b, `<label class="text-xs text-slate-500">Desde<input type="date" name="start" value="%s" class="block rounded border border-slate-200 px-2 py-1 text-sm"></label>`, esc(bar.StartDate))
		fmt.Fprintf(&b, `<label class="text-xs text-slate-500">Hasta<input type="date" name="end" value="%s" class="block rounded border border-slate-200 px-2 py-1 text-sm"></label>`, esc(bar.EndDate))
		b.WriteString(`</form>`)

		fmt.Fprintf(&b, `<label class="flex-1 text-xs text-slate-500">Buscar<input type="search" name="q" value="%s" placeholder="Nombre, teléfono o número de pedido" autocomplete="off" data-search-input data-min-length="%d" class="block w-full rounded border border-slate-200 px-2 py-1 text-sm" hx-post="%s" hx-trigger="input changed delay:300ms, search" hx-sync="this:replace" %s></label>`,
			esc(bar.Search), bar.SearchMin, esc(endpoints.Search), swapAttrs())
		b.WriteString(`</div>`)

		if bar.RangeIgnored {
			b.WriteString(`<p class="text-xs text-amber-700" data-range-ignored>La búsqueda incluye pedidos fuera del rango de fechas.</p>`)
		} else if bar.Search != "" && !bar.SearchActive {
			fmt.Fprintf(&b, `<p class="text-xs text-slate-500" data-search-hint>Escribí al menos %d caracteres para buscar.</p>`, bar.SearchMin)
		}
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeSelect(b *strings.Builder, name, label string, options []SelectOption, endpoint string) {
	fmt.Fprintf(b, `<label class="text-xs text-slate-500">%s<select name="%s" class="block rounded border border-slate-200 px-2 py-1 text-sm" hx-post="%s" hx-trigger="change" %s>`,
		esc(label), name, esc(endpoint), swapAttrs())
	for _, opt := range options {
		selected := ""
		if opt.Selected {
			selected = " selected"
		}
		fmt.Fprintf(b, `<option value="%s"%s>%s</option>`, esc(opt.Value), selected, esc(opt.Label))
	}
	b.WriteString(`</select></label>`)
}

// Table renders the table fragment including the selection bar and the load-more control.
func Table(data TableData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		busy := "false"
		if data.Loading {
			busy = "true"
		}
		fmt.Fprintf(&b, `<div id="%s" class="flex flex-col gap-3" aria-busy="%s" data-total="%d" data-shown="%d" hx-get="%s" hx-trigger="orders:reload from:body" hx-swap="outerHTML">`,
			TableID, busy, data.Total, data.Shown, esc(data.Endpoints.Table))

		if data.NewOrders > 0 {
			label := fmt.Sprintf("%d nuevos pedidos", data.NewOrders)
			if data.NewOrders == 1 {
				label = "1 nuevo pedido"
			}
			fmt.Fprintf(&b, `<button type="button" class="rounded bg-sky-50 px-3 py-2 text-sm text-sky-800" data-new-orders hx-post="%s" %s>%s</button>`,
				esc(data.Endpoints.Refresh), swapAttrs(), esc(label))
		}
		if data.Error != "" {
			fmt.Fprintf(&b, `<div role="alert" class="rounded border border-rose-200 bg-rose-50 px-3 py-2 text-sm text-rose-700" data-list-error>%s <button type="button" class="underline" hx-post="%s" %s>Reintentar</button></div>`,
				esc(data.Error), esc(data.Endpoints.Refresh), swapAttrs())
		}

		if data.CanPrint {
			writeSelectionBar(&b, data)
		}

		fmt.Fprintf(&b, `<p class="text-xs text-slate-500" data-count>Mostrando %d de %d pedidos</p>`, data.Shown, data.Total)

		if len(data.Rows) == 0 {
			if data.Loading && !data.Loaded {
				b.WriteString(`<p class="py-10 text-center text-sm text-slate-500" data-loading>Cargando pedidos…</p>`)
			} else {
				fmt.Fprintf(&b, `<p class="py-10 text-center text-sm text-slate-500" data-empty>%s</p>`, esc(data.EmptyMessage))
			}
		} else {
			b.WriteString(`<table class="min-w-full divide-y divide-slate-200 bg-white text-sm"><thead><tr>`)
			if data.CanPrint {
				b.WriteString(`<th class="w-8"><span class="sr-only">Seleccionar</span></th>`)
			}
			b.WriteString(`<th class="px-3 py-2 text-left">Pedido</th><th class="px-3 py-2 text-left">Cliente</th><th class="px-3 py-2 text-left">Productos</th><th class="px-3 py-2 text-right">Total</th><th class="px-3 py-2 text-left">Estado</th><th class="px-3 py-2 text-left">Transportadora</th><th class="px-3 py-2 text-left">Creado</th><th class="px-3 py-2 text-right">Acciones</th></tr></thead><tbody>`)
			for _, row := range data.Rows {
				writeRow(&b, row, data)
			}
			b.WriteString(`</tbody></table>`)
		}

		if data.HasMore {
			label := "Cargar más"
			disabled := ""
			if data.LoadingMore {
				label = "Cargando…"
				disabled = " disabled"
			}
			fmt.Fprintf(&b, `<button type="button" class="self-center rounded border border-slate-200 px-4 py-2 text-sm" data-load-more hx-post="%s" %s%s>%s</button>`,
				esc(data.Endpoints.More), swapAttrs(), disabled, label)
		}
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeSelectionBar(b *strings.Builder, data TableData) {
	fmt.Fprintf(b, `<div class="flex items-center gap-3 text-sm" data-selection-bar data-selected="%d">`, data.Selected)
	fmt.Fprintf(b, `<span>%d seleccionados</span>`, data.Selected)
	if data.Printable > 0 && !data.AllSelected {
		fmt.Fprintf(b, `<button type="button" class="underline" data-select-all hx-post="%s" hx-vals='{"op":"all"}' %s>Seleccionar todos (%d)</button>`,
			esc(data.Endpoints.Selection), swapAttrs(), data.Printable)
	}
	if data.Selected > 0 {
		fmt.Fprintf(b, `<button type="button" class="underline" data-clear-selection hx-post="%s" hx-vals='{"op":"clear"}' %s>Limpiar</button>`,
			esc(data.Endpoints.Selection), swapAttrs())
	}
	disabled := ""
	if data.Selected == 0 {
		disabled = " disabled"
	}
	fmt.Fprintf(b, `<button type="button" class="rounded bg-slate-900 px-3 py-1 text-white" data-print hx-post="%s" %s%s>Imprimir etiquetas</button>`,
		esc(data.Endpoints.Print), swapAttrs(), disabled)
	b.WriteString(`</div>`)
}

func writeRow(b *strings.Builder, row TableRow, data TableData) {
	class := "align-top"
	if row.Deleted {
		class += " opacity-50"
	}
	fmt.Fprintf(b, `<tr id="order-row-%s" class="%s" data-order-id="%s" data-status="%s">`, esc(row.ID), class, esc(row.ID), esc(row.StatusLabel))

	if data.CanPrint {
		checked, disabled := "", ""
		if row.Selected {
			checked = " checked"
		}
		if !row.Selectable && !row.Selected {
			disabled = ` disabled title="Sin código de entrega"`
		}
		fmt.Fprintf(b, `<td class="px-2 py-2"><input type="checkbox" aria-label="Seleccionar %s" data-select-order hx-post="%s" hx-vals='%s' %s%s%s></td>`,
			esc(row.Number), esc(data.Endpoints.Selection), esc(vals(map[string]string{"op": "toggle", "id": row.ID})), swapAttrs(), checked, disabled)
	}

	fmt.Fprintf(b, `<td class="px-3 py-2 font-medium">%s`, esc(row.Number))
	if row.Test {
		fmt.Fprintf(b, ` <span class="%s" data-test-badge>Prueba</span>`, helpers.BadgeClass("neutral"))
	}
	if row.Deleted {
		fmt.Fprintf(b, ` <span class="%s" data-deleted-badge>Eliminado</span>`, helpers.BadgeClass("danger"))
	}
	if row.Printed {
		fmt.Fprintf(b, ` <span class="%s" data-printed-badge>Impreso</span>`, helpers.BadgeClass("info"))
	}
	b.WriteString(`</td>`)

	b.WriteString(`<td class="px-3 py-2" data-customer>`)
	writeHighlighted(b, row.CustomerName, data.SearchTerm)
	if row.CustomerPhone != "" {
		b.WriteString(`<div class="text-xs text-slate-500">`)
		writeHighlighted(b, row.CustomerPhone, data.SearchTerm)
		b.WriteString(`</div>`)
	}
	if row.City != "" {
		fmt.Fprintf(b, `<div class="text-xs text-slate-500">%s</div>`, esc(row.City))
	}
	b.WriteString(`</td>`)

	fmt.Fprintf(b, `<td class="px-3 py-2 text-slate-600">%s</td>`, esc(row.ItemsSummary))
	fmt.Fprintf(b, `<td class="px-3 py-2 text-right tabular-nums">%s</td>`, esc(row.Total))

	fmt.Fprintf(b, `<td class="px-3 py-2"><span class="%s" data-status-badge>%s</span>`, helpers.BadgeClass(row.StatusTone), esc(row.StatusLabel))
	if len(row.StatusOptions) > 0 {
		fmt.Fprintf(b, `<select name="status" class="mt-1 block rounded border border-slate-200 text-xs" aria-label="Cambiar estado" data-status-select hx-post="%s" hx-trigger="change" %s><option value="">Cambiar…</option>`,
			esc(row.StatusURL), swapAttrs())
		for _, opt := range row.StatusOptions {
			fmt.Fprintf(b, `<option value="%s">%s</option>`, esc(opt.Value), esc(opt.Label))
		}
		b.WriteString(`</select>`)
	}
	b.WriteString(`</td>`)

	fmt.Fprintf(b, `<td class="px-3 py-2">%s`, esc(row.Carrier))
	if row.Scheduled != "" {
		fmt.Fprintf(b, `<div class="text-xs text-slate-500" data-scheduled>Entrega %s</div>`, esc(row.Scheduled))
	}
	b.WriteString(`</td>`)

	fmt.Fprintf(b, `<td class="px-3 py-2 text-xs text-slate-500" title="%s">%s</td>`, esc(row.CreatedLabel), esc(row.CreatedRelative))

	b.WriteString(`<td class="px-3 py-2 text-right"><div class="flex justify-end gap-2">`)
	for _, action := range row.Actions {
		class := "rounded border border-slate-200 px-2 py-1 text-xs"
		if action.Danger {
			class = "rounded border border-rose-200 px-2 py-1 text-xs text-rose-700"
		}
		fmt.Fprintf(b, `<button type="button" class="%s" data-action="%s" hx-%s="%s" %s`, class, esc(action.Key), action.Method, esc(action.URL), swapAttrs())
		if action.Vals != "" {
			fmt.Fprintf(b, ` hx-vals='%s'`, esc(action.Vals))
		}
		if action.Confirm != "" {
			fmt.Fprintf(b, ` hx-confirm="%s"`, esc(action.Confirm))
		}
		fmt.Fprintf(b, `>%s</button>`, esc(action.Label))
	}
	b.WriteString(`</div></td></tr>`)
}

func writeHighlighted(b *strings.Builder, text, term string) {
	for _, seg := range helpers.HighlightSegments(text, term) {
		if seg.Match {
			fmt.Fprintf(b, `<mark>%s</mark>`, esc(seg.Text))
			continue
		}
		b.WriteString(esc(seg.Text))
	}
}
