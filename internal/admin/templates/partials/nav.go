package partials

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/T0MGL/0rdefy-sub009/internal/admin/rbac"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/templates/helpers"
)

// MenuItem is a sidebar entry.
type MenuItem struct {
	Key         string
	Label       string
	Href        string
	Pattern     string
	MatchPrefix bool
	Capability  rbac.Capability
}

// BuildMenu returns the order desk navigation rooted at basePath.
func BuildMenu(basePath string) []MenuItem {
	base := strings.TrimRight(basePath, "/")
	return []MenuItem{
		{
			Key:         "orders",
			Label:       "Pedidos",
			Href:        base + "/orders",
			Pattern:     base + "/orders",
			MatchPrefix: true,
			Capability:  rbac.CapOrdersList,
		},
		{
			Key:        "orders-new",
			Label:      "Nuevo pedido",
			Href:       base + "/orders/new",
			Pattern:    base + "/orders/new",
			Capability: rbac.CapOrdersCreate,
		},
	}
}

func visibleItems(ctx context.Context, items []MenuItem) []MenuItem {
	out := make([]MenuItem, 0, len(items))
	for _, item := range items {
		if helpers.Can(ctx, item.Capability) {
			out = append(out, item)
		}
	}
	return out
}

func activeItem(ctx context.Context, items []MenuItem) string {
	// the most specific matching pattern wins so /orders/new does not also light up /orders
	best, bestLen := "", -1
	for _, item := range items {
		if helpers.NavActive(ctx, item.Pattern, item.MatchPrefix) && len(item.Pattern) > bestLen {
			best, bestLen = item.Key, len(item.Pattern)
		}
	}
	return best
}

// Sidebar renders the navigation, hiding entries the user lacks the capability for.
func Sidebar(items []MenuItem) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		visible := visibleItems(ctx, items)
		active := activeItem(ctx, visible)

		var b strings.Builder
		b.WriteString(`<nav class="flex flex-col gap-1 p-4" aria-label="Principal" data-sidebar>`)
		for _, item := range visible {
			class := "rounded-md px-3 py-2 text-sm text-slate-600 hover:bg-slate-100"
			current := ""
			if item.Key == active {
				class = "rounded-md bg-slate-900 px-3 py-2 text-sm font-medium text-white"
				current = ` aria-current="page"`
			}
			fmt.Fprintf(&b, `<a href="%s" class="%s"%s>%s</a>`,
				templ.EscapeString(item.Href), class, current, templ.EscapeString(item.Label))
		}
		b.WriteString(`</nav>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
