package partials

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/T0MGL/0rdefy-sub009/internal/admin/httpserver/middleware"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/templates/helpers"
)

const htmxScript = "https://unpkg.com/htmx.org@2.0.4/dist/htmx.min.js"

// Layout wraps a page body with the console chrome: sidebar, topbar, breadcrumbs and the
// toast region the client script fills from HX-Trigger events.
func Layout(title string, crumbs []Breadcrumb, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		base := strings.TrimRight(helpers.BasePath(ctx), "/")
		csrf := middleware.CSRFTokenFromContext(ctx)

		var head strings.Builder
		head.WriteString(`<!DOCTYPE html><html lang="es"><head><meta charset="utf-8">`)
		head.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		fmt.Fprintf(&head, `<title>%s · Ordefy</title>`, templ.EscapeString(title))
		fmt.Fprintf(&head, `<meta name="csrf-token" content="%s">`, templ.EscapeString(csrf))
		head.WriteString(`<link rel="stylesheet" href="/public/static/orderdesk.css">`)
		fmt.Fprintf(&head, `<script src="%s" defer></script>`, htmxScript)
		head.WriteString(`<script src="/public/static/orderdesk.js" defer></script></head>`)
		fmt.Fprintf(&head, `<body class="bg-slate-50 text-slate-900" data-base-path="%s" hx-headers='{"X-CSRF-Token":"%s"}'>`,
			templ.EscapeString(base), templ.EscapeString(csrf))
		head.WriteString(`<div class="flex min-h-screen"><aside class="w-56 border-r border-slate-200 bg-white">`)
		if _, err := io.WriteString(w, head.String()); err != nil {
			return err
		}
		if err := Sidebar(BuildMenu(base)).Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `</aside><div class="flex-1"><header class="flex items-center justify-between border-b border-slate-200 bg-white px-6 py-3"><div>`); err != nil {
			return err
		}
		if err := Breadcrumbs(crumbs).Render(ctx, w); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, `<h1 class="text-lg font-semibold">%s</h1></div>`, templ.EscapeString(title)); err != nil {
			return err
		}
		if err := TopbarActions().Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `</header><main class="p-6">`); err != nil {
			return err
		}
		if body != nil {
			if err := body.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</main></div></div>`+
			`<div id="toast-region" class="fixed bottom-4 right-4 flex flex-col gap-2" aria-live="polite" data-toast-region></div>`+
			`</body></html>`)
		return err
	})
}
