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

func environmentBadge(env string) (short, tone string) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "prd":
		return "PRD", "danger"
	case "staging", "stg":
		return "STG", "warning"
	default:
		return "DEV", "neutral"
	}
}

// TopbarActions renders the environment badge and the user menu with its logout form.
func TopbarActions() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		env := middleware.EnvironmentFromContext(ctx)
		short, tone := environmentBadge(env)
		base := strings.TrimRight(helpers.BasePath(ctx), "/")

		var b strings.Builder
		b.WriteString(`<div class="flex items-center gap-4" data-topbar-actions>`)
		fmt.Fprintf(&b, `<span data-environment-badge title="%s" class="%s"><span aria-hidden="true">%s</span><span class="sr-only">%s</span></span>`,
			templ.EscapeString(env), helpers.BadgeClass(tone), short, templ.EscapeString(env))

		if user, ok := middleware.UserFromContext(ctx); ok && user != nil {
			name := user.Email
			if name == "" {
				name = user.UID
			}
			b.WriteString(`<div class="flex items-center gap-2" data-user-menu>`)
			fmt.Fprintf(&b, `<span class="truncate text-sm text-slate-700">%s</span>`, templ.EscapeString(name))
			fmt.Fprintf(&b, `<form method="post" action="%s/logout" data-user-menu-logout>`, templ.EscapeString(base))
			fmt.Fprintf(&b, `<input type="hidden" name="_csrf" value="%s">`, templ.EscapeString(middleware.CSRFTokenFromContext(ctx)))
			b.WriteString(`<button type="submit" class="text-xs text-slate-500 hover:text-slate-900">Salir</button></form></div>`)
		}
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
