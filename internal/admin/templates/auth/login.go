package auth

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// LoginPageData is the state of the sign-in form.
type LoginPageData struct {
	Action    string
	CSRFToken string
	Email     string
	Next      string
	Remember  bool
	Notice    string
	Error     string
}

// LoginPage renders the standalone sign-in screen. The Firebase client fills id_token
// before submitting; local environments accept a pasted token.
func LoginPage(data LoginPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		esc := templ.EscapeString[string]
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="es"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
		b.WriteString(`<title>Ingresar · Ordefy</title><link rel="stylesheet" href="/public/static/orderdesk.css"></head>`)
		b.WriteString(`<body class="flex min-h-screen items-center justify-center bg-slate-50">`)
		fmt.Fprintf(&b, `<form id="login-form" method="post" action="%s" class="w-80 space-y-3 rounded-lg border border-slate-200 bg-white p-6">`, esc(data.Action))
		b.WriteString(`<h1 class="text-lg font-semibold">Ingresar a Ordefy</h1>`)
		if data.Notice != "" {
			fmt.Fprintf(&b, `<p class="text-sm text-slate-600" data-login-notice>%s</p>`, esc(data.Notice))
		}
		if data.Error != "" {
			fmt.Fprintf(&b, `<p role="alert" class="text-sm text-rose-700" data-login-error>%s</p>`, esc(data.Error))
		}
		fmt.Fprintf(&b, `<input type="hidden" name="_csrf" value="%s">`, esc(data.CSRFToken))
		fmt.Fprintf(&b, `<input type="hidden" name="next" value="%s">`, esc(data.Next))
		fmt.Fprintf(&b, `<label class="block text-xs text-slate-500">Correo<input type="email" name="email" value="%s" autocomplete="username" class="block w-full rounded border border-slate-200 px-2 py-1 text-sm"></label>`, esc(data.Email))
		b.WriteString(`<label class="block text-xs text-slate-500">Token de acceso<textarea name="id_token" rows="3" class="block w-full rounded border border-slate-200 px-2 py-1 font-mono text-xs"></textarea></label>`)
		b.WriteString(`<input type="hidden" name="refresh_token">`)
		checked := ""
		if data.Remember {
			checked = " checked"
		}
		fmt.Fprintf(&b, `<label class="flex items-center gap-2 text-sm"><input type="checkbox" name="remember" value="1"%s>Recordarme</label>`, checked)
		b.WriteString(`<button type="submit" class="w-full rounded bg-slate-900 px-4 py-2 text-sm text-white">Ingresar</button></form></body></html>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
