package partials

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Breadcrumb is one step of the page trail. An empty Href renders plain text.
type Breadcrumb struct {
	Label string
	Href  string
}

// Breadcrumbs renders the trail shown above the page title.
func Breadcrumbs(items []Breadcrumb) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(items) == 0 {
			return nil
		}
		var b strings.Builder
		b.WriteString(`<nav aria-label="Breadcrumb" class="text-xs text-slate-500"><ol class="flex items-center gap-1">`)
		for i, item := range items {
			if i > 0 {
				b.WriteString(`<li aria-hidden="true">/</li>`)
			}
			if item.Href == "" {
				fmt.Fprintf(&b, `<li><span>%s</span></li>`, templ.EscapeString(item.Label))
				continue
			}
			fmt.Fprintf(&b, `<li><a class="hover:text-slate-900" href="%s">%s</a></li>`,
				templ.EscapeString(item.Href), templ.EscapeString(item.Label))
		}
		b.WriteString(`</ol></nav>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
