package partials

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/a-h/templ"
	"github.com/stretchr/testify/require"

	"github.com/T0MGL/0rdefy-sub009/internal/admin/httpserver/middleware"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/rbac"
)

func TestSidebarFiltersAndHighlights(t *testing.T) {
	t.Parallel()

	ctx := requestContext(t, "/admin/orders", "Development")
	ctx = middleware.ContextWithUser(ctx, &middleware.User{
		Roles: []string{string(rbac.RoleLogistics)},
	})

	doc := render(t, ctx, Sidebar(BuildMenu("/admin")))

	ordersLink := doc.Find(`a[href="/admin/orders"]`)
	require.Equal(t, 1, ordersLink.Length(), "orders link should render")
	require.Equal(t, "page", ordersLink.AttrOr("aria-current", ""))
	require.Contains(t, ordersLink.AttrOr("class", ""), "bg-slate-900")

	require.Equal(t, 0, doc.Find(`a[href="/admin/orders/new"]`).Length(), "logistics cannot create orders")
}

func TestSidebarPrefersMostSpecificMatch(t *testing.T) {
	t.Parallel()

	ctx := requestContext(t, "/admin/orders/new", "Development")
	ctx = middleware.ContextWithUser(ctx, &middleware.User{
		Roles: []string{string(rbac.RoleSupport)},
	})

	doc := render(t, ctx, Sidebar(BuildMenu("/admin")))
	require.Equal(t, "page", doc.Find(`a[href="/admin/orders/new"]`).AttrOr("aria-current", ""))
	require.Empty(t, doc.Find(`a[href="/admin/orders"]`).AttrOr("aria-current", ""))
}

func TestTopbarActionsRenderEnvironmentAndUser(t *testing.T) {
	t.Parallel()

	ctx := requestContext(t, "/admin/orders", "Staging")
	ctx = middleware.ContextWithUser(ctx, &middleware.User{
		UID:   "ops-1",
		Email: "ops@example.com",
		Roles: []string{string(rbac.RoleAdmin)},
	})

	doc := render(t, ctx, TopbarActions())

	badge := doc.Find("[data-environment-badge] span[aria-hidden='true']")
	require.Equal(t, "STG", strings.TrimSpace(badge.Text()))
	require.Contains(t, doc.Find("[data-user-menu] .truncate.text-sm").Text(), "ops@example.com")
	require.Equal(t, "/admin/logout", doc.Find("[data-user-menu-logout]").AttrOr("action", ""))
	require.Equal(t, 1, doc.Find(`[data-user-menu-logout] input[name="_csrf"]`).Length())
}

func TestLayoutEscapesTitleAndRendersToastRegion(t *testing.T) {
	t.Parallel()

	ctx := requestContext(t, "/admin/orders", "Production")
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<p id="content">hola</p>`)
		return err
	})

	doc := render(t, ctx, Layout(`<Pedidos>`, []Breadcrumb{{Label: "Pedidos", Href: "/admin/orders"}, {Label: "Lista"}}, body))
	require.Equal(t, "<Pedidos>", doc.Find("h1").Text())
	require.Equal(t, 1, doc.Find("#content").Length())
	require.Equal(t, 1, doc.Find("[data-toast-region]").Length())
	require.Equal(t, "/admin/orders", doc.Find(`nav[aria-label="Breadcrumb"] a`).AttrOr("href", ""))
	require.Equal(t, 0, doc.Find("[data-user-menu]").Length(), "anonymous requests render no user menu")
}

func requestContext(t *testing.T, path, environment string) context.Context {
	t.Helper()

	var ctx context.Context
	handler := middleware.Paths("/admin")(middleware.Environment(environment)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctx = r.Context()
	})))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	require.NotNil(t, ctx)
	return ctx
}

func render(t *testing.T, ctx context.Context, component templ.Component) *goquery.Document {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, component.Render(ctx, &buf))
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	return doc
}
