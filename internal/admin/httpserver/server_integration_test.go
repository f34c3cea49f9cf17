package httpserver_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/T0MGL/0rdefy-sub009/internal/admin/httpserver/middleware"
	adminorders "github.com/T0MGL/0rdefy-sub009/internal/admin/orders"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/testutil"
)

func TestConsoleRedirectsWithoutAuth(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(ts.URL + "/admin/orders")
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/admin/login", resp.Header.Get("Location"))
}

func TestLoginPageRendersForm(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	resp, err := http.Get(ts.URL + "/admin/login?status=logged_out")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := readDoc(t, resp)
	require.Equal(t, "/admin/login", doc.Find("#login-form").AttrOr("action", ""))
	require.Equal(t, "Cerraste sesión.", doc.Find("[data-login-notice]").Text())
	require.NotEmpty(t, doc.Find(`input[name="_csrf"]`).AttrOr("value", ""))
}

func TestLoginSubmitIssuesAuthCookie(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token", Roles: []string{"admin"}}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))
	c := newConsoleClient(t, ts.URL, "")

	csrf := readDoc(t, c.get(t, "/admin/login")).Find(`input[name="_csrf"]`).AttrOr("value", "")
	require.NotEmpty(t, csrf)

	form := url.Values{
		"_csrf":    {csrf},
		"id_token": {"wrong"},
	}
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/admin/login", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotEmpty(t, readDoc(t, resp).Find("[data-login-error]").Text())

	form.Set("id_token", auth.Token)
	form.Set("next", "/admin/orders")
	req, err = http.NewRequest(http.MethodPost, ts.URL+"/admin/login", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err = c.http.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/orders", resp.Header.Get("Location"))

	page := c.get(t, "/admin/orders")
	require.Equal(t, http.StatusOK, page.StatusCode)
	require.Equal(t, 36, readDoc(t, page).Find("tr[data-order-id]").Length())
}

func TestOrdersPageRendersForAuthenticatedUser(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token", Roles: []string{"admin"}}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))
	c := newConsoleClient(t, ts.URL, auth.Token)

	doc := c.page(t)
	require.Equal(t, "Pedidos · Ordefy", doc.Find("title").First().Text())
	require.Equal(t, "Pedidos", doc.Find("h1").First().Text())
	require.Equal(t, 36, doc.Find("tr[data-order-id]").Length())
	require.Equal(t, "Mostrando 36 de 36 pedidos", doc.Find("[data-count]").Text())
	require.Equal(t, 0, doc.Find("[data-load-more]").Length())
	require.Equal(t, 1, ts.Registry.Len())
}

func TestStatusFilterAndSearchNarrowTheTable(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token", Roles: []string{"confirmer"}}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))
	c := newConsoleClient(t, ts.URL, auth.Token)
	c.page(t)

	resp := c.post(t, "/admin/orders/filters", url.Values{"status": {"pending"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := readDoc(t, resp)
	rows := doc.Find("tr[data-order-id]")
	require.Greater(t, rows.Length(), 0)
	rows.Each(func(_ int, row *goquery.Selection) {
		require.Equal(t, adminorders.StatusPending.Label(), row.AttrOr("data-status", ""))
	})

	resp = c.post(t, "/admin/orders/filters", url.Values{"status": {""}})
	require.Equal(t, 36, readDoc(t, resp).Find("tr[data-order-id]").Length())

	resp = c.post(t, "/admin/orders/search", url.Values{"q": {"maría"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc = readDoc(t, resp)
	rows = doc.Find("tr[data-order-id]")
	require.Greater(t, rows.Length(), 0)
	rows.Each(func(_ int, row *goquery.Selection) {
		require.Contains(t, row.Find("[data-customer]").Text(), "María González")
	})

	resp = c.post(t, "/admin/orders/filters", url.Values{"status": {"lost"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestBulkPrintServesLabelSheet(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token", Roles: []string{"logistics"}, Others: map[string]string{"other-token": "store-2"}}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))
	c := newConsoleClient(t, ts.URL, auth.Token)
	c.page(t)

	resp := c.post(t, "/admin/orders/selection", url.Values{"op": {"all"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	selected := readDoc(t, resp).Find("[data-selection-bar]").AttrOr("data-selected", "0")
	require.NotEqual(t, "0", selected)

	resp = c.post(t, "/admin/orders/print", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	trigger := resp.Header.Get("HX-Trigger")
	resp.Body.Close()

	var events map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(trigger), &events))
	require.Contains(t, events, "toast")
	var ready struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(events["labels:ready"], &ready))
	require.True(t, strings.HasPrefix(ready.URL, "/admin/orders/labels/"))

	sheet := c.get(t, ready.URL)
	defer sheet.Body.Close()
	require.Equal(t, http.StatusOK, sheet.StatusCode)
	require.Contains(t, sheet.Header.Get("Content-Type"), "text/html")
	body, err := io.ReadAll(sheet.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "DT-")

	foreign := newConsoleClient(t, ts.URL, "other-token").get(t, ready.URL)
	foreign.Body.Close()
	require.Equal(t, http.StatusNotFound, foreign.StatusCode)

	missing := c.get(t, "/admin/orders/labels/unknown")
	missing.Body.Close()
	require.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestCapabilitiesGuardActions(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token", Roles: []string{"support"}}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))
	c := newConsoleClient(t, ts.URL, auth.Token)
	c.page(t)

	resp := c.post(t, "/admin/orders/print", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = c.post(t, "/admin/orders/ord-0036/confirm", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestNewOrderValidatesAndCreates(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token", Roles: []string{"admin"}}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))
	c := newConsoleClient(t, ts.URL, auth.Token)
	c.page(t)

	resp := c.get(t, "/admin/orders/new")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, readDoc(t, resp).Find("#new-order-form").Length())

	form := url.Values{
		"name":       {"Rocío Benítez"},
		"product":    {"Funda de silicona"},
		"quantity":   {"1"},
		"unit_price": {"100000"},
		"currency":   {"PYG"},
	}
	resp = c.post(t, "/admin/orders/new", form)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, readDoc(t, resp).Find("[data-form-error]").Text(), "teléfono")

	form.Set("phone", "0981 555 123")
	resp = c.post(t, "/admin/orders/new", form)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "/admin/orders", resp.Header.Get("HX-Redirect"))

	doc := c.page(t)
	require.Equal(t, 37, doc.Find("tr[data-order-id]").Length())
}

func TestMutationsRejectMissingCSRFToken(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token", Roles: []string{"admin"}}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))
	c := newConsoleClient(t, ts.URL, auth.Token)
	c.page(t)
	c.csrf = ""

	resp := c.post(t, "/admin/orders/refresh", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLogoutReleasesOrderListSession(t *testing.T) {
	t.Parallel()

	auth := &tokenAuthenticator{Token: "test-token", Roles: []string{"admin"}}
	ts := testutil.NewServer(t, testutil.WithAuthenticator(auth))
	c := newConsoleClient(t, ts.URL, auth.Token)
	c.page(t)
	require.Equal(t, 1, ts.Registry.Len())

	resp := c.post(t, "/admin/logout", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "/admin/login?status=logged_out", resp.Header.Get("HX-Redirect"))
	require.Zero(t, ts.Registry.Len())
}

type consoleClient struct {
	base  string
	token string
	csrf  string
	http  *http.Client
}

func newConsoleClient(t *testing.T, base, token string) *consoleClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &consoleClient{
		base:  base,
		token: token,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// page loads the orders page and remembers its CSRF token.
func (c *consoleClient) page(t *testing.T) *goquery.Document {
	t.Helper()
	resp := c.get(t, "/admin/orders")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := readDoc(t, resp)
	c.csrf = doc.Find(`meta[name="csrf-token"]`).AttrOr("content", "")
	require.NotEmpty(t, c.csrf)
	return doc
}

func (c *consoleClient) get(t *testing.T, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	require.NoError(t, err)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	require.NoError(t, err)
	return resp
}

func (c *consoleClient) post(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.base+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	if c.csrf != "" {
		req.Header.Set("X-CSRF-Token", c.csrf)
	}
	resp, err := c.http.Do(req)
	require.NoError(t, err)
	return resp
}

func readDoc(t *testing.T, resp *http.Response) *goquery.Document {
	t.Helper()
	defer resp.Body.Close()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

// tokenAuthenticator accepts Token as "tester" of store-1. Others maps extra tokens to the
// store of a second operator.
type tokenAuthenticator struct {
	Token  string
	Roles  []string
	Others map[string]string
}

func (t *tokenAuthenticator) Authenticate(_ *http.Request, token string) (*middleware.User, error) {
	if store, ok := t.Others[token]; ok {
		return &middleware.User{UID: "other", Token: token, Roles: t.Roles, StoreID: store}, nil
	}
	if token != t.Token {
		return nil, middleware.ErrUnauthorized
	}
	return &middleware.User{
		UID:     "tester",
		Email:   "tester@example.com",
		Token:   token,
		Roles:   t.Roles,
		StoreID: "store-1",
	}, nil
}
