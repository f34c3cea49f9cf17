package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appsession "github.com/T0MGL/0rdefy-sub009/internal/admin/session"
)

type sessionTestClock struct {
	now time.Time
}

func (c *sessionTestClock) Now() time.Time {
	return c.now
}

func newSessionStoreForTest(t *testing.T, clock *sessionTestClock) *appsession.Manager {
	t.Helper()
	store, err := appsession.NewManager(appsession.Config{
		CookieName:  "test_session",
		HashKey:     []byte("12345678901234567890123456789012"),
		BlockKey:    []byte("abcdefghijklmnopqrstuvwxyzABCDEF"),
		CookiePath:  "/admin",
		IdleTimeout: 5 * time.Minute,
		Lifetime:    time.Hour,
		Now:         clock.Now,
	})
	require.NoError(t, err)
	return store
}

func TestSessionMiddlewareLifecycle(t *testing.T) {
	t.Parallel()

	clock := &sessionTestClock{now: time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)}
	store := newSessionStoreForTest(t, clock)

	var ids []string
	handler := Session(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		require.True(t, ok)
		ids = append(ids, sess.ID())
		_, _ = io.WriteString(w, "ok")
	}))

	serve := func(cookie *http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
		if cookie != nil {
			req.AddCookie(cookie)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := serve(nil)
	cookie := findCookie(first.Result().Cookies(), "test_session")
	require.NotNil(t, cookie, "cookie must be set before the body is written")

	clock.now = clock.now.Add(2 * time.Minute)
	serve(cookie)
	require.Equal(t, ids[0], ids[1])

	clock.now = clock.now.Add(15 * time.Minute)
	third := serve(cookie)
	require.NotEqual(t, ids[1], ids[2], "idle sessions start over")
	require.NotEmpty(t, third.Header().Values("Set-Cookie"))
}

func TestSessionMiddlewareDestroyClearsCookie(t *testing.T) {
	t.Parallel()

	clock := &sessionTestClock{now: time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)}
	store := newSessionStoreForTest(t, clock)

	handler := Session(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := SessionFromContext(r.Context())
		sess.Destroy()
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/logout", nil))
	cookie := findCookie(rec.Result().Cookies(), "test_session")
	require.NotNil(t, cookie)
	require.Empty(t, cookie.Value)
	require.Negative(t, cookie.MaxAge)
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
