package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestManager(t *testing.T) (*Manager, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	mgr, err := NewManager(Config{
		CookieName:       "desk",
		HashKey:          []byte("12345678901234567890123456789012"),
		BlockKey:         []byte("abcdefghijklmnopqrstuv0123456789"),
		IdleTimeout:      10 * time.Minute,
		Lifetime:         2 * time.Hour,
		RememberLifetime: 48 * time.Hour,
		Now:              clock.Now,
	})
	require.NoError(t, err)
	return mgr, clock
}

// roundTrip saves sess and loads it back through a request carrying the cookie.
func roundTrip(t *testing.T, mgr *Manager, sess *Session) (*Session, error) {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, mgr.Save(rec, sess))
	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return mgr.Load(req)
}

func TestManagerPersistsStaff(t *testing.T) {
	t.Parallel()
	mgr, clock := newTestManager(t)

	sess, err := mgr.Load(httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID())
	require.Nil(t, sess.Staff())
	require.Equal(t, clock.now.Add(2*time.Hour), sess.ExpiresAt())

	staff := &Staff{UID: "staff-1", Email: "ops@ordefy.test", Roles: []string{"confirmer"}, StoreID: "store-1"}
	require.True(t, sess.SetStaff(staff))
	require.False(t, sess.SetStaff(staff))
	staff.Roles[0] = "owner"
	require.Equal(t, []string{"confirmer"}, sess.Staff().Roles)

	sess.SetRememberMe(true)
	sess.SetRefreshToken("refresh-1")

	clock.now = clock.now.Add(5 * time.Minute)
	loaded, err := roundTrip(t, mgr, sess)
	require.NoError(t, err)
	require.Equal(t, sess.ID(), loaded.ID())
	require.Equal(t, "store-1", loaded.Staff().StoreID)
	require.True(t, loaded.RememberMe())
	require.Equal(t, "refresh-1", loaded.RefreshToken())
	require.Equal(t, loaded.CreatedAt().Add(48*time.Hour), loaded.ExpiresAt())
}

func TestManagerExpiresIdleSessions(t *testing.T) {
	t.Parallel()
	mgr, clock := newTestManager(t)

	sess := mgr.New()
	rec := httptest.NewRecorder()
	require.NoError(t, mgr.Save(rec, sess))

	clock.now = clock.now.Add(11 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	_, err := mgr.Load(req)
	require.ErrorIs(t, err, ErrExpired)
}

func TestManagerIgnoresTamperedCookie(t *testing.T) {
	t.Parallel()
	mgr, _ := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: "desk", Value: "forged"})
	sess, err := mgr.Load(req)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID())
	require.Nil(t, sess.Staff())
}

func TestManagerDestroyClearsCookie(t *testing.T) {
	t.Parallel()
	mgr, _ := newTestManager(t)

	sess := mgr.New()
	sess.Destroy()
	rec := httptest.NewRecorder()
	require.NoError(t, mgr.Save(rec, sess))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "desk", cookies[0].Name)
	require.Empty(t, cookies[0].Value)
	require.Negative(t, cookies[0].MaxAge)
}

func TestNewManagerValidatesKeys(t *testing.T) {
	t.Parallel()

	_, err := NewManager(Config{})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewManager(Config{HashKey: []byte("k"), BlockKey: []byte("short")})
	require.ErrorIs(t, err, ErrInvalidConfig)
}
