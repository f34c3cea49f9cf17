package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/T0MGL/0rdefy-sub009/internal/admin/rbac"
	"github.com/T0MGL/0rdefy-sub009/internal/platform/requestctx"
)

type staticAuthenticator struct {
	token string
	user  User
	err   error
}

func (a staticAuthenticator) Authenticate(_ *http.Request, token string) (*User, error) {
	if token != a.token {
		return nil, ErrUnauthorized
	}
	if a.err != nil {
		return nil, a.err
	}
	user := a.user
	return &user, nil
}

func TestAuth(t *testing.T) {
	t.Parallel()

	valid := staticAuthenticator{token: "valid", user: User{UID: "staff-1", StoreID: "store-7"}}
	tests := []struct {
		name     string
		auth     staticAuthenticator
		prepare  func(*http.Request)
		status   int
		location string
		hxHeader string
		hxValue  string
	}{
		{
			name:     "missing token redirects",
			auth:     valid,
			prepare:  func(*http.Request) {},
			status:   http.StatusFound,
			location: "/login",
		},
		{
			name:     "htmx without token",
			auth:     valid,
			prepare:  func(r *http.Request) { r.Header.Set("HX-Request", "true") },
			status:   http.StatusUnauthorized,
			hxHeader: "HX-Redirect",
			hxValue:  "/login",
		},
		{
			name:    "bearer header",
			auth:    valid,
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer valid") },
			status:  http.StatusOK,
		},
		{
			name:    "session cookie",
			auth:    valid,
			prepare: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "__session", Value: "valid"}) },
			status:  http.StatusOK,
		},
		{
			name:    "bearer cookie",
			auth:    valid,
			prepare: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "Authorization", Value: "Bearer valid"}) },
			status:  http.StatusOK,
		},
		{
			name:     "wrong token",
			auth:     valid,
			prepare:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer forged") },
			status:   http.StatusFound,
			location: "/login",
		},
		{
			name: "expired token over htmx",
			auth: staticAuthenticator{token: "valid", err: NewAuthError(ReasonTokenExpired, errors.New("expired"))},
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer valid")
				r.Header.Set("HX-Request", "true")
			},
			status:   http.StatusUnauthorized,
			hxHeader: "HX-Refresh",
			hxValue:  "true",
		},
		{
			name:     "store not granted",
			auth:     staticAuthenticator{token: "valid", err: NewAuthError(ReasonStoreForbidden, ErrStoreNotAllowed)},
			prepare:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer valid") },
			status:   http.StatusFound,
			location: "/login?reason=store_forbidden",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			handler := HTMX()(Auth(tc.auth, "/login")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				user, ok := UserFromContext(r.Context())
				require.True(t, ok)
				require.Equal(t, "staff-1", user.UID)
				w.WriteHeader(http.StatusOK)
			})))

			req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
			tc.prepare(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, tc.status, rec.Code)
			if tc.location != "" {
				require.Equal(t, tc.location, rec.Header().Get("Location"))
			}
			if tc.hxHeader != "" {
				require.Equal(t, tc.hxValue, rec.Header().Get(tc.hxHeader))
			}
		})
	}
}

func TestAuthAttachesStoreScope(t *testing.T) {
	t.Parallel()

	auth := staticAuthenticator{token: "valid", user: User{UID: "staff-1", StoreID: "store-7"}}
	var storeID string
	handler := Auth(auth, "/login")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		storeID = requestctx.StoreID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/admin/orders/refresh", nil)
	req.Header.Set("Authorization", "Bearer valid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "store-7", storeID)
}

func TestDevAuthenticatorParsesTokens(t *testing.T) {
	t.Parallel()

	auth := DefaultAuthenticator()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	user, err := auth.Authenticate(req, "ana")
	require.NoError(t, err)
	require.Equal(t, "ana", user.UID)
	require.Equal(t, []string{"admin"}, user.Roles)
	require.Equal(t, "local", user.StoreID)

	user, err = auth.Authenticate(req, "luis:confirmer, logistics@store-3")
	require.NoError(t, err)
	require.Equal(t, "luis", user.UID)
	require.Equal(t, []string{"confirmer", "logistics"}, user.Roles)
	require.Equal(t, "store-3", user.StoreID)

	_, err = auth.Authenticate(req, ":admin@store-3")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, ReasonTokenInvalid, authErr.Reason)
}

func TestCSRF(t *testing.T) {
	t.Parallel()

	mw := CSRF(CSRFConfig{CookieName: "csrf", HeaderName: "X-CSRF-Token"})
	ok := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("issues token on first GET", func(t *testing.T) {
		t.Parallel()
		var token string
		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token = CSRFTokenFromContext(r.Context())
		}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/orders", nil))

		require.NotEmpty(t, token)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		require.Equal(t, "csrf", cookies[0].Name)
		require.Equal(t, token, cookies[0].Value)
		require.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
	})

	tests := []struct {
		name   string
		build  func() *http.Request
		status int
	}{
		{
			name: "post without token",
			build: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/admin/orders/refresh", nil)
			},
			status: http.StatusForbidden,
		},
		{
			name: "post with matching header",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/admin/orders/refresh", nil)
				r.Header.Set("X-CSRF-Token", "token")
				return r
			},
			status: http.StatusOK,
		},
		{
			name: "post with stale header",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/admin/orders/refresh", nil)
				r.Header.Set("X-CSRF-Token", "other")
				return r
			},
			status: http.StatusForbidden,
		},
		{
			name: "form post with field",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/admin/logout", strings.NewReader("_csrf=token"))
				r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return r
			},
			status: http.StatusOK,
		},
		{
			name: "delete with header",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodDelete, "/admin/orders/o-1", nil)
				r.Header.Set("X-CSRF-Token", "token")
				return r
			},
			status: http.StatusOK,
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := tc.build()
			req.AddCookie(&http.Cookie{Name: "csrf", Value: "token"})
			rec := httptest.NewRecorder()
			ok.ServeHTTP(rec, req)
			require.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRequestMetadata(t *testing.T) {
	t.Parallel()

	var ctx context.Context
	handler := Paths("/admin/")(Environment(" Staging ")(HTMX()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctx = r.Context()
	}))))

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req.Header.Set("HX-Request", "true")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "/admin/orders", RequestPathFromContext(ctx))
	require.Equal(t, "/admin", BasePathFromContext(ctx))
	require.Equal(t, "Staging", EnvironmentFromContext(ctx))
	require.True(t, IsHTMXRequest(ctx))

	bare := context.Background()
	require.Equal(t, "/", BasePathFromContext(bare))
	require.Equal(t, "Development", EnvironmentFromContext(bare))
	require.False(t, IsHTMXRequest(bare))
}

func TestHTMXIgnoresHistoryRestore(t *testing.T) {
	t.Parallel()

	var fragment bool
	handler := HTMX()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		fragment = IsHTMXRequest(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-History-Restore-Request", "true")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.False(t, fragment)
}

func TestRequireHTMX(t *testing.T) {
	t.Parallel()

	handler := RequireHTMX()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/orders/table", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "HX-Request", rec.Header().Get("Vary"))

	req := httptest.NewRequest(http.MethodGet, "/admin/orders/table", nil)
	req.Header.Set("HX-Request", "true")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNoStore(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	NoStore()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/orders", nil))

	require.Equal(t, "no-store, max-age=0", rec.Header().Get("Cache-Control"))
	require.Equal(t, "no-cache", rec.Header().Get("Pragma"))
}

func TestRequireCapability(t *testing.T) {
	t.Parallel()

	handler := HTMX()(RequireCapability(rbac.CapOrdersPrint)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	serve := func(user *User) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin/orders/print", nil)
		req.Header.Set("HX-Request", "true")
		if user != nil {
			req = req.WithContext(ContextWithUser(req.Context(), user))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, serve(&User{UID: "a", Roles: []string{"logistics"}}).Code)

	denied := serve(&User{UID: "c", Roles: []string{"confirmer"}})
	require.Equal(t, http.StatusForbidden, denied.Code)
	require.Equal(t, "true", denied.Header().Get("HX-Refresh"))

	require.Equal(t, http.StatusForbidden, serve(nil).Code)
}
