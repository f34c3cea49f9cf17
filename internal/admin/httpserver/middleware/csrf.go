package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"github.com/T0MGL/0rdefy-sub009/internal/platform/requestctx"
)

type csrfKey struct{}

// CSRFConfig names the double-submit cookie and where a request may echo it back: the
// header for htmx calls, FormField for plain form posts.
type CSRFConfig struct {
	CookieName string
	CookiePath string
	HeaderName string
	FormField  string
	MaxAge     time.Duration
	Secure     bool
}

func (c CSRFConfig) withDefaults() CSRFConfig {
	if c.CookieName == "" {
		c.CookieName = "csrf_token"
	}
	if c.CookiePath == "" {
		c.CookiePath = "/"
	}
	if c.HeaderName == "" {
		c.HeaderName = "X-CSRF-Token"
	}
	if c.FormField == "" {
		c.FormField = "_csrf"
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 24 * time.Hour
	}
	return c
}

var errNoEntropy = errors.New("csrf: could not generate token")

// CSRF issues a per-browser token on first contact and requires it back on every
// state-changing request.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	cfg = cfg.withDefaults()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := cfg.token(w, r)
			if err != nil {
				requestctx.Logger(r.Context()).Error("csrf token", zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if mutates(r.Method) && !cfg.echoed(r, token) {
				requestctx.Logger(r.Context()).Warn("csrf token mismatch", zap.String("path", r.URL.Path))
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfKey{}, token)))
		})
	}
}

// CSRFTokenFromContext returns the token to embed in forms and the htmx header config.
func CSRFTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(csrfKey{}).(string)
	return token
}

// token returns the browser's token, minting and setting a new cookie when absent.
func (c CSRFConfig) token(w http.ResponseWriter, r *http.Request) (string, error) {
	if cookie, err := r.Cookie(c.CookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	raw := securecookie.GenerateRandomKey(32)
	if raw == nil {
		return "", errNoEntropy
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	http.SetCookie(w, &http.Cookie{
		Name:     c.CookieName,
		Value:    token,
		Path:     c.CookiePath,
		MaxAge:   int(c.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure || r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	return token, nil
}

func (c CSRFConfig) echoed(r *http.Request, token string) bool {
	got := r.Header.Get(c.HeaderName)
	if got == "" && strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		got = r.PostFormValue(c.FormField)
	}
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}

func mutates(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	}
	return true
}
