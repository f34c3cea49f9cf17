package middleware

import (
	"context"
	"net/http"
	"strings"
)

const defaultEnvironment = "Development"

type pageKey struct{}

// page is what the layout needs to know about the request it renders for. The middlewares
// below fill it in place, so it is attached to the context once.
type page struct {
	path        string
	base        string
	environment string
	htmx        bool
}

func pageFrom(r *http.Request) (*http.Request, *page) {
	if p, ok := r.Context().Value(pageKey{}).(*page); ok {
		return r, p
	}
	p := &page{base: "/", environment: defaultEnvironment}
	return r.WithContext(context.WithValue(r.Context(), pageKey{}, p)), p
}

func pageFromContext(ctx context.Context) *page {
	p, _ := ctx.Value(pageKey{}).(*page)
	return p
}

// Paths records the request path and the console base path for navigation.
func Paths(basePath string) func(http.Handler) http.Handler {
	base := "/" + strings.Trim(strings.TrimSpace(basePath), "/")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, p := pageFrom(r)
			p.path, p.base = r.URL.Path, base
			next.ServeHTTP(w, r)
		})
	}
}

// Environment labels the request with the deployment environment shown in the top bar.
func Environment(name string) func(http.Handler) http.Handler {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultEnvironment
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, p := pageFrom(r)
			p.environment = name
			next.ServeHTTP(w, r)
		})
	}
}

// HTMX marks requests issued by htmx. History restores ask for the full page and are not
// marked.
func HTMX() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, p := pageFrom(r)
			p.htmx = wantsFragment(r)
			next.ServeHTTP(w, r)
		})
	}
}

// RequireHTMX hides fragment routes from direct navigation with a 404.
func RequireHTMX() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "HX-Request")
			if !wantsFragment(r) {
				http.NotFound(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func wantsFragment(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("HX-Request"), "true") &&
		!strings.EqualFold(r.Header.Get("HX-History-Restore-Request"), "true")
}

// IsHTMXRequest reports whether HTMX marked the request as an htmx fragment request.
func IsHTMXRequest(ctx context.Context) bool {
	p := pageFromContext(ctx)
	return p != nil && p.htmx
}

// RequestPathFromContext returns the request path, or "" outside Paths.
func RequestPathFromContext(ctx context.Context) string {
	if p := pageFromContext(ctx); p != nil {
		return p.path
	}
	return ""
}

// BasePathFromContext returns the console base path, "/" outside Paths.
func BasePathFromContext(ctx context.Context) string {
	if p := pageFromContext(ctx); p != nil && p.base != "" {
		return p.base
	}
	return "/"
}

// EnvironmentFromContext returns the environment label, "Development" by default.
func EnvironmentFromContext(ctx context.Context) string {
	if p := pageFromContext(ctx); p != nil {
		return p.environment
	}
	return defaultEnvironment
}
