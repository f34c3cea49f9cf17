package helpers

import (
	"context"
	"path"
	"strings"

	"github.com/T0MGL/0rdefy-sub009/internal/admin/httpserver/middleware"
)

// BasePath returns the console mount point, "/" when unset.
func BasePath(ctx context.Context) string {
	return cleanRoute(middleware.BasePathFromContext(ctx))
}

// NavActive reports whether the request path is pattern, or lies under it when prefix is set.
func NavActive(ctx context.Context, pattern string, prefix bool) bool {
	if strings.TrimSpace(pattern) == "" {
		return false
	}
	current := cleanRoute(middleware.RequestPathFromContext(ctx))
	target := cleanRoute(pattern)
	switch {
	case current == target:
		return true
	case !prefix || target == "/":
		return false
	default:
		return strings.HasPrefix(current, target+"/")
	}
}

func cleanRoute(p string) string {
	return path.Clean("/" + strings.TrimSpace(p))
}
