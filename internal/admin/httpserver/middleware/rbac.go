package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/T0MGL/0rdefy-sub009/internal/admin/rbac"
	"github.com/T0MGL/0rdefy-sub009/internal/platform/requestctx"
)

// RequireCapability answers 403 unless one of the operator's roles grants capability.
// htmx callers also get HX-Refresh so the page re-renders without the action.
func RequireCapability(capability rbac.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if ok && rbac.HasCapability(user.Roles, capability) {
				next.ServeHTTP(w, r)
				return
			}

			uid := ""
			if ok {
				uid = user.UID
			}
			requestctx.Logger(r.Context()).Info("capability denied",
				zap.String("capability", string(capability)),
				zap.String("uid", uid),
			)
			if IsHTMXRequest(r.Context()) {
				w.Header().Set("HX-Refresh", "true")
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}
