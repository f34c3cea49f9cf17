package helpers

import (
	"context"

	"github.com/T0MGL/0rdefy-sub009/internal/admin/httpserver/middleware"
	"github.com/T0MGL/0rdefy-sub009/internal/admin/rbac"
)

// Can reports whether the signed-in operator holds capability. The zero capability marks
// entries open to every operator.
func Can(ctx context.Context, capability rbac.Capability) bool {
	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		return false
	}
	return capability == "" || rbac.HasCapability(user.Roles, capability)
}
