package orders

import (
	"fmt"

	"github.com/T0MGL/0rdefy-sub009/internal/admin/rbac"
)

// DeleteMode tells callers how an allowed delete must be carried out.
type DeleteMode int

const (
	// DeleteSoft keeps the order with a restorable marker.
	DeleteSoft DeleteMode = iota + 1
	// DeletePermanent erases the order.
	DeletePermanent
)

// String implements fmt.Stringer.
func (m DeleteMode) String() string {
	switch m {
	case DeleteSoft:
		return "soft"
	case DeletePermanent:
		return "permanent"
	default:
		return "none"
	}
}

// CanDelete decides whether the roles may delete an order in the given status. Dispatched
// orders can only be removed by the store owner, who always deletes permanently.
func CanDelete(roles []string, status Status) (DeleteMode, error) {
	if !rbac.HasCapability(roles, rbac.CapOrdersDelete) {
		return 0, fmt.Errorf("%w: missing permission", ErrDeleteForbidden)
	}
	if status.IsDispatched() && !rbac.HasCapability(roles, rbac.CapOrdersDeleteDispatched) {
		return 0, fmt.Errorf("%w: %s orders can only be deleted by the store owner", ErrDeleteForbidden, status.Label())
	}
	if rbac.HasCapability(roles, rbac.CapOrdersHardDelete) {
		return DeletePermanent, nil
	}
	return DeleteSoft, nil
}

// CanAssignCarrier reports whether the roles may assign a courier to an order in the given status.
func CanAssignCarrier(roles []string, status Status) bool {
	if !rbac.HasCapability(roles, rbac.CapOrdersAssignCarrier) {
		return false
	}
	return !status.IsDispatched() && !status.IsTerminal()
}
