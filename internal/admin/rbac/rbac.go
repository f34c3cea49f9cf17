// Package rbac decides which store roles may take which order desk actions.
package rbac

import (
	"slices"
	"strings"
)

// Role represents a staff access tier inside a store.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleAdmin     Role = "admin"
	RoleLogistics Role = "logistics"
	RoleConfirmer Role = "confirmer"
	RoleSupport   Role = "support"
)

// Capability names an order desk action gated by role.
type Capability string

const (
	CapOrdersList             Capability = "orders.list"
	CapOrdersCreate           Capability = "orders.create"
	CapOrdersEdit             Capability = "orders.edit"
	CapOrdersConfirm          Capability = "orders.confirm"
	CapOrdersStatus           Capability = "orders.status"
	CapOrdersContact          Capability = "orders.contact"
	CapOrdersAssignCarrier    Capability = "orders.carrier.assign"
	CapOrdersPrint            Capability = "orders.print"
	CapOrdersDelete           Capability = "orders.delete"
	CapOrdersHardDelete       Capability = "orders.delete.permanent"
	CapOrdersDeleteDispatched Capability = "orders.delete.dispatched"
	CapOrdersRestore          Capability = "orders.restore"
	CapOrdersMarkTest         Capability = "orders.test"
)

// capabilityRoles maps each capability to the roles permitted to access it. The owner role
// is implicit everywhere and is listed only where it is the sole holder.
var capabilityRoles = map[Capability]Roles{
	CapOrdersList:             {RoleAdmin, RoleLogistics, RoleConfirmer, RoleSupport},
	CapOrdersCreate:           {RoleAdmin, RoleConfirmer, RoleSupport},
	CapOrdersEdit:             {RoleAdmin, RoleConfirmer},
	CapOrdersConfirm:          {RoleAdmin, RoleConfirmer},
	CapOrdersStatus:           {RoleAdmin, RoleLogistics, RoleConfirmer},
	CapOrdersContact:          {RoleAdmin, RoleConfirmer, RoleSupport},
	CapOrdersAssignCarrier:    {RoleAdmin, RoleLogistics, RoleConfirmer},
	CapOrdersPrint:            {RoleAdmin, RoleLogistics},
	CapOrdersDelete:           {RoleAdmin, RoleConfirmer},
	CapOrdersHardDelete:       {RoleOwner},
	CapOrdersDeleteDispatched: {RoleOwner},
	CapOrdersRestore:          {RoleAdmin},
	CapOrdersMarkTest:         {RoleAdmin},
}

// Roles is a deduplicated set of canonical roles.
type Roles []Role

// Has reports whether role is in the set.
func (rs Roles) Has(role Role) bool { return slices.Contains(rs, role) }

// NormaliseRoles lower-cases, trims and deduplicates raw role claims, keeping their order.
func NormaliseRoles(raw []string) Roles {
	var roles Roles
	for _, val := range raw {
		role := Role(strings.ToLower(strings.TrimSpace(val)))
		if role != "" && !roles.Has(role) {
			roles = append(roles, role)
		}
	}
	return roles
}

// HasCapability reports whether any of userRoles grants capability. Owners hold every
// known capability; unknown capabilities are denied to everyone and the empty capability
// is open to everyone.
func HasCapability(userRoles []string, capability Capability) bool {
	if capability == "" {
		return true
	}
	allowed, known := capabilityRoles[capability]
	if !known {
		return false
	}
	return slices.ContainsFunc(NormaliseRoles(userRoles), func(r Role) bool {
		return r == RoleOwner || allowed.Has(r)
	})
}
