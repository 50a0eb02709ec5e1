// Package access derives what a user may do from their role and account status.
package access

import (
	"strings"

	"github.com/garmentrack/garmentrack/internal/models"
)

// Permissions is the view projection shared by the HTTP handlers and the client.
type Permissions struct {
	CanApprove        bool `json:"canApprove"`
	CanReject         bool `json:"canReject"`
	CanAppendTracking bool `json:"canAppendTracking"`
	CanPlaceOrder     bool `json:"canPlaceOrder"`
	CanManageUsers    bool `json:"canManageUsers"`
	CanManageProducts bool `json:"canManageProducts"`
}

// For is pure: the same role and status always produce the same permissions.
// Suspended accounts get nothing. Pending accounts keep buyer ordering but
// receive no management rights until an admin activates them. Unknown roles
// and statuses fail closed.
func For(role models.Role, status models.AccountStatus) Permissions {
	switch status {
	case models.AccountActive, models.AccountPending:
	default:
		return Permissions{}
	}

	var perms Permissions
	switch role {
	case models.RoleAdmin:
		perms = Permissions{
			CanApprove:        true,
			CanReject:         true,
			CanAppendTracking: true,
			CanManageUsers:    true,
			CanManageProducts: true,
		}
	case models.RoleManager:
		perms = Permissions{
			CanApprove:        true,
			CanReject:         true,
			CanAppendTracking: true,
			CanManageProducts: true,
		}
	case models.RoleBuyer:
		perms = Permissions{CanPlaceOrder: true}
	default:
		return Permissions{}
	}

	if status == models.AccountPending {
		return Permissions{CanPlaceOrder: perms.CanPlaceOrder}
	}
	return perms
}

// ForUser returns the permissions of u, or none for a nil user.
func ForUser(u *models.User) Permissions {
	if u == nil {
		return Permissions{}
	}
	return For(u.Role, u.Status)
}

// None reports whether every permission is false.
func (p Permissions) None() bool {
	return p == Permissions{}
}

// CanPlaceOrderFor additionally requires the product to be in stock.
func CanPlaceOrderFor(u *models.User, product *models.Product) bool {
	return ForUser(u).CanPlaceOrder && product.InStock()
}

// CanEditProduct lets admins edit any product and managers edit their own.
func CanEditProduct(u *models.User, product *models.Product) bool {
	if u == nil || product == nil || !ForUser(u).CanManageProducts {
		return false
	}
	if u.Role == models.RoleAdmin {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(product.CreatedBy), strings.TrimSpace(u.Email))
}

// CanViewOrder lets staff view any order and buyers view their own.
func CanViewOrder(u *models.User, order *models.Order) bool {
	if u == nil || order == nil {
		return false
	}
	switch u.Role {
	case models.RoleAdmin, models.RoleManager:
		return true
	default:
		return order.PlacedBy(u.Email)
	}
}
