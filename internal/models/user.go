package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleBuyer   Role = "Buyer"
	RoleManager Role = "Manager"
	RoleAdmin   Role = "Admin"
)

func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buyer":
		return RoleBuyer, nil
	case "manager":
		return RoleManager, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role: %q", raw)
	}
}

type AccountStatus string

const (
	AccountActive    AccountStatus = "Active"
	AccountSuspended AccountStatus = "Suspended"
	// AccountPending is the post-signup state before an admin activates the account.
	AccountPending AccountStatus = "pending"
)

func ParseAccountStatus(raw string) (AccountStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active":
		return AccountActive, nil
	case "suspended":
		return AccountSuspended, nil
	case "pending":
		return AccountPending, nil
	default:
		return "", fmt.Errorf("unknown account status: %q", raw)
	}
}

type User struct {
	ID              uuid.UUID     `json:"id"`
	Name            string        `json:"name"`
	Email           string        `json:"email"`
	PhotoURL        string        `json:"photoURL,omitempty"`
	Role            Role          `json:"role"`
	Status          AccountStatus `json:"status"`
	SuspendReason   string        `json:"suspendReason,omitempty"`
	SuspendFeedback string        `json:"suspendFeedback,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
}

func (u *User) Suspended() bool {
	return u != nil && u.Status == AccountSuspended
}

// NormalizeEmail is the canonical form used for lookups and ownership checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
