// Package channel maps an authenticated identity to the one broker
// channel its notifications arrive on.
package channel

import (
	"errors"
	"fmt"
)

// Role is the fixed set of warehouse roles known to the backend.
type Role string

const (
	RoleDepartment       Role = "DEPARTMENT"
	RoleWarehouseManager Role = "WAREHOUSE_MANAGER"
	RoleWarehouseKeeper  Role = "WAREHOUSE_KEEPER"
	RoleAccounting       Role = "ACCOUNTING"
	RoleAdmin            Role = "ADMIN"

	// RoleStaff is the only per-account role: each staff member gets a
	// private channel scoped by account id.
	RoleStaff Role = "STAFF"
)

// IsValid checks that the role is one of the known enum values.
func (r Role) IsValid() bool {
	switch r {
	case RoleDepartment, RoleWarehouseManager, RoleWarehouseKeeper,
		RoleAccounting, RoleAdmin, RoleStaff:
		return true
	default:
		return false
	}
}

const channelPrefix = "private-notifications-"

var (
	ErrUnknownRole    = errors.New("channel: unknown role")
	ErrMissingAccount = errors.New("channel: account id required for staff role")
)

// Resolve returns the channel identifier for a role and account id.
// Every role shares one channel per role except RoleStaff, whose channel
// carries the account id. Unknown roles are not retryable: the caller
// must surface the error and wait for the session to change.
func Resolve(role Role, accountID string) (string, error) {
	if !role.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	if role == RoleStaff {
		if accountID == "" {
			return "", ErrMissingAccount
		}
		return fmt.Sprintf("%s%s-%s", channelPrefix, role, accountID), nil
	}
	return channelPrefix + string(role), nil
}

// Authorized reports whether the identity (role, accountID) may subscribe
// to name. Used by the auth endpoint to vet channel requests.
func Authorized(role Role, accountID, name string) bool {
	resolved, err := Resolve(role, accountID)
	if err != nil {
		return false
	}
	return resolved == name
}
