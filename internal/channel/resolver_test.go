package channel

import (
	"errors"
	"testing"
)

func TestResolveSharedRolesIgnoreAccountID(t *testing.T) {
	roles := []Role{RoleDepartment, RoleWarehouseManager, RoleWarehouseKeeper, RoleAccounting, RoleAdmin}

	for _, role := range roles {
		t.Run(string(role), func(t *testing.T) {
			a, err := Resolve(role, "1")
			if err != nil {
				t.Fatalf("Resolve(%s, 1) returned error: %v", role, err)
			}
			b, err := Resolve(role, "2")
			if err != nil {
				t.Fatalf("Resolve(%s, 2) returned error: %v", role, err)
			}
			if a != b {
				t.Errorf("shared role %s resolved differently per account: %q vs %q", role, a, b)
			}
			want := "private-notifications-" + string(role)
			if a != want {
				t.Errorf("Resolve(%s) = %q, want %q", role, a, want)
			}
		})
	}
}

func TestResolveStaffIsPerAccount(t *testing.T) {
	got, err := Resolve(RoleStaff, "42")
	if err != nil {
		t.Fatalf("Resolve(STAFF, 42) returned error: %v", err)
	}
	if got != "private-notifications-STAFF-42" {
		t.Errorf("Resolve(STAFF, 42) = %q, want %q", got, "private-notifications-STAFF-42")
	}

	other, err := Resolve(RoleStaff, "43")
	if err != nil {
		t.Fatalf("Resolve(STAFF, 43) returned error: %v", err)
	}
	if got == other {
		t.Errorf("distinct staff accounts resolved to the same channel %q", got)
	}
}

func TestResolveStaffRequiresAccountID(t *testing.T) {
	_, err := Resolve(RoleStaff, "")
	if !errors.Is(err, ErrMissingAccount) {
		t.Errorf("Resolve(STAFF, \"\") error = %v, want ErrMissingAccount", err)
	}
}

func TestResolveUnknownRole(t *testing.T) {
	_, err := Resolve(Role("GHOST"), "42")
	if !errors.Is(err, ErrUnknownRole) {
		t.Errorf("Resolve(GHOST) error = %v, want ErrUnknownRole", err)
	}
}

func TestAuthorized(t *testing.T) {
	cases := []struct {
		name      string
		role      Role
		accountID string
		channel   string
		want      bool
	}{
		{"staff own channel", RoleStaff, "42", "private-notifications-STAFF-42", true},
		{"staff other account", RoleStaff, "42", "private-notifications-STAFF-43", false},
		{"staff role channel", RoleStaff, "42", "private-notifications-ADMIN", false},
		{"shared role", RoleAccounting, "9", "private-notifications-ACCOUNTING", true},
		{"unknown role", Role("GHOST"), "1", "private-notifications-GHOST", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Authorized(tc.role, tc.accountID, tc.channel); got != tc.want {
				t.Errorf("Authorized(%s, %s, %s) = %v, want %v", tc.role, tc.accountID, tc.channel, got, tc.want)
			}
		})
	}
}
