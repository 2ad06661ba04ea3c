package domain

import "testing"

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"":        RoleMember,
		"member":  RoleMember,
		" Admin ": RoleAdmin,
		"OWNER":   RoleOwner,
	}
	for raw, want := range cases {
		got, err := ParseRole(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %q, got %q", raw, want, got)
		}
	}

	if _, err := ParseRole("superuser"); err != ErrInvalidRole {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestRoleIsAdmin(t *testing.T) {
	if !RoleOwner.IsAdmin() || !RoleAdmin.IsAdmin() {
		t.Fatalf("owner and admin must administer")
	}
	if RoleMember.IsAdmin() {
		t.Fatalf("member must not administer")
	}
	if Role("viewer").Valid() {
		t.Fatalf("unknown role must be invalid")
	}
}
