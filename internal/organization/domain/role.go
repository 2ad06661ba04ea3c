package domain

import (
	"errors"
	"strings"
)

// Role is shared by organization and department memberships.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

var ErrInvalidRole = errors.New("invalid_role")

// ParseRole normalizes raw into a known role. Empty input yields member.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case "", RoleMember:
		return RoleMember, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleOwner:
		return RoleOwner, nil
	default:
		return "", ErrInvalidRole
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	default:
		return false
	}
}

// IsAdmin reports whether the role may administer its scope.
func (r Role) IsAdmin() bool {
	return r == RoleOwner || r == RoleAdmin
}
