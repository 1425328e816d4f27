package domain

import "fmt"

// Role is the closed set of authorization roles. Stored as text, but parsed
// into this enumeration at every trust boundary so a typo'd role string can
// never pass an authorization check.
type Role string

const (
	RolePlayer    Role = "Player"
	RoleModerator Role = "Moderator"
	RoleAdmin     Role = "Admin"
)

// ParseRole maps a stored role label to a Role, rejecting unknown labels.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePlayer, RoleModerator, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role: %q", s)
}

// CanManageUsers reports whether the role may mutate user records.
func (r Role) CanManageUsers() bool {
	return r == RoleAdmin || r == RoleModerator
}

// AllRoles returns every valid role.
func AllRoles() []Role {
	return []Role{RolePlayer, RoleModerator, RoleAdmin}
}
