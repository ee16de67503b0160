package domain

import (
	"fmt"
	"slices"
	"strings"
)

type Role string

const (
	RoleCollector Role = "COLLECTOR"
	RoleArtist    Role = "ARTIST"
	RoleAdmin     Role = "ADMIN"
)

// DefaultRole is assigned when registration omits a role.
const DefaultRole = RoleCollector

var roles = []Role{RoleCollector, RoleArtist, RoleAdmin}

// ParseRole maps free-form text to a Role, case-insensitively.
// Unknown or blank input fails with ErrInvalidRole.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !slices.Contains(roles, r) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Authorize is the authorization guard: a nil user has not authenticated,
// a user whose role is outside allowed is forbidden. An empty allowed set
// admits any authenticated user.
func Authorize(u *User, allowed ...Role) error {
	if u == nil {
		return ErrUnauthorized
	}
	if len(allowed) == 0 || slices.Contains(allowed, u.Role) {
		return nil
	}
	return ErrForbidden
}
