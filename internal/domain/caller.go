package domain

import "github.com/google/uuid"

// Role is the caller's privilege level, supplied by the auth layer.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleViewer || r == RoleOperator || r == RoleAdmin
}

// Caller is a verified identity acting on the match core.
type Caller struct {
	ID   uuid.UUID
	Role Role
}

// IsAdmin reports whether the caller may act on any match.
func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }
