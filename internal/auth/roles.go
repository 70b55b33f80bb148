package auth

import "github.com/futsalhub/platform/internal/domain"

// StaffRoles returns roles that may write to the match ledger.
func StaffRoles() []domain.Role {
	return []domain.Role{domain.RoleOperator, domain.RoleAdmin}
}

// AdminRoles returns roles that may delete events and manage assignments.
func AdminRoles() []domain.Role {
	return []domain.Role{domain.RoleAdmin}
}
