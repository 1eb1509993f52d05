package model

import "time"

// Role is the role an account holds within a tenant.
type Role string

const (
	RoleOwner    Role = "OWNER"
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleEmployee Role = "EMPLOYEE"
	RoleViewer   Role = "VIEWER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleEmployee, RoleViewer:
		return true
	}
	return false
}

// Membership links an account to a tenant with a role.
// Rows are soft-deactivated (Active=false) rather than deleted, so the
// (AccountID, TenantID) pair stays unique for the lifetime of the tenant.
type Membership struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	TenantID  string    `json:"tenant_id"`
	Role      Role      `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserTenant is the read model returned when listing an account's tenants.
type UserTenant struct {
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Role     Role   `json:"role"`
}
