package repository

import (
	"context"
	"database/sql"

	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/model"
)

// TenantRepository defines persistence for tenant registry rows in the
// shared schema. No business logic here, strictly SQL operations.
type TenantRepository interface {
	// Create inserts a new tenant row and returns the stored record.
	Create(ctx context.Context, t *model.Tenant) (*model.Tenant, error)

	// FindByID returns a tenant by its ID.
	FindByID(ctx context.Context, id string) (*model.Tenant, error)

	// SetActive flips the active flag. Returns sql.ErrNoRows if the tenant
	// does not exist.
	SetActive(ctx context.Context, id string, active bool) error

	// Delete removes the tenant row. Returns sql.ErrNoRows if absent.
	Delete(ctx context.Context, id string) error

	// WithTx returns a copy of the repository bound to the transaction.
	WithTx(tx *sql.Tx) TenantRepository
}

// MembershipRepository defines persistence for (account, tenant, role) rows.
type MembershipRepository interface {
	// Upsert inserts a membership or, when the (account, tenant) pair
	// already exists, reactivates it and updates the role.
	Upsert(ctx context.Context, m *model.Membership) (*model.Membership, error)

	// Find returns the membership for the pair regardless of its active
	// flag. Returns sql.ErrNoRows when no row exists.
	Find(ctx context.Context, accountID, tenantID string) (*model.Membership, error)

	// Deactivate clears the active flag, keeping the row for audit.
	// Returns sql.ErrNoRows when no active row exists.
	Deactivate(ctx context.Context, accountID, tenantID string) error

	// ListForAccount returns the active memberships of an account joined
	// with active tenants.
	ListForAccount(ctx context.Context, accountID string) ([]model.UserTenant, error)

	// DeleteForTenant removes all membership rows of a tenant. Used only by
	// the privileged drop path.
	DeleteForTenant(ctx context.Context, tenantID string) error

	// WithTx returns a copy of the repository bound to the transaction.
	WithTx(tx *sql.Tx) MembershipRepository
}
