package postgres

import (
	"context"
	"database/sql"

	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/model"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/repository"
)

// MembershipPostgres is a PostgreSQL implementation of repository.MembershipRepository.
type MembershipPostgres struct {
	db repository.DBTX
}

// NewMembershipPostgres creates a new MembershipPostgres repository.
func NewMembershipPostgres(db repository.DBTX) *MembershipPostgres {
	return &MembershipPostgres{db: db}
}

var _ repository.MembershipRepository = (*MembershipPostgres)(nil)

// WithTx returns a repository bound to the given transaction.
func (r *MembershipPostgres) WithTx(tx *sql.Tx) repository.MembershipRepository {
	return &MembershipPostgres{db: tx}
}

// Upsert inserts a membership, or reactivates the existing pair with the new
// role. The unique (account_id, tenant_id) constraint drives the conflict.
func (r *MembershipPostgres) Upsert(ctx context.Context, m *model.Membership) (*model.Membership, error) {
	const q = `
		INSERT INTO shared.memberships (id, account_id, tenant_id, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $5)
		ON CONFLICT (account_id, tenant_id)
		DO UPDATE SET role = EXCLUDED.role, active = TRUE, updated_at = now()
		RETURNING id, account_id, tenant_id, role, active, created_at, updated_at
	`
	row := r.db.QueryRowContext(ctx, q,
		m.ID,
		m.AccountID,
		m.TenantID,
		string(m.Role),
		m.CreatedAt,
	)
	return scanMembership(row)
}

// Find returns the membership for the pair regardless of its active flag.
func (r *MembershipPostgres) Find(ctx context.Context, accountID, tenantID string) (*model.Membership, error) {
	const q = `
		SELECT id, account_id, tenant_id, role, active, created_at, updated_at
		FROM shared.memberships
		WHERE account_id = $1 AND tenant_id = $2
	`
	return scanMembership(r.db.QueryRowContext(ctx, q, accountID, tenantID))
}

// Deactivate soft-removes a membership; the row stays for audit.
func (r *MembershipPostgres) Deactivate(ctx context.Context, accountID, tenantID string) error {
	const q = `
		UPDATE shared.memberships
		SET active = FALSE, updated_at = now()
		WHERE account_id = $1 AND tenant_id = $2 AND active = TRUE
	`
	res, err := r.db.ExecContext(ctx, q, accountID, tenantID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListForAccount returns active memberships joined with active tenants.
func (r *MembershipPostgres) ListForAccount(ctx context.Context, accountID string) ([]model.UserTenant, error) {
	const q = `
		SELECT t.id, t.name, t.slug, m.role
		FROM shared.memberships m
		JOIN shared.tenants t ON t.id = m.tenant_id
		WHERE m.account_id = $1 AND m.active = TRUE AND t.active = TRUE
		ORDER BY t.name, t.id
	`
	rows, err := r.db.QueryContext(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.UserTenant, 0)
	for rows.Next() {
		var (
			ut   model.UserTenant
			role string
		)
		if err := rows.Scan(&ut.TenantID, &ut.Name, &ut.Slug, &role); err != nil {
			return nil, err
		}
		ut.Role = model.Role(role)
		items = append(items, ut)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteForTenant removes all membership rows of a tenant (drop path only).
func (r *MembershipPostgres) DeleteForTenant(ctx context.Context, tenantID string) error {
	const q = `DELETE FROM shared.memberships WHERE tenant_id = $1`
	_, err := r.db.ExecContext(ctx, q, tenantID)
	return err
}

func scanMembership(row *sql.Row) (*model.Membership, error) {
	var (
		m    model.Membership
		role string
	)
	if err := row.Scan(
		&m.ID,
		&m.AccountID,
		&m.TenantID,
		&role,
		&m.Active,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	m.Role = model.Role(role)
	return &m, nil
}
