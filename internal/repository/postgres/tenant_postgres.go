package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/model"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/repository"
)

// TenantPostgres is a PostgreSQL implementation of repository.TenantRepository.
// It uses parameterized queries against the shared schema only; tenant
// schemas are never touched here.
type TenantPostgres struct {
	db repository.DBTX
}

// NewTenantPostgres creates a new TenantPostgres repository.
func NewTenantPostgres(db repository.DBTX) *TenantPostgres {
	return &TenantPostgres{db: db}
}

var _ repository.TenantRepository = (*TenantPostgres)(nil)

// WithTx returns a repository bound to the given transaction.
func (r *TenantPostgres) WithTx(tx *sql.Tx) repository.TenantRepository {
	return &TenantPostgres{db: tx}
}

// Create inserts a new tenant row and returns the stored record.
func (r *TenantPostgres) Create(ctx context.Context, t *model.Tenant) (*model.Tenant, error) {
	profile, err := marshalProfile(t.Profile)
	if err != nil {
		return nil, err
	}

	const q = `
		INSERT INTO shared.tenants (id, name, slug, profile, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id, name, slug, profile, active, created_at, updated_at
	`
	row := r.db.QueryRowContext(ctx, q,
		t.ID,
		t.Name,
		t.Slug,
		profile,
		t.Active,
		t.CreatedAt,
	)
	return scanTenant(row)
}

// FindByID fetches a single tenant by its ID.
func (r *TenantPostgres) FindByID(ctx context.Context, id string) (*model.Tenant, error) {
	const q = `
		SELECT id, name, slug, profile, active, created_at, updated_at
		FROM shared.tenants
		WHERE id = $1
	`
	return scanTenant(r.db.QueryRowContext(ctx, q, id))
}

// SetActive flips the active flag of a tenant.
func (r *TenantPostgres) SetActive(ctx context.Context, id string, active bool) error {
	const q = `UPDATE shared.tenants SET active = $2, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, active)
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

// Delete removes a tenant row.
func (r *TenantPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM shared.tenants WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
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

func marshalProfile(p map[string]any) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

func scanTenant(row *sql.Row) (*model.Tenant, error) {
	var (
		t       model.Tenant
		profile []byte
	)
	if err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Slug,
		&profile,
		&t.Active,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &t.Profile); err != nil {
			return nil, err
		}
	}
	return &t, nil
}
