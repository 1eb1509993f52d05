package postgres

import (
	"context"

	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/repository"
)

// TenantStore is the typed query surface carried on a tenant connection
// handle. It answers schema-introspection questions for the provisioning
// and repair tooling; business queries ride the raw handle.
type TenantStore struct {
	db     repository.DBTX
	schema string
}

// NewTenantStore creates a TenantStore bound to one tenant schema.
func NewTenantStore(db repository.DBTX, schema string) *TenantStore {
	return &TenantStore{db: db, schema: schema}
}

// Schema returns the schema this store is scoped to.
func (s *TenantStore) Schema() string {
	return s.schema
}

// Tables lists the base tables currently present in the tenant schema.
func (s *TenantStore) Tables(ctx context.Context) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	rows, err := s.db.QueryContext(ctx, q, s.schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tables, nil
}

// MissingTables returns the names from expected that are absent in the
// tenant schema. An empty result means the fixed table set is complete.
func (s *TenantStore) MissingTables(ctx context.Context, expected []string) ([]string, error) {
	present, err := s.Tables(ctx)
	if err != nil {
		return nil, err
	}

	have := make(map[string]bool, len(present))
	for _, name := range present {
		have[name] = true
	}

	missing := make([]string, 0)
	for _, name := range expected {
		if !have[name] {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// IsProvisioned reports whether the provisioning marker row was written,
// i.e. a provision run completed its full sequence at least once.
func (s *TenantStore) IsProvisioned(ctx context.Context) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_schema = $1 AND table_name = 'schema_info'
		)
	`
	var hasMarkerTable bool
	if err := s.db.QueryRowContext(ctx, q, s.schema).Scan(&hasMarkerTable); err != nil {
		return false, err
	}
	if !hasMarkerTable {
		return false, nil
	}

	var provisioned bool
	markerQ := `SELECT EXISTS (SELECT 1 FROM ` + s.schema + `.schema_info)`
	if err := s.db.QueryRowContext(ctx, markerQ).Scan(&provisioned); err != nil {
		return false, err
	}
	return provisioned, nil
}
