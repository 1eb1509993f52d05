package migration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/database"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/repository"
)

// provisionStep is one DDL statement of the tenant provisioning sequence.
// SQL contains a single %s placeholder for the schema name, which is only
// ever produced by database.TenantSchemaName and is safe to interpolate.
// BestEffort steps log a warning on failure instead of aborting the run.
type provisionStep struct {
	Name       string
	SQL        string
	BestEffort bool
}

// tenantTables is the fixed table set every tenant schema receives.
var tenantTables = []string{
	"locations",
	"suppliers",
	"customers",
	"inventory_items",
	"stock_movements",
	"work_orders",
	"quality_checks",
	"financial_documents",
	"schema_info",
}

var tenantSteps = []provisionStep{
	{
		Name: "create_schema",
		SQL:  `CREATE SCHEMA IF NOT EXISTS %s;`,
	},
	{
		Name: "create_table_locations",
		SQL: `CREATE TABLE IF NOT EXISTS %s.locations (
  id         UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  name       TEXT        NOT NULL,
  kind       TEXT        NOT NULL DEFAULT 'warehouse',
  address    TEXT,
  active     BOOLEAN     NOT NULL DEFAULT TRUE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_suppliers",
		SQL: `CREATE TABLE IF NOT EXISTS %s.suppliers (
  id         UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  name       TEXT        NOT NULL,
  tax_id     TEXT,
  contact    JSONB       NOT NULL DEFAULT '{}'::jsonb,
  active     BOOLEAN     NOT NULL DEFAULT TRUE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_customers",
		SQL: `CREATE TABLE IF NOT EXISTS %s.customers (
  id         UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  name       TEXT        NOT NULL,
  tax_id     TEXT,
  contact    JSONB       NOT NULL DEFAULT '{}'::jsonb,
  active     BOOLEAN     NOT NULL DEFAULT TRUE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_inventory_items",
		SQL: `CREATE TABLE IF NOT EXISTS %s.inventory_items (
  id          UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  sku         TEXT        NOT NULL UNIQUE,
  name        TEXT        NOT NULL,
  unit        TEXT        NOT NULL DEFAULT 'pcs',
  quantity    NUMERIC     NOT NULL DEFAULT 0 CHECK (quantity >= 0),
  location_id UUID        REFERENCES %s.locations(id),
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_stock_movements",
		SQL: `CREATE TABLE IF NOT EXISTS %s.stock_movements (
  id          UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  item_id     UUID        NOT NULL REFERENCES %s.inventory_items(id),
  location_id UUID        REFERENCES %s.locations(id),
  direction   TEXT        NOT NULL CHECK (direction IN ('IN', 'OUT')),
  quantity    NUMERIC     NOT NULL CHECK (quantity > 0),
  reference   TEXT,
  moved_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_work_orders",
		SQL: `CREATE TABLE IF NOT EXISTS %s.work_orders (
  id           UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  code         TEXT        NOT NULL UNIQUE,
  status       TEXT        NOT NULL DEFAULT 'DRAFT',
  item_id      UUID        REFERENCES %s.inventory_items(id),
  quantity     NUMERIC     NOT NULL DEFAULT 0,
  due_date     DATE,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_quality_checks",
		SQL: `CREATE TABLE IF NOT EXISTS %s.quality_checks (
  id            UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  work_order_id UUID        REFERENCES %s.work_orders(id),
  result        TEXT        NOT NULL,
  notes         TEXT,
  checked_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_financial_documents",
		SQL: `CREATE TABLE IF NOT EXISTS %s.financial_documents (
  id          UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  number      TEXT        NOT NULL UNIQUE,
  kind        TEXT        NOT NULL,
  customer_id UUID        REFERENCES %s.customers(id),
  supplier_id UUID        REFERENCES %s.suppliers(id),
  total       NUMERIC     NOT NULL DEFAULT 0,
  issued_at   DATE        NOT NULL,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name:       "create_index_inventory_items_sku",
		SQL:        `CREATE INDEX IF NOT EXISTS idx_inventory_items_sku ON %s.inventory_items (sku);`,
		BestEffort: true,
	},
	{
		Name:       "create_index_inventory_items_location",
		SQL:        `CREATE INDEX IF NOT EXISTS idx_inventory_items_location ON %s.inventory_items (location_id);`,
		BestEffort: true,
	},
	{
		Name:       "create_index_stock_movements_item",
		SQL:        `CREATE INDEX IF NOT EXISTS idx_stock_movements_item ON %s.stock_movements (item_id, moved_at);`,
		BestEffort: true,
	},
	{
		Name:       "create_index_work_orders_status",
		SQL:        `CREATE INDEX IF NOT EXISTS idx_work_orders_status ON %s.work_orders (status);`,
		BestEffort: true,
	},
	{
		Name:       "create_index_quality_checks_work_order",
		SQL:        `CREATE INDEX IF NOT EXISTS idx_quality_checks_work_order ON %s.quality_checks (work_order_id);`,
		BestEffort: true,
	},
	{
		Name:       "create_index_financial_documents_issued_at",
		SQL:        `CREATE INDEX IF NOT EXISTS idx_financial_documents_issued_at ON %s.financial_documents (issued_at);`,
		BestEffort: true,
	},
	{
		Name: "create_table_schema_info",
		SQL: `CREATE TABLE IF NOT EXISTS %s.schema_info (
  version        INTEGER     PRIMARY KEY,
  provisioned_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		// Written last so its presence marks a completed sequence.
		Name: "write_provisioning_marker",
		SQL:  `INSERT INTO %s.schema_info (version) VALUES (1) ON CONFLICT (version) DO NOTHING;`,
	},
}

// TenantTableNames returns the fixed table set every provisioned tenant
// schema must contain. Repair tooling compares against it.
func TenantTableNames() []string {
	out := make([]string, len(tenantTables))
	copy(out, tenantTables)
	return out
}

// Provisioner creates and destroys per-tenant schemas. The DDL sequence is
// an ordered series of independent idempotent statements and is NOT wrapped
// in one transaction: a crash mid-sequence leaves a partial schema, and
// re-running Provision completes the remaining steps. Idempotent retry is
// the recovery mechanism, not rollback.
type Provisioner struct {
	db  *sql.DB
	loc *time.Location
}

// NewProvisioner creates a Provisioner issuing DDL through the given pool.
func NewProvisioner(db *sql.DB, loc *time.Location) *Provisioner {
	if loc == nil {
		loc = time.UTC
	}
	return &Provisioner{db: db, loc: loc}
}

// Provision creates the tenant schema if absent and issues the fixed table
// and index sequence. Index steps are best-effort: a failed index is logged
// as a warning and the sequence continues. Any other failure aborts and is
// returned to the caller.
func (p *Provisioner) Provision(ctx context.Context, tenantID string) error {
	schema, err := database.TenantSchemaName(tenantID)
	if err != nil {
		return err
	}

	start := time.Now()
	logJSON(p.loc, map[string]any{
		"component": "provisioner",
		"event":     "tenant_provision_start",
		"status":    "in_progress",
		"tenant_id": tenantID,
		"schema":    schema,
	})

	for _, step := range tenantSteps {
		stepStart := time.Now()
		_, err := p.db.ExecContext(ctx, renderStep(step.SQL, schema))
		if err != nil {
			if step.BestEffort {
				logJSON(p.loc, map[string]any{
					"component":        "provisioner",
					"event":            "tenant_provision_step_skipped",
					"status":           "warning",
					"provision_step":   step.Name,
					"error_message":    err.Error(),
					"tenant_id":        tenantID,
					"schema":           schema,
					"step_duration_ms": time.Since(stepStart).Milliseconds(),
				})
				continue
			}
			logJSON(p.loc, map[string]any{
				"component":        "provisioner",
				"event":            "tenant_provision_failed",
				"status":           "error",
				"provision_step":   step.Name,
				"error_message":    err.Error(),
				"tenant_id":        tenantID,
				"schema":           schema,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("provision step %s failed: %w", step.Name, err)
		}
	}

	logJSON(p.loc, map[string]any{
		"component":   "provisioner",
		"event":       "tenant_provision_success",
		"status":      "success",
		"tenant_id":   tenantID,
		"schema":      schema,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

// Drop destroys the tenant schema and everything in it. It executes through
// the supplied DBTX so the lifecycle manager can pair it with the registry
// row deletion in one transaction.
func (p *Provisioner) Drop(ctx context.Context, q repository.DBTX, tenantID string) error {
	schema, err := database.TenantSchemaName(tenantID)
	if err != nil {
		return err
	}

	start := time.Now()
	if _, err := q.ExecContext(ctx, fmt.Sprintf(`DROP SCHEMA IF EXISTS %s CASCADE;`, schema)); err != nil {
		logJSON(p.loc, map[string]any{
			"component":     "provisioner",
			"event":         "tenant_drop_failed",
			"status":        "error",
			"error_message": err.Error(),
			"tenant_id":     tenantID,
			"schema":        schema,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("drop schema %s failed: %w", schema, err)
	}

	logJSON(p.loc, map[string]any{
		"component":   "provisioner",
		"event":       "tenant_drop_success",
		"status":      "success",
		"tenant_id":   tenantID,
		"schema":      schema,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

// renderStep substitutes the schema name into every placeholder of a step.
func renderStep(stepSQL, schema string) string {
	return strings.ReplaceAll(stepSQL, "%s", schema)
}
