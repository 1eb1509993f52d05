package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var sharedSteps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_schema_shared",
		SQL:  `CREATE SCHEMA IF NOT EXISTS shared;`,
	},
	{
		Name: "create_table_accounts",
		SQL: `CREATE TABLE IF NOT EXISTS shared.accounts (
  id            UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  email         TEXT        NOT NULL UNIQUE,
  full_name     TEXT        NOT NULL,
  password_hash TEXT        NOT NULL,
  active        BOOLEAN     NOT NULL DEFAULT TRUE,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_tenants",
		SQL: `CREATE TABLE IF NOT EXISTS shared.tenants (
  id         UUID        PRIMARY KEY,
  name       TEXT        NOT NULL,
  slug       TEXT        NOT NULL UNIQUE,
  profile    JSONB       NOT NULL DEFAULT '{}'::jsonb,
  active     BOOLEAN     NOT NULL DEFAULT TRUE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_memberships",
		SQL: `CREATE TABLE IF NOT EXISTS shared.memberships (
  id         UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  account_id UUID        NOT NULL REFERENCES shared.accounts(id),
  tenant_id  UUID        NOT NULL REFERENCES shared.tenants(id),
  role       TEXT        NOT NULL,
  active     BOOLEAN     NOT NULL DEFAULT TRUE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (account_id, tenant_id)
);`,
	},
	{
		Name: "create_table_sessions",
		SQL: `CREATE TABLE IF NOT EXISTS shared.sessions (
  id         UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  account_id UUID        NOT NULL REFERENCES shared.accounts(id),
  tenant_id  UUID        REFERENCES shared.tenants(id),
  token_hash TEXT        NOT NULL UNIQUE,
  expires_at TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_memberships_account",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_memberships_account ON shared.memberships (account_id) WHERE active;`,
	},
	{
		Name: "create_index_memberships_tenant",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_memberships_tenant ON shared.memberships (tenant_id);`,
	},
	{
		Name: "create_index_sessions_account",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_sessions_account ON shared.sessions (account_id);`,
	},
	{
		Name: "create_index_sessions_expires_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON shared.sessions (expires_at);`,
	},
}

// sharedSentinel is the artifact created by the LAST step of sharedSteps.
// The skip check keys on it: an earlier artifact would make a run that died
// mid-sequence look complete on every later boot, and the remaining steps
// would never be issued. Keep it in sync when reordering sharedSteps.
const sharedSentinel = "shared.idx_sessions_expires_at"

// EnsureShared bootstraps the shared schema (accounts, tenants, memberships,
// sessions). It checks a sentinel first and skips the full run only when the
// final artifact of the sequence is already in place; a partial earlier run
// is completed by re-issuing every step, all of which are create-if-not-exists.
// A failure is returned to the caller; deciding that it is fatal belongs to
// the process entrypoint, not this package.
func EnsureShared(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "shared_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('" + sharedSentinel + "') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "shared_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "shared_migration_skip",
			"status":      "success",
			"msg":         "shared schema is complete, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "shared_migration_start",
		"status":    "in_progress",
		"db_host":   dbHost,
	})

	for _, step := range sharedSteps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			logJSON(loc, map[string]any{
				"component":        "database",
				"event":            "shared_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "shared_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "shared_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		switch data["status"] {
		case "error":
			data["level"] = "error"
		case "warning":
			data["level"] = "warn"
		default:
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
