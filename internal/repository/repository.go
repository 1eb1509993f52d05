package repository

// Package repository contains data access layer abstractions for the shared
// schema. Implementations live in subpackages (e.g., postgres).

import (
	"context"
	"database/sql"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx. Repositories are
// bound to a DBTX so the lifecycle manager can run its create/drop sequences
// inside one shared-schema transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
