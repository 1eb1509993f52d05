package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/config"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/metrics"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/repository/postgres"
)

// TenantProvisioner creates a tenant's schema and fixed table set. The
// concrete implementation lives in the migration subpackage; the registry
// only needs this slice of it.
type TenantProvisioner interface {
	Provision(ctx context.Context, tenantID string) error
}

// TenantConn is one cached connection handle: a bounded pool whose search
// path is scoped to the tenant schema (with shared fallback) paired with the
// typed query surface over that pool. Handles live until Close/CloseAll.
type TenantConn struct {
	tenantID string
	schema   string
	db       *sql.DB
	store    *postgres.TenantStore
}

// NewTenantConn pairs a pool with the typed query surface for one tenant
// schema. The registry builds handles through it; tests may too.
func NewTenantConn(tenantID, schema string, db *sql.DB) *TenantConn {
	return &TenantConn{
		tenantID: tenantID,
		schema:   schema,
		db:       db,
		store:    postgres.NewTenantStore(db, schema),
	}
}

// DB returns the pooled connection scoped to the tenant schema.
func (c *TenantConn) DB() *sql.DB { return c.db }

// Schema returns the tenant schema name the handle is scoped to.
func (c *TenantConn) Schema() string { return c.schema }

// TenantID returns the owning tenant id.
func (c *TenantConn) TenantID() string { return c.tenantID }

// Store returns the typed query surface bound to the tenant schema.
func (c *TenantConn) Store() *postgres.TenantStore { return c.store }

func (c *TenantConn) close() error { return c.db.Close() }

// TenantRegistry caches at most one connection handle per tenant, created
// lazily on first access. The map is the only shared mutable structure in
// this layer and is guarded by the mutex; handle creation itself happens
// outside the lock so a slow pool open cannot stall other tenants.
type TenantRegistry struct {
	cfg     config.DatabaseConfig
	loc     *time.Location
	prov    TenantProvisioner
	metrics *metrics.Metrics

	// open is swappable in tests.
	open func(config.DatabaseConfig, string) (*sql.DB, error)

	mu    sync.RWMutex
	conns map[string]*TenantConn
}

// NewTenantRegistry creates an empty registry. prov may be nil when schema
// provisioning is handled elsewhere; m may be nil to disable metrics.
func NewTenantRegistry(cfg config.DatabaseConfig, prov TenantProvisioner, m *metrics.Metrics, loc *time.Location) *TenantRegistry {
	if loc == nil {
		loc = time.UTC
	}
	return &TenantRegistry{
		cfg:     cfg,
		loc:     loc,
		prov:    prov,
		metrics: m,
		open:    NewTenantPool,
		conns:   make(map[string]*TenantConn),
	}
}

// Get returns the cached handle for the tenant, opening (and provisioning)
// one on first access. When two goroutines race on the same cache miss, the
// loser's freshly opened pool is closed immediately and the winner's handle
// is returned: at most one handle per tenant is ever retained.
//
// Acquisition and provisioning failures are logged and propagated to the
// caller; nothing is retried here.
func (r *TenantRegistry) Get(ctx context.Context, tenantID string) (*TenantConn, error) {
	r.mu.RLock()
	conn := r.conns[tenantID]
	r.mu.RUnlock()
	if conn != nil {
		return conn, nil
	}

	schema, err := TenantSchemaName(tenantID)
	if err != nil {
		return nil, err
	}

	if r.prov != nil {
		if err := r.prov.Provision(ctx, tenantID); err != nil {
			r.logEvent("error", "tenant_connection_provision_failed", tenantID, schema, err)
			return nil, err
		}
	}

	db, err := r.open(r.cfg, schema)
	if err != nil {
		r.logEvent("error", "tenant_connection_open_failed", tenantID, schema, err)
		return nil, fmt.Errorf("open tenant pool for %s: %w", tenantID, err)
	}

	fresh := NewTenantConn(tenantID, schema, db)

	r.mu.Lock()
	if existing := r.conns[tenantID]; existing != nil {
		r.mu.Unlock()
		// Lost the first-access race: drop the duplicate pool right away.
		if err := fresh.close(); err != nil {
			r.logEvent("warn", "tenant_connection_duplicate_close_failed", tenantID, schema, err)
		} else {
			r.logEvent("info", "tenant_connection_duplicate_closed", tenantID, schema, nil)
		}
		return existing, nil
	}
	r.conns[tenantID] = fresh
	// Published under the lock so interleaved Get/Close cannot leave the
	// gauge at a stale size.
	r.metrics.SetCachedHandles(len(r.conns))
	r.mu.Unlock()

	r.logEvent("info", "tenant_connection_opened", tenantID, schema, nil)
	return fresh, nil
}

// Close disconnects and evicts one tenant's handle. Closing a tenant with no
// cached handle is a no-op.
func (r *TenantRegistry) Close(tenantID string) error {
	r.mu.Lock()
	conn := r.conns[tenantID]
	if conn != nil {
		delete(r.conns, tenantID)
		r.metrics.SetCachedHandles(len(r.conns))
	}
	r.mu.Unlock()

	if conn == nil {
		return nil
	}

	if err := conn.close(); err != nil {
		r.logEvent("error", "tenant_connection_close_failed", tenantID, conn.schema, err)
		return err
	}
	r.logEvent("info", "tenant_connection_closed", tenantID, conn.schema, nil)
	return nil
}

// CloseAll disconnects and evicts every cached handle. Used at process
// shutdown to drain pooled connections.
func (r *TenantRegistry) CloseAll() error {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]*TenantConn)
	r.metrics.SetCachedHandles(0)
	r.mu.Unlock()

	var errs []error
	for tenantID, conn := range conns {
		if err := conn.close(); err != nil {
			r.logEvent("error", "tenant_connection_close_failed", tenantID, conn.schema, err)
			errs = append(errs, fmt.Errorf("close %s: %w", tenantID, err))
			continue
		}
		r.logEvent("info", "tenant_connection_closed", tenantID, conn.schema, nil)
	}
	return errors.Join(errs...)
}

// Len returns the number of cached handles.
func (r *TenantRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *TenantRegistry) logEvent(level, event, tenantID, schema string, err error) {
	entry := map[string]any{
		"ts":        time.Now().In(r.loc).Format(time.RFC3339Nano),
		"level":     level,
		"component": "tenant_registry",
		"event":     event,
		"tenant_id": tenantID,
		"schema":    schema,
	}
	if err != nil {
		entry["error_message"] = err.Error()
	}
	if b, err := json.Marshal(entry); err == nil {
		log.SetFlags(0)
		log.Println(string(b))
	}
}
