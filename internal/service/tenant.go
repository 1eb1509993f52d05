package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/database"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/database/migration"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/metrics"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/model"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/repository"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/storage"
)

var (
	ErrNameRequired       = errors.New("tenant name is required")
	ErrOwnerRequired      = errors.New("owner account id is required")
	ErrAccountRequired    = errors.New("account id is required")
	ErrInvalidRole        = errors.New("invalid role")
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrMembershipNotFound = errors.New("membership not found")

	// ErrSchemaIncomplete is reported by RepairTenant when the fixed table
	// set is still missing pieces after a re-provision run.
	ErrSchemaIncomplete = errors.New("tenant schema is incomplete")
)

// ProvisioningError marks the recognized partial-failure state: the tenant
// row is committed but its schema sequence did not complete. The tenant id
// is carried so operators (or RepairTenant) can re-run provisioning, which
// is idempotent.
type ProvisioningError struct {
	TenantID string
	Err      error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning tenant %s: %v", e.TenantID, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// AccessDecision is the authorization outcome for an (account, tenant) pair.
// Denial is a result, not an error.
type AccessDecision struct {
	HasAccess bool       `json:"has_access"`
	Role      model.Role `json:"role,omitempty"`
}

// CreateTenantInput carries the registration data for a new tenant.
type CreateTenantInput struct {
	Name    string         `json:"name"`
	Slug    string         `json:"slug,omitempty"`
	OwnerID string         `json:"owner_id"`
	Profile map[string]any `json:"profile,omitempty"`
}

// SchemaProvisioner is the slice of the migration provisioner this service
// needs: idempotent schema creation and transactional schema destruction.
type SchemaProvisioner interface {
	Provision(ctx context.Context, tenantID string) error
	Drop(ctx context.Context, q repository.DBTX, tenantID string) error
}

// ConnectionRegistry is the slice of the tenant connection registry this
// service needs for handle eviction and repair inspection.
type ConnectionRegistry interface {
	Get(ctx context.Context, tenantID string) (*database.TenantConn, error)
	Close(tenantID string) error
}

// TenantService defines the tenant lifecycle use cases.
type TenantService interface {
	// CreateTenant inserts the tenant and OWNER membership rows in one
	// shared-schema transaction, then provisions the tenant schema after
	// commit. A provisioning failure returns *ProvisioningError while the
	// committed rows remain; recovery is RepairTenant.
	CreateTenant(ctx context.Context, in CreateTenantInput) (*model.Tenant, error)

	// GetTenant returns one tenant by id.
	GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error)

	// AddUserToTenant grants an account a role, reactivating and updating
	// the membership when the pair already exists.
	AddUserToTenant(ctx context.Context, accountID, tenantID string, role model.Role) (*model.Membership, error)

	// RemoveUserFromTenant soft-deactivates the membership; the row stays.
	RemoveUserFromTenant(ctx context.Context, accountID, tenantID string) error

	// ValidateTenantAccess is the single source of truth for per-request
	// authorization.
	ValidateTenantAccess(ctx context.Context, accountID, tenantID string) (*AccessDecision, error)

	// GetUserTenants lists the active tenants of an account with roles.
	GetUserTenants(ctx context.Context, accountID string) ([]model.UserTenant, error)

	// DeactivateTenant soft-disables a tenant and evicts its handle.
	DeactivateTenant(ctx context.Context, tenantID string) error

	// DropTenant irreversibly destroys the tenant schema and registry rows.
	// Privileged: must only be reachable from administrative tooling.
	DropTenant(ctx context.Context, tenantID string) error

	// RepairTenant re-runs the idempotent provisioning sequence and verifies
	// the fixed table set is complete.
	RepairTenant(ctx context.Context, tenantID string) error
}

// tenantService is the concrete TenantService. It owns the shared-schema
// transactions; DDL stays behind the provisioner, pooled handles behind the
// registry.
type tenantService struct {
	db       *sql.DB
	tenants  repository.TenantRepository
	members  repository.MembershipRepository
	prov     SchemaProvisioner
	registry ConnectionRegistry
	objects  storage.TenantObjectStore
	metrics  *metrics.Metrics
}

// NewTenantService constructs a TenantService. objects and m may be nil.
func NewTenantService(
	db *sql.DB,
	tenants repository.TenantRepository,
	members repository.MembershipRepository,
	prov SchemaProvisioner,
	registry ConnectionRegistry,
	objects storage.TenantObjectStore,
	m *metrics.Metrics,
) TenantService {
	return &tenantService{
		db:       db,
		tenants:  tenants,
		members:  members,
		prov:     prov,
		registry: registry,
		objects:  objects,
		metrics:  m,
	}
}

func (s *tenantService) CreateTenant(ctx context.Context, in CreateTenantInput) (*model.Tenant, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrNameRequired
	}
	if in.OwnerID == "" {
		return nil, ErrOwnerRequired
	}

	now := time.Now().UTC()
	tenant := &model.Tenant{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		Slug:      in.Slug,
		Profile:   in.Profile,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if tenant.Slug == "" {
		tenant.Slug = Slugify(tenant.Name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.metrics.RecordTenantOp("create", "error")
		return nil, fmt.Errorf("begin tenant creation: %w", err)
	}

	stored, err := s.tenants.WithTx(tx).Create(ctx, tenant)
	if err != nil {
		_ = tx.Rollback()
		s.metrics.RecordTenantOp("create", "error")
		return nil, fmt.Errorf("insert tenant: %w", err)
	}

	owner := &model.Membership{
		ID:        uuid.NewString(),
		AccountID: in.OwnerID,
		TenantID:  stored.ID,
		Role:      model.RoleOwner,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.members.WithTx(tx).Upsert(ctx, owner); err != nil {
		_ = tx.Rollback()
		s.metrics.RecordTenantOp("create", "error")
		return nil, fmt.Errorf("insert owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		s.metrics.RecordTenantOp("create", "error")
		return nil, fmt.Errorf("commit tenant creation: %w", err)
	}

	// The rows are committed; DDL from here on cannot be rolled back.
	// A failure leaves the recognized partial state repaired by re-running
	// the idempotent provisioning, not by transactional undo.
	if err := s.prov.Provision(ctx, stored.ID); err != nil {
		s.metrics.RecordTenantOp("create", "provision_failed")
		return nil, &ProvisioningError{TenantID: stored.ID, Err: err}
	}

	s.metrics.RecordTenantOp("create", "success")
	return stored, nil
}

func (s *tenantService) GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error) {
	if tenantID == "" {
		return nil, ErrTenantNotFound
	}
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return tenant, nil
}

func (s *tenantService) AddUserToTenant(ctx context.Context, accountID, tenantID string, role model.Role) (*model.Membership, error) {
	if accountID == "" {
		return nil, ErrAccountRequired
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if _, err := s.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	membership, err := s.members.Upsert(ctx, &model.Membership{
		ID:        uuid.NewString(),
		AccountID: accountID,
		TenantID:  tenantID,
		Role:      role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		s.metrics.RecordTenantOp("add_member", "error")
		return nil, fmt.Errorf("upsert membership: %w", err)
	}

	s.metrics.RecordTenantOp("add_member", "success")
	return membership, nil
}

func (s *tenantService) RemoveUserFromTenant(ctx context.Context, accountID, tenantID string) error {
	if accountID == "" {
		return ErrAccountRequired
	}
	if err := s.members.Deactivate(ctx, accountID, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMembershipNotFound
		}
		s.metrics.RecordTenantOp("remove_member", "error")
		return fmt.Errorf("deactivate membership: %w", err)
	}
	s.metrics.RecordTenantOp("remove_member", "success")
	return nil
}

func (s *tenantService) ValidateTenantAccess(ctx context.Context, accountID, tenantID string) (*AccessDecision, error) {
	denied := &AccessDecision{HasAccess: false}
	if accountID == "" || tenantID == "" {
		return denied, nil
	}

	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return denied, nil
		}
		return nil, err
	}
	if !tenant.Active {
		return denied, nil
	}

	membership, err := s.members.Find(ctx, accountID, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return denied, nil
		}
		return nil, err
	}
	if !membership.Active {
		return denied, nil
	}

	return &AccessDecision{HasAccess: true, Role: membership.Role}, nil
}

func (s *tenantService) GetUserTenants(ctx context.Context, accountID string) ([]model.UserTenant, error) {
	if accountID == "" {
		return nil, ErrAccountRequired
	}
	return s.members.ListForAccount(ctx, accountID)
}

func (s *tenantService) DeactivateTenant(ctx context.Context, tenantID string) error {
	if err := s.tenants.SetActive(ctx, tenantID, false); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTenantNotFound
		}
		return err
	}
	if s.registry != nil {
		if err := s.registry.Close(tenantID); err != nil {
			return fmt.Errorf("tenant deactivated but handle eviction failed: %w", err)
		}
	}
	s.metrics.RecordTenantOp("deactivate", "success")
	return nil
}

func (s *tenantService) DropTenant(ctx context.Context, tenantID string) error {
	if _, err := s.GetTenant(ctx, tenantID); err != nil {
		return err
	}

	// Evict the cached handle first so no pooled connection outlives the
	// schema it is scoped to.
	if s.registry != nil {
		if err := s.registry.Close(tenantID); err != nil {
			return fmt.Errorf("evict tenant handle: %w", err)
		}
	}

	// Purge object storage before touching the database: if it fails the
	// tenant is untouched and the drop can simply be retried.
	if s.objects != nil {
		if err := s.objects.PurgeTenant(ctx, tenantID); err != nil {
			s.metrics.RecordTenantOp("drop", "purge_failed")
			return fmt.Errorf("purge tenant objects: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tenant drop: %w", err)
	}

	if err := s.members.WithTx(tx).DeleteForTenant(ctx, tenantID); err != nil {
		_ = tx.Rollback()
		s.metrics.RecordTenantOp("drop", "error")
		return fmt.Errorf("delete memberships: %w", err)
	}
	if err := s.tenants.WithTx(tx).Delete(ctx, tenantID); err != nil {
		_ = tx.Rollback()
		s.metrics.RecordTenantOp("drop", "error")
		return fmt.Errorf("delete tenant row: %w", err)
	}
	if err := s.prov.Drop(ctx, tx, tenantID); err != nil {
		_ = tx.Rollback()
		s.metrics.RecordTenantOp("drop", "error")
		return err
	}

	if err := tx.Commit(); err != nil {
		s.metrics.RecordTenantOp("drop", "error")
		return fmt.Errorf("commit tenant drop: %w", err)
	}

	s.metrics.RecordTenantOp("drop", "success")
	return nil
}

func (s *tenantService) RepairTenant(ctx context.Context, tenantID string) error {
	if _, err := s.GetTenant(ctx, tenantID); err != nil {
		return err
	}

	if err := s.prov.Provision(ctx, tenantID); err != nil {
		s.metrics.RecordTenantOp("repair", "error")
		return &ProvisioningError{TenantID: tenantID, Err: err}
	}

	// Verify the fixed table set actually came out complete.
	if s.registry != nil {
		conn, err := s.registry.Get(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("inspect repaired schema: %w", err)
		}
		missing, err := conn.Store().MissingTables(ctx, migration.TenantTableNames())
		if err != nil {
			return fmt.Errorf("inspect repaired schema: %w", err)
		}
		if len(missing) > 0 {
			s.metrics.RecordTenantOp("repair", "incomplete")
			return fmt.Errorf("%w: missing %s", ErrSchemaIncomplete, strings.Join(missing, ", "))
		}
	}

	s.metrics.RecordTenantOp("repair", "success")
	return nil
}

// Slugify derives a URL-safe slug from a display name.
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
