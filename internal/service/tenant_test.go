package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/database"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/database/migration"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/model"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/repository"
	repoMocks "github.com/nivi333/lavoro-ai-ferri-sub003/internal/repository/mocks"
	storeMocks "github.com/nivi333/lavoro-ai-ferri-sub003/internal/storage/mocks"
)

type mockProvisioner struct {
	mock.Mock
}

func (m *mockProvisioner) Provision(ctx context.Context, tenantID string) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

func (m *mockProvisioner) Drop(ctx context.Context, q repository.DBTX, tenantID string) error {
	args := m.Called(ctx, q, tenantID)
	return args.Error(0)
}

type mockRegistry struct {
	mock.Mock
}

func (m *mockRegistry) Get(ctx context.Context, tenantID string) (*database.TenantConn, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*database.TenantConn), args.Error(1)
}

func (m *mockRegistry) Close(tenantID string) error {
	args := m.Called(tenantID)
	return args.Error(0)
}

type serviceFixture struct {
	svc      TenantService
	db       *sql.DB
	dbMock   sqlmock.Sqlmock
	tenants  *repoMocks.MockTenantRepository
	members  *repoMocks.MockMembershipRepository
	prov     *mockProvisioner
	registry *mockRegistry
	objects  *storeMocks.MockTenantObjectStore
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()

	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &serviceFixture{
		db:       db,
		dbMock:   dbMock,
		tenants:  new(repoMocks.MockTenantRepository),
		members:  new(repoMocks.MockMembershipRepository),
		prov:     new(mockProvisioner),
		registry: new(mockRegistry),
		objects:  new(storeMocks.MockTenantObjectStore),
	}
	f.svc = NewTenantService(db, f.tenants, f.members, f.prov, f.registry, f.objects, nil)
	return f
}

func TestTenantService_CreateTenant(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		f := newFixture(t)
		f.dbMock.ExpectBegin()
		f.dbMock.ExpectCommit()

		f.tenants.On("Create", ctx, mock.MatchedBy(func(tn *model.Tenant) bool {
			return tn.Name == "Acme Manufacturing" && tn.Slug == "acme-manufacturing" && tn.Active
		})).Return(&model.Tenant{ID: "t1", Name: "Acme Manufacturing", Slug: "acme-manufacturing", Active: true}, nil)

		f.members.On("Upsert", ctx, mock.MatchedBy(func(m *model.Membership) bool {
			return m.AccountID == "u1" && m.TenantID == "t1" && m.Role == model.RoleOwner && m.Active
		})).Return(&model.Membership{ID: "m1", AccountID: "u1", TenantID: "t1", Role: model.RoleOwner, Active: true}, nil)

		f.prov.On("Provision", ctx, "t1").Return(nil)

		tenant, err := f.svc.CreateTenant(ctx, CreateTenantInput{Name: "Acme Manufacturing", OwnerID: "u1"})

		require.NoError(t, err)
		assert.Equal(t, "t1", tenant.ID)
		assert.NoError(t, f.dbMock.ExpectationsWereMet())
		f.prov.AssertExpectations(t)
	})

	t.Run("validation errors", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.CreateTenant(ctx, CreateTenantInput{Name: "  ", OwnerID: "u1"})
		assert.ErrorIs(t, err, ErrNameRequired)

		_, err = f.svc.CreateTenant(ctx, CreateTenantInput{Name: "Acme"})
		assert.ErrorIs(t, err, ErrOwnerRequired)
	})

	t.Run("insert failure rolls back", func(t *testing.T) {
		f := newFixture(t)
		f.dbMock.ExpectBegin()
		f.dbMock.ExpectRollback()

		f.tenants.On("Create", ctx, mock.Anything).Return(nil, errors.New("slug taken"))

		_, err := f.svc.CreateTenant(ctx, CreateTenantInput{Name: "Acme", OwnerID: "u1"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "insert tenant")
		assert.NoError(t, f.dbMock.ExpectationsWereMet())
		f.prov.AssertNotCalled(t, "Provision", mock.Anything, mock.Anything)
	})

	t.Run("membership failure rolls back before provisioning", func(t *testing.T) {
		f := newFixture(t)
		f.dbMock.ExpectBegin()
		f.dbMock.ExpectRollback()

		f.tenants.On("Create", ctx, mock.Anything).
			Return(&model.Tenant{ID: "t1", Name: "Acme", Slug: "acme", Active: true}, nil)
		f.members.On("Upsert", ctx, mock.Anything).Return(nil, errors.New("fk violation"))

		_, err := f.svc.CreateTenant(ctx, CreateTenantInput{Name: "Acme", OwnerID: "u1"})

		require.Error(t, err)
		assert.NoError(t, f.dbMock.ExpectationsWereMet())
		f.prov.AssertNotCalled(t, "Provision", mock.Anything, mock.Anything)
	})

	t.Run("provisioning failure after commit is a ProvisioningError", func(t *testing.T) {
		f := newFixture(t)
		f.dbMock.ExpectBegin()
		f.dbMock.ExpectCommit()

		f.tenants.On("Create", ctx, mock.Anything).
			Return(&model.Tenant{ID: "t1", Name: "Acme", Slug: "acme", Active: true}, nil)
		f.members.On("Upsert", ctx, mock.Anything).
			Return(&model.Membership{ID: "m1"}, nil)

		ddlErr := errors.New("out of disk")
		f.prov.On("Provision", ctx, "t1").Return(ddlErr)

		_, err := f.svc.CreateTenant(ctx, CreateTenantInput{Name: "Acme", OwnerID: "u1"})

		var provErr *ProvisioningError
		require.ErrorAs(t, err, &provErr)
		assert.Equal(t, "t1", provErr.TenantID)
		assert.ErrorIs(t, err, ddlErr)
		assert.NoError(t, f.dbMock.ExpectationsWereMet())
	})
}

func TestTenantService_AddUserToTenant(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		f := newFixture(t)
		f.tenants.On("FindByID", ctx, "t1").
			Return(&model.Tenant{ID: "t1", Active: true}, nil)
		f.members.On("Upsert", ctx, mock.MatchedBy(func(m *model.Membership) bool {
			return m.AccountID == "u2" && m.TenantID == "t1" && m.Role == model.RoleEmployee
		})).Return(&model.Membership{ID: "m2", AccountID: "u2", TenantID: "t1", Role: model.RoleEmployee, Active: true}, nil)

		membership, err := f.svc.AddUserToTenant(ctx, "u2", "t1", model.RoleEmployee)

		require.NoError(t, err)
		assert.Equal(t, model.RoleEmployee, membership.Role)
	})

	t.Run("invalid role", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.AddUserToTenant(ctx, "u2", "t1", model.Role("SUPERUSER"))
		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("tenant missing", func(t *testing.T) {
		f := newFixture(t)
		f.tenants.On("FindByID", ctx, "ghost").Return(nil, sql.ErrNoRows)

		_, err := f.svc.AddUserToTenant(ctx, "u2", "ghost", model.RoleEmployee)
		assert.ErrorIs(t, err, ErrTenantNotFound)
	})
}

func TestTenantService_RemoveUserFromTenant(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		f := newFixture(t)
		f.members.On("Deactivate", ctx, "u2", "t1").Return(nil)

		assert.NoError(t, f.svc.RemoveUserFromTenant(ctx, "u2", "t1"))
	})

	t.Run("membership missing", func(t *testing.T) {
		f := newFixture(t)
		f.members.On("Deactivate", ctx, "u2", "t1").Return(sql.ErrNoRows)

		assert.ErrorIs(t, f.svc.RemoveUserFromTenant(ctx, "u2", "t1"), ErrMembershipNotFound)
	})
}

func TestTenantService_ValidateTenantAccess(t *testing.T) {
	ctx := context.Background()

	t.Run("active owner has access", func(t *testing.T) {
		f := newFixture(t)
		f.tenants.On("FindByID", ctx, "t1").Return(&model.Tenant{ID: "t1", Active: true}, nil)
		f.members.On("Find", ctx, "u1", "t1").
			Return(&model.Membership{Role: model.RoleOwner, Active: true}, nil)

		decision, err := f.svc.ValidateTenantAccess(ctx, "u1", "t1")

		require.NoError(t, err)
		assert.True(t, decision.HasAccess)
		assert.Equal(t, model.RoleOwner, decision.Role)
	})

	t.Run("deactivated membership is denied", func(t *testing.T) {
		f := newFixture(t)
		f.tenants.On("FindByID", ctx, "t1").Return(&model.Tenant{ID: "t1", Active: true}, nil)
		f.members.On("Find", ctx, "u2", "t1").
			Return(&model.Membership{Role: model.RoleEmployee, Active: false}, nil)

		decision, err := f.svc.ValidateTenantAccess(ctx, "u2", "t1")

		require.NoError(t, err)
		assert.False(t, decision.HasAccess)
		assert.Empty(t, decision.Role)
	})

	t.Run("no membership row is denied, not an error", func(t *testing.T) {
		f := newFixture(t)
		f.tenants.On("FindByID", ctx, "t1").Return(&model.Tenant{ID: "t1", Active: true}, nil)
		f.members.On("Find", ctx, "u3", "t1").Return(nil, sql.ErrNoRows)

		decision, err := f.svc.ValidateTenantAccess(ctx, "u3", "t1")

		require.NoError(t, err)
		assert.False(t, decision.HasAccess)
	})

	t.Run("inactive tenant is denied", func(t *testing.T) {
		f := newFixture(t)
		f.tenants.On("FindByID", ctx, "t1").Return(&model.Tenant{ID: "t1", Active: false}, nil)

		decision, err := f.svc.ValidateTenantAccess(ctx, "u1", "t1")

		require.NoError(t, err)
		assert.False(t, decision.HasAccess)
	})

	t.Run("unknown tenant is denied", func(t *testing.T) {
		f := newFixture(t)
		f.tenants.On("FindByID", ctx, "ghost").Return(nil, sql.ErrNoRows)

		decision, err := f.svc.ValidateTenantAccess(ctx, "u1", "ghost")

		require.NoError(t, err)
		assert.False(t, decision.HasAccess)
	})
}

func TestTenantService_GetUserTenants(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	expected := []model.UserTenant{
		{TenantID: "t1", Name: "Acme", Slug: "acme", Role: model.RoleOwner},
		{TenantID: "t2", Name: "Bolt", Slug: "bolt", Role: model.RoleEmployee},
	}
	f.members.On("ListForAccount", ctx, "u1").Return(expected, nil)

	tenants, err := f.svc.GetUserTenants(ctx, "u1")

	require.NoError(t, err)
	assert.Equal(t, expected, tenants)

	_, err = f.svc.GetUserTenants(ctx, "")
	assert.ErrorIs(t, err, ErrAccountRequired)
}

func TestTenantService_DropTenant(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		f := newFixture(t)
		f.tenants.On("FindByID", ctx, "t1").Return(&model.Tenant{ID: "t1", Active: true}, nil)
		f.registry.On("Close", "t1").Return(nil)
		f.objects.On("PurgeTenant", ctx, "t1").Return(nil)

		f.dbMock.ExpectBegin()
		f.dbMock.ExpectCommit()

		f.members.On("DeleteForTenant", ctx, "t1").Return(nil)
		f.tenants.On("Delete", ctx, "t1").Return(nil)
		f.prov.On("Drop", ctx, mock.Anything, "t1").Return(nil)

		require.NoError(t, f.svc.DropTenant(ctx, "t1"))
		assert.NoError(t, f.dbMock.ExpectationsWereMet())
		f.prov.AssertExpectations(t)
		f.objects.AssertExpectations(t)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		f := newFixture(t)
		f.tenants.On("FindByID", ctx, "ghost").Return(nil, sql.ErrNoRows)

		assert.ErrorIs(t, f.svc.DropTenant(ctx, "ghost"), ErrTenantNotFound)
	})

	t.Run("purge failure aborts before any row is touched", func(t *testing.T) {
		f := newFixture(t)
		f.tenants.On("FindByID", ctx, "t1").Return(&model.Tenant{ID: "t1", Active: true}, nil)
		f.registry.On("Close", "t1").Return(nil)

		purgeErr := errors.New("bucket unavailable")
		f.objects.On("PurgeTenant", ctx, "t1").Return(purgeErr)

		err := f.svc.DropTenant(ctx, "t1")

		assert.ErrorIs(t, err, purgeErr)
		// No transaction was started, so the tenant row is intact.
		assert.NoError(t, f.dbMock.ExpectationsWereMet())
	})

	t.Run("schema drop failure rolls the row deletions back", func(t *testing.T) {
		f := newFixture(t)
		f.tenants.On("FindByID", ctx, "t1").Return(&model.Tenant{ID: "t1", Active: true}, nil)
		f.registry.On("Close", "t1").Return(nil)
		f.objects.On("PurgeTenant", ctx, "t1").Return(nil)

		f.dbMock.ExpectBegin()
		f.dbMock.ExpectRollback()

		f.members.On("DeleteForTenant", ctx, "t1").Return(nil)
		f.tenants.On("Delete", ctx, "t1").Return(nil)
		f.prov.On("Drop", ctx, mock.Anything, "t1").Return(errors.New("schema locked"))

		err := f.svc.DropTenant(ctx, "t1")

		require.Error(t, err)
		assert.NoError(t, f.dbMock.ExpectationsWereMet())
	})
}

func TestTenantService_RepairTenant(t *testing.T) {
	ctx := context.Background()

	tenantConn := func(t *testing.T, tables []string) *database.TenantConn {
		t.Helper()
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })

		rows := sqlmock.NewRows([]string{"table_name"})
		for _, name := range tables {
			rows.AddRow(name)
		}
		mock.ExpectQuery("SELECT table_name FROM information_schema.tables").
			WithArgs("tenant_t1").
			WillReturnRows(rows)

		return database.NewTenantConn("t1", "tenant_t1", db)
	}

	t.Run("complete schema after re-provision", func(t *testing.T) {
		f := newFixture(t)
		f.tenants.On("FindByID", ctx, "t1").Return(&model.Tenant{ID: "t1", Active: true}, nil)
		f.prov.On("Provision", ctx, "t1").Return(nil)
		f.registry.On("Get", ctx, "t1").Return(tenantConn(t, migration.TenantTableNames()), nil)

		assert.NoError(t, f.svc.RepairTenant(ctx, "t1"))
	})

	t.Run("still incomplete", func(t *testing.T) {
		f := newFixture(t)
		f.tenants.On("FindByID", ctx, "t1").Return(&model.Tenant{ID: "t1", Active: true}, nil)
		f.prov.On("Provision", ctx, "t1").Return(nil)
		f.registry.On("Get", ctx, "t1").Return(tenantConn(t, []string{"locations"}), nil)

		err := f.svc.RepairTenant(ctx, "t1")

		require.ErrorIs(t, err, ErrSchemaIncomplete)
		assert.Contains(t, err.Error(), "work_orders")
	})

	t.Run("provision failure", func(t *testing.T) {
		f := newFixture(t)
		f.tenants.On("FindByID", ctx, "t1").Return(&model.Tenant{ID: "t1", Active: true}, nil)

		ddlErr := errors.New("ddl failed")
		f.prov.On("Provision", ctx, "t1").Return(ddlErr)

		err := f.svc.RepairTenant(ctx, "t1")

		var provErr *ProvisioningError
		require.ErrorAs(t, err, &provErr)
		assert.ErrorIs(t, err, ddlErr)
	})
}

func TestTenantService_DeactivateTenant(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		f := newFixture(t)
		f.tenants.On("SetActive", ctx, "t1", false).Return(nil)
		f.registry.On("Close", "t1").Return(nil)

		assert.NoError(t, f.svc.DeactivateTenant(ctx, "t1"))
	})

	t.Run("unknown tenant", func(t *testing.T) {
		f := newFixture(t)
		f.tenants.On("SetActive", ctx, "ghost", false).Return(sql.ErrNoRows)

		assert.ErrorIs(t, f.svc.DeactivateTenant(ctx, "ghost"), ErrTenantNotFound)
	})
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme Manufacturing", "acme-manufacturing"},
		{"  Bolt & Nut Co.  ", "bolt-nut-co"},
		{"ALLCAPS", "allcaps"},
		{"già pronto", "gi-pronto"},
		{"---", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), tt.in)
	}
}
