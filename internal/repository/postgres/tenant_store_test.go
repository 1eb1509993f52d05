package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantStore_Tables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewTenantStore(db, "tenant_acme")

	rows := sqlmock.NewRows([]string{"table_name"}).
		AddRow("inventory_items").
		AddRow("locations")

	mock.ExpectQuery("SELECT table_name FROM information_schema.tables").
		WithArgs("tenant_acme").
		WillReturnRows(rows)

	tables, err := store.Tables(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"inventory_items", "locations"}, tables)
	assert.Equal(t, "tenant_acme", store.Schema())
}

func TestTenantStore_MissingTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewTenantStore(db, "tenant_acme")

	mock.ExpectQuery("SELECT table_name FROM information_schema.tables").
		WithArgs("tenant_acme").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).
			AddRow("locations").
			AddRow("inventory_items"))

	missing, err := store.MissingTables(context.Background(), []string{"locations", "inventory_items", "work_orders"})

	require.NoError(t, err)
	assert.Equal(t, []string{"work_orders"}, missing)
}

func TestTenantStore_IsProvisioned(t *testing.T) {
	ctx := context.Background()

	t.Run("marker present", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		store := NewTenantStore(db, "tenant_acme")

		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("tenant_acme").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery("SELECT EXISTS \\(SELECT 1 FROM tenant_acme.schema_info\\)").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		provisioned, err := store.IsProvisioned(ctx)
		require.NoError(t, err)
		assert.True(t, provisioned)
	})

	t.Run("marker table absent", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		store := NewTenantStore(db, "tenant_acme")

		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("tenant_acme").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		provisioned, err := store.IsProvisioned(ctx)
		require.NoError(t, err)
		assert.False(t, provisioned)
	})

	t.Run("marker row absent", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		store := NewTenantStore(db, "tenant_acme")

		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("tenant_acme").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery("SELECT EXISTS \\(SELECT 1 FROM tenant_acme.schema_info\\)").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		provisioned, err := store.IsProvisioned(ctx)
		require.NoError(t, err)
		assert.False(t, provisioned)
	})
}
