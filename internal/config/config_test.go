package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	// Save current env and restore later
	origHost := os.Getenv("DB_HOST")
	defer os.Setenv("DB_HOST", origHost)

	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_MAX_OPEN_CONNS", "20")
	os.Setenv("TENANT_DB_MAX_OPEN_CONNS", "3")
	os.Setenv("TENANT_DB_ACQUIRE_TIMEOUT_SEC", "7")
	os.Setenv("ADMIN_TOKEN", "secret")
	os.Setenv("MINIO_USE_SSL", "true")
	defer func() {
		os.Unsetenv("DB_MAX_OPEN_CONNS")
		os.Unsetenv("TENANT_DB_MAX_OPEN_CONNS")
		os.Unsetenv("TENANT_DB_ACQUIRE_TIMEOUT_SEC")
		os.Unsetenv("ADMIN_TOKEN")
		os.Unsetenv("MINIO_USE_SSL")
	}()

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, 3, cfg.Database.TenantMaxOpenConns)
	assert.Equal(t, 7, cfg.Database.TenantAcquireTimeoutSec)
	assert.Equal(t, "secret", cfg.AdminToken)
	assert.True(t, cfg.MinIO.UseSSL)
}

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("TENANT_DB_MAX_IDLE_CONNS")
	os.Unsetenv("TENANT_DB_CONN_MAX_IDLE_SEC")

	cfg := Load()

	assert.Equal(t, 2, cfg.Database.TenantMaxIdleConns)
	assert.Equal(t, 120, cfg.Database.TenantConnMaxIdleSec)
	assert.Equal(t, "5432", cfg.Database.Port)
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "not-a-bool")
	assert.False(t, getEnvBool(key, false))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "42")
	assert.Equal(t, 42, getEnvInt(key, 1))

	os.Setenv(key, "not-a-number")
	assert.Equal(t, 1, getEnvInt(key, 1))

	os.Unsetenv(key)
	assert.Equal(t, 1, getEnvInt(key, 1))
}
