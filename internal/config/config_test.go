package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/shopledger/internal/errs"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, 10, cfg.DefaultPageSize)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.SeedChart)
}

func TestLoadPostgresRequiresURL(t *testing.T) {
	t.Setenv("STORE_DRIVER", DriverPostgres)
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://localhost/shop")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/shop", cfg.DatabaseURL)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	_, err := Load()
	require.Error(t, err)
}

func TestDefaultRolesValid(t *testing.T) {
	require.NoError(t, DefaultRoles().Validate())
}

func TestRolesValidate(t *testing.T) {
	r := DefaultRoles()
	r.Accounts[RoleCOGS] = "4000"
	err := r.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	r = DefaultRoles()
	delete(r.Accounts, RoleInventory)
	assert.ErrorIs(t, r.Validate(), errs.ErrConfiguration)
}

func TestRolesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	r := DefaultRoles()
	r.Accounts[RoleCash] = "1001"
	require.NoError(t, SaveRoles(path, r))

	got, err := LoadRoles(path)
	require.NoError(t, err)
	assert.Equal(t, "1001", got.Code(RoleCash))
	assert.Equal(t, "5000", got.Code(RoleCOGS))

	role, ok := got.Bound("1200")
	assert.True(t, ok)
	assert.Equal(t, RoleInventory, role)
}

func TestLoadRolesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roles:\n  sales: \"4100\"\n"), 0o644))

	got, err := LoadRoles(path)
	require.NoError(t, err)
	assert.Equal(t, "4100", got.Code(RoleSales))
	assert.Equal(t, "1100", got.Code(RoleReceivable))
}

func TestLoadRolesNotFound(t *testing.T) {
	_, err := LoadRoles(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
