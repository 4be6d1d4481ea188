package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("ADMIN_PARTY_IDS", " admin-1, ,admin-2 ")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("LOCK_DRIVER", "local")
	t.Setenv("AMOUNT_DECIMALS", "6")
	t.Setenv("LOCK_TTL", "10s")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, LockLocal, cfg.LockDriver)
	assert.Equal(t, []string{"admin-1", "admin-2"}, cfg.AdminPartyIDs)
	assert.Equal(t, int32(6), cfg.AmountDecimals)
	assert.Equal(t, 10*time.Second, cfg.LockTTL)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.NotEmpty(t, cfg.AllowedOrigins)
}

func TestFromEnv_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("LOCK_DRIVER", "local")
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example")

	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestFromEnv_Drivers(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("LOCK_DRIVER", "local")
	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("LOCK_DRIVER", "redis")
	t.Setenv("REDIS_URL", "")
	_, err = FromEnv()
	assert.Error(t, err)

	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
	assert.Equal(t, LockRedis, cfg.LockDriver)
}

func TestFromEnv_AmountDecimalsRange(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("LOCK_DRIVER", "local")
	t.Setenv("AMOUNT_DECIMALS", "19")
	_, err := FromEnv()
	assert.Error(t, err)
}

func TestGetDatabaseURL_FromParts(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRESQL_HOST", "db")
	t.Setenv("POSTGRESQL_USER", "ledger")
	t.Setenv("POSTGRESQL_PASSWORD", "p@ss")
	t.Setenv("POSTGRESQL_DBNAME", "escrow")
	t.Setenv("POSTGRESQL_PORT", "5433")

	assert.Equal(t, "postgres://ledger:p%40ss@db:5433/escrow?sslmode=disable", getDatabaseURL())
}

func TestParseBalances(t *testing.T) {
	got, err := parseBalances("client-1:1000000, client-2:5")
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"client-1": 1_000_000, "client-2": 5}, got)

	_, err = parseBalances("client-1")
	assert.Error(t, err)

	_, err = parseBalances("client-1:-5")
	assert.Error(t, err)

	got, err = parseBalances("")
	require.NoError(t, err)
	assert.Empty(t, got)
}
