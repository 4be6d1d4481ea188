package persistence

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-ledger/internal/db"
)

// openTestDB подключается к TEST_DATABASE_URL и накатывает миграции.
// Без переменной тест пропускается.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL не задан")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := db.NewPostgres(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(ctx, conn, "../../../migrations"))

	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// uniqueID даёт идентификатор, не пересекающийся с прошлыми прогонами.
func uniqueID(prefix string) string {
	return prefix + "-" + time.Now().UTC().Format("150405.000000000")
}
