package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/ignatzorin/escrow-ledger/internal/logger"
)

// migrationLockID: ключ pg_advisory_lock, под которым экземпляры сервиса по очереди применяют миграции.
const migrationLockID = 7_312_204

// PoolOptions настройки пула соединений.
type PoolOptions struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

// DefaultPoolOptions: каждая операция реестра держит одно соединение на всю транзакцию.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{MaxOpen: 50, MaxIdle: 10, MaxLifetime: 5 * time.Minute}
}

// NewPostgres создаёт подключение к PostgreSQL с пулом по умолчанию.
func NewPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	return NewPostgresWithPool(ctx, dsn, DefaultPoolOptions())
}

func NewPostgresWithPool(ctx context.Context, dsn string, opts PoolOptions) (*sqlx.DB, error) {
	conn, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: не удалось подключиться: %w", err)
	}

	conn.SetMaxOpenConns(opts.MaxOpen)
	conn.SetMaxIdleConns(opts.MaxIdle)
	conn.SetConnMaxLifetime(opts.MaxLifetime)

	logger.Log.WithField("max_open", opts.MaxOpen).Info("postgres connected")
	return conn, nil
}

type migrationFile struct {
	name     string
	body     string
	checksum string
}

// RunMigrations применяет новые SQL файлы из каталога по порядку имён.
// Уже применённая миграция, содержимое которой изменилось, считается ошибкой.
func RunMigrations(ctx context.Context, conn *sqlx.DB, migrationsDir string) error {
	files, err := readMigrations(migrationsDir)
	if err != nil {
		return err
	}

	// Advisory lock живёт в сессии, поэтому держим одно соединение до конца
	sess, err := conn.Connx(ctx)
	if err != nil {
		return fmt.Errorf("postgres: не удалось получить соединение для миграций: %w", err)
	}
	defer sess.Close()

	if _, err := sess.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return fmt.Errorf("postgres: не удалось взять блокировку миграций: %w", err)
	}
	defer func() {
		if _, err := sess.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationLockID); err != nil {
			logger.Log.WithError(err).Warn("postgres: не удалось снять блокировку миграций")
		}
	}()

	if err := initMigrationsTable(ctx, sess); err != nil {
		return fmt.Errorf("postgres: не удалось инициализировать таблицу миграций: %w", err)
	}

	applied, err := appliedChecksums(ctx, sess)
	if err != nil {
		return fmt.Errorf("postgres: не удалось прочитать применённые миграции: %w", err)
	}

	for _, m := range files {
		if sum, ok := applied[m.name]; ok {
			if sum != m.checksum {
				return fmt.Errorf("postgres: миграция %s изменена после применения", m.name)
			}
			continue
		}

		if err := applyMigration(ctx, sess, m); err != nil {
			return err
		}
		logger.Log.WithField("migration", m.name).Info("migration applied")
	}

	return nil
}

func readMigrations(dir string) ([]migrationFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("postgres: не удалось прочитать каталог миграций: %w", err)
	}

	var files []migrationFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		body, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("postgres: не удалось прочитать миграцию %s: %w", entry.Name(), err)
		}
		sum := sha256.Sum256(body)
		files = append(files, migrationFile{
			name:     entry.Name(),
			body:     string(body),
			checksum: hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return files, nil
}

func initMigrationsTable(ctx context.Context, sess *sqlx.Conn) error {
	_, err := sess.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			checksum   TEXT NOT NULL DEFAULT '',
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func appliedChecksums(ctx context.Context, sess *sqlx.Conn) (map[string]string, error) {
	var rows []struct {
		Name     string `db:"name"`
		Checksum string `db:"checksum"`
	}
	if err := sess.SelectContext(ctx, &rows, `SELECT name, checksum FROM schema_migrations`); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Name] = r.Checksum
	}
	return out, nil
}

// applyMigration выполняет файл и отметку о нём в одной транзакции.
func applyMigration(ctx context.Context, sess *sqlx.Conn, m migrationFile) error {
	tx, err := sess.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: не удалось начать транзакцию для миграции %s: %w", m.name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.body); err != nil {
		return fmt.Errorf("postgres: не удалось выполнить миграцию %s: %w", m.name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name, checksum) VALUES ($1, $2)`, m.name, m.checksum); err != nil {
		return fmt.Errorf("postgres: не удалось отметить миграцию %s: %w", m.name, err)
	}

	return tx.Commit()
}
