package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/pitchside/pitchside_backend/config"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// NewDriver opens the main database and wraps it in an ent SQL driver.
func NewDriver(cfg config.DatabaseConfig) (*entsql.Driver, error) {
	return NewDriverFromConfig(FromCentralConfig(cfg))
}

func NewDriverFromConfig(cfg Config) (*entsql.Driver, error) {
	db, err := openSQLDB(cfg)
	if err != nil {
		return nil, err
	}
	return entsql.OpenDB(dialect.Postgres, db), nil
}

// Migrate applies every embedded migration that is not yet recorded in
// schema_migrations, in file name order, each in its own transaction.
func Migrate(ctx context.Context, drv *entsql.Driver) error {
	if err := drv.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, []any{}, nil); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		version := strings.TrimSuffix(strings.TrimPrefix(name, "migrations/"), ".sql")

		applied, err := isApplied(ctx, drv, version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		body, err := migrationFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		tx, err := drv.Tx(ctx)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", version, err)
		}
		if err := tx.Exec(ctx, string(body), []any{}, nil); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
		if err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, []any{version}, nil); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", version, err)
		}
		slog.Info("migration applied", "version", version)
	}
	return nil
}

func isApplied(ctx context.Context, drv *entsql.Driver, version string) (bool, error) {
	var rows entsql.Rows
	if err := drv.Query(ctx, `SELECT 1 FROM schema_migrations WHERE version = $1`, []any{version}, &rows); err != nil {
		return false, fmt.Errorf("check migration %s: %w", version, err)
	}
	defer rows.Close()
	return rows.Next(), rows.Err()
}
