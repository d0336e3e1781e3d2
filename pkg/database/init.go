package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/pitchside/pitchside_backend/config"
)

// InitializeDatabase creates the configured database if it does not exist,
// connecting through the maintenance database "postgres". Run it once before
// the first migration.
func InitializeDatabase(cfg config.DatabaseConfig) error {
	if cfg.DBName == "" {
		return fmt.Errorf("database.dbname is empty")
	}

	admin := FromCentralConfig(cfg)
	admin.DBName = "postgres"

	conn, err := openSQLDB(admin)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres database: %w", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	created, err := createDatabaseIfNotExists(ctx, conn, cfg.DBName)
	if err != nil {
		return fmt.Errorf("failed to create database %q: %w", cfg.DBName, err)
	}
	if created {
		slog.Info("database created", "dbname", cfg.DBName)
	}
	return nil
}

func createDatabaseIfNotExists(ctx context.Context, conn *sql.DB, name string) (bool, error) {
	var exists bool
	err := conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check database: %w", err)
	}
	if exists {
		return false, nil
	}

	// CREATE DATABASE takes no bind parameters.
	if _, err := conn.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
		return false, err
	}
	return true, nil
}
