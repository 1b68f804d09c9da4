package database

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
)

//go:embed migrations/001_initial.up.sql
var initialMigrationSQL string

//go:embed migrations/demo_data.sql
var demoDataSQL string

var requiredTables = []string{
	"users",
	"refresh_tokens",
	"students",
	"staff",
	"fee_payments",
}

func (db *DB) EnsureSchema(ctx context.Context) error {
	if db == nil || db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	exists, err := db.hasAllRequiredTables(ctx)
	if err != nil {
		return fmt.Errorf("check existing tables: %w", err)
	}

	if !exists {
		slog.Info("database schema missing tables; applying initial migration")
		if _, err := db.Pool.Exec(ctx, initialMigrationSQL); err != nil {
			return fmt.Errorf("apply initial migration: %w", err)
		}

		exists, err = db.hasAllRequiredTables(ctx)
		if err != nil {
			return fmt.Errorf("re-check tables after migration: %w", err)
		}

		if !exists {
			return fmt.Errorf("schema initialization incomplete: required tables are still missing")
		}
	}

	slog.Info("database schema ensured")
	return nil
}

// SeedDemoData loads sample students, staff and payments into an empty students table.
func (db *DB) SeedDemoData(ctx context.Context) error {
	var empty bool
	if err := db.Pool.QueryRow(ctx, `SELECT NOT EXISTS (SELECT 1 FROM students)`).Scan(&empty); err != nil {
		return fmt.Errorf("check demo data: %w", err)
	}
	if !empty {
		return nil
	}

	if _, err := db.Pool.Exec(ctx, demoDataSQL); err != nil {
		return fmt.Errorf("load demo data: %w", err)
	}

	slog.Info("demo data loaded")
	return nil
}

func (db *DB) hasAllRequiredTables(ctx context.Context) (bool, error) {
	var count int
	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_name = ANY($1)
	`, requiredTables).Scan(&count)
	if err != nil {
		return false, err
	}

	return count == len(requiredTables), nil
}
