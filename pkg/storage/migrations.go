package storage

import (
	"database/sql"
	"fmt"
)

var migrations = []string{
	// Migration 1: Initial schema
	`CREATE TABLE IF NOT EXISTS budgets (
		id                 TEXT PRIMARY KEY,
		user_id            TEXT NOT NULL,
		category           TEXT NOT NULL,
		amount             REAL NOT NULL CHECK(amount >= 0),
		spent              REAL NOT NULL DEFAULT 0.0 CHECK(spent >= 0),
		period             TEXT NOT NULL CHECK(period IN ('MONTHLY', 'QUARTERLY', 'YEARLY')),
		alert_threshold    REAL NOT NULL DEFAULT 80.0 CHECK(alert_threshold BETWEEN 0 AND 100),
		is_active          INTEGER NOT NULL DEFAULT 1,
		last_alert_sent_at DATETIME,
		created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_budgets_active_tuple
		ON budgets(user_id, category, period) WHERE is_active = 1;

	CREATE INDEX IF NOT EXISTS idx_budgets_user ON budgets(user_id);
	CREATE INDEX IF NOT EXISTS idx_budgets_period ON budgets(period);

	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
}

// runMigrations applies pending schema migrations.
func runMigrations(db *sql.DB) error {
	// Ensure migration tracking table exists
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	for i := currentVersion; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("run migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}

	return nil
}
