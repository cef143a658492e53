package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the
// application expects. If the database cannot be migrated to this
// version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: customers, transactions, cases",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS customers (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					account_number TEXT UNIQUE NOT NULL,
					occupation TEXT,
					stated_income REAL DEFAULT 0,
					customer_since DATETIME
				)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					hash TEXT UNIQUE NOT NULL,
					customer_id TEXT,
					amount REAL NOT NULL,
					date DATETIME NOT NULL,
					source_account TEXT,
					destination_account TEXT,
					transaction_type TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (customer_id) REFERENCES customers(id)
				)`,
				`CREATE INDEX idx_transactions_customer ON transactions(customer_id)`,
				`CREATE INDEX idx_transactions_date ON transactions(date)`,

				`CREATE TABLE IF NOT EXISTS sar_cases (
					id TEXT PRIMARY KEY,
					customer_id TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'pending',
					risk_score REAL,
					typologies TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (customer_id) REFERENCES customers(id)
				)`,
				`CREATE INDEX idx_cases_customer ON sar_cases(customer_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Narratives and hash-chained audit trail",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS sar_narratives (
					id TEXT PRIMARY KEY,
					case_id TEXT NOT NULL,
					narrative_text TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'draft',
					generated_at DATETIME,
					generation_seconds INTEGER DEFAULT 0
				)`,
				`CREATE INDEX idx_narratives_case ON sar_narratives(case_id)`,

				// logged_at is stored as RFC 3339 text so hash
				// recomputation sees the exact serialized timestamp.
				`CREATE TABLE IF NOT EXISTS audit_trail (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					narrative_id TEXT NOT NULL,
					position INTEGER NOT NULL,
					step_name TEXT NOT NULL,
					data_sources TEXT,
					reasoning TEXT,
					confidence REAL DEFAULT 0,
					previous_hash TEXT NOT NULL,
					current_hash TEXT NOT NULL,
					logged_at TEXT NOT NULL,
					UNIQUE(narrative_id, position)
				)`,
				`CREATE INDEX idx_audit_narrative ON audit_trail(narrative_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Typology-tagged narrative templates",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS sar_templates (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					typologies TEXT,
					content TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate brings the schema up to the expected version.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		slog.Info("Applying migration",
			"version", migration.Version,
			"description", migration.Description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to set schema version %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
