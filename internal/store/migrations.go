package store

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// SchemaVersion is the schema version Migrate brings a database to.
const SchemaVersion = 2

type migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial snapshot schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS commission_rules (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL DEFAULT '',
					sales_rep TEXT,
					team TEXT,
					install_partner TEXT,
					state TEXT,
					commission_basis TEXT NOT NULL DEFAULT 'contract',
					agent_commission_pct REAL,
					agent_flat_amount REAL,
					manager_commission_pct REAL,
					manager_flat_amount REAL,
					effective_start TEXT,
					effective_end TEXT,
					is_active INTEGER NOT NULL DEFAULT 1,
					priority INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE TABLE IF NOT EXISTS deals (
					id TEXT PRIMARY KEY,
					customer_name TEXT,
					sales_rep TEXT,
					team TEXT,
					install_partner TEXT,
					company TEXT,
					state TEXT,
					contract_value REAL,
					kw_system REAL,
					net_price_per_watt REAL,
					agent_payout REAL,
					close_date TEXT
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
	{
		Version:     2,
		Description: "Index rule lookup and deal periods",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE INDEX IF NOT EXISTS idx_commission_rules_active_priority ON commission_rules(is_active, priority)`,
				`CREATE INDEX IF NOT EXISTS idx_deals_close_date ON deals(close_date)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// Migrate applies pending migrations, tracking the version in user_version.
func (s *SQLiteSource) Migrate(ctx context.Context) error {
	var currentVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", m.Version, err)
		}

		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}

		s.logger.Info("applied migration",
			zap.String("op", "store.Migrate"),
			zap.Int("version", m.Version),
			zap.String("description", m.Description),
		)
	}

	var finalVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion); err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if finalVersion != SchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", SchemaVersion, finalVersion)
	}
	return nil
}
