package sqlite

import (
	"context"
	"fmt"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Monthly summary tables",
		SQL: `
CREATE TABLE IF NOT EXISTS wildfire_monthly (
    county TEXT NOT NULL,
    year_month TEXT NOT NULL,
    incident_count INTEGER NOT NULL,
    acres_burned REAL NOT NULL,
    PRIMARY KEY (county, year_month)
);

CREATE TABLE IF NOT EXISTS rainfall_monthly (
    county TEXT NOT NULL,
    year_month TEXT NOT NULL,
    precip_in REAL NOT NULL,
    PRIMARY KEY (county, year_month)
);

CREATE TABLE IF NOT EXISTS wildfire_rainfall_analysis (
    county TEXT NOT NULL,
    year_month TEXT NOT NULL,
    incident_count INTEGER NOT NULL,
    acres_burned REAL NOT NULL,
    precip_in REAL NOT NULL,
    PRIMARY KEY (county, year_month)
);
`,
	},
	{
		Version:     2,
		Description: "Run history",
		SQL: `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL,
    incidents_read INTEGER NOT NULL,
    incidents_invalid INTEGER NOT NULL,
    incidents_joined INTEGER NOT NULL,
    incidents_unmatched INTEGER NOT NULL,
    rainfall_observations INTEGER NOT NULL,
    rainfall_unmapped INTEGER NOT NULL,
    water_years TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_finished_at ON runs(finished_at);
`,
	},
}

// Migrate applies pending schema migrations, each in its own transaction.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.ensureMigrationsTable(ctx); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		s.logger.Info("applying migration", "version", m.Version, "description", m.Description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

func (s *Store) ensureMigrationsTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at TEXT
		)
	`)
	return err
}

func (s *Store) appliedMigrations(ctx context.Context) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// MigrationVersion returns the highest applied migration.
func (s *Store) MigrationVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}
