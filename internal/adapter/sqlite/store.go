// Package sqlite mirrors the latest run's summary tables into a SQLite
// database and keeps a history of runs.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
	_ "modernc.org/sqlite"
)

// Store writes summary tables to SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the database at path and applies migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	s := New(db, logger)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return s, nil
}

// New wraps an open database. Callers must run Migrate.
func New(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Publish replaces the summary tables with this run's tables and records the
// run, all in one transaction.
func (s *Store) Publish(ctx context.Context, run domain.Run, tables domain.Tables) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin publish tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"wildfire_monthly", "rainfall_monthly", "wildfire_rainfall_analysis"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, r := range tables.Wildfire {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO wildfire_monthly (county, year_month, incident_count, acres_burned) VALUES (?, ?, ?, ?)`,
			r.County, r.Month.String(), r.IncidentCount, r.AcresBurned,
		); err != nil {
			return fmt.Errorf("insert wildfire %s %s: %w", r.County, r.Month, err)
		}
	}
	for _, r := range tables.Rainfall {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rainfall_monthly (county, year_month, precip_in) VALUES (?, ?, ?)`,
			r.County, r.Month.String(), r.PrecipIn,
		); err != nil {
			return fmt.Errorf("insert rainfall %s %s: %w", r.County, r.Month, err)
		}
	}
	for _, r := range tables.Analysis {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO wildfire_rainfall_analysis (county, year_month, incident_count, acres_burned, precip_in) VALUES (?, ?, ?, ?, ?)`,
			r.County, r.Month.String(), r.IncidentCount, r.AcresBurned, r.PrecipIn,
		); err != nil {
			return fmt.Errorf("insert analysis %s %s: %w", r.County, r.Month, err)
		}
	}

	st := run.Stats
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, started_at, finished_at, incidents_read, incidents_invalid, incidents_joined,
			incidents_unmatched, rainfall_observations, rainfall_unmapped, water_years)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UTC().Format(time.RFC3339), domain.Now().UTC().Format(time.RFC3339),
		st.IncidentsRead, st.IncidentsInvalid, st.IncidentsJoined, st.IncidentsUnmatched,
		st.RainfallObservations, st.RainfallUnmapped, joinYears(st.WaterYears),
	); err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit publish tx: %w", err)
	}
	s.logger.Info("summaries stored in sqlite",
		"wildfire_rows", len(tables.Wildfire),
		"rainfall_rows", len(tables.Rainfall),
		"analysis_rows", len(tables.Analysis),
	)
	return nil
}

// WildfireSummaries returns the stored wildfire table ordered by county and month.
func (s *Store) WildfireSummaries(ctx context.Context) ([]domain.WildfireSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT county, year_month, incident_count, acres_burned FROM wildfire_monthly ORDER BY county, year_month`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.WildfireSummary
	for rows.Next() {
		var r domain.WildfireSummary
		var ym string
		if err := rows.Scan(&r.County, &ym, &r.IncidentCount, &r.AcresBurned); err != nil {
			return nil, err
		}
		if r.Month, err = domain.ParseYearMonth(ym); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RainfallSummaries returns the stored rainfall table ordered by county and month.
func (s *Store) RainfallSummaries(ctx context.Context) ([]domain.RainfallSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT county, year_month, precip_in FROM rainfall_monthly ORDER BY county, year_month`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RainfallSummary
	for rows.Next() {
		var r domain.RainfallSummary
		var ym string
		if err := rows.Scan(&r.County, &ym, &r.PrecipIn); err != nil {
			return nil, err
		}
		if r.Month, err = domain.ParseYearMonth(ym); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunRecord is one row of the runs table.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Stats      domain.RunStats
}

// Runs returns the recorded runs, most recent first.
func (s *Store) Runs(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at, finished_at, incidents_read, incidents_invalid, incidents_joined,
			incidents_unmatched, rainfall_observations, rainfall_unmapped, water_years
		FROM runs ORDER BY finished_at DESC, started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var started, finished, years string
		st := &r.Stats
		if err := rows.Scan(&r.ID, &started, &finished, &st.IncidentsRead, &st.IncidentsInvalid,
			&st.IncidentsJoined, &st.IncidentsUnmatched, &st.RainfallObservations, &st.RainfallUnmapped, &years); err != nil {
			return nil, err
		}
		if r.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, err
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
			return nil, err
		}
		if st.WaterYears, err = splitYears(years); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func joinYears(years []int) string {
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = strconv.Itoa(y)
	}
	return strings.Join(parts, ",")
}

func splitYears(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var years []int
	for _, p := range strings.Split(s, ",") {
		y, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("parse water years %q: %w", s, err)
		}
		years = append(years, y)
	}
	return years, nil
}
