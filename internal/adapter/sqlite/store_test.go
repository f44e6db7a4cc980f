package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ym(y int, m time.Month) domain.YearMonth {
	return domain.YearMonth{Year: y, Month: m}
}

func TestMigrationVersion(t *testing.T) {
	s := setupTestStore(t)

	version, err := s.MigrationVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(migrations), version)

	// Re-running is a no-op.
	require.NoError(t, s.Migrate(context.Background()))
	version, err = s.MigrationVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(migrations), version)
}

func TestPublishReplacesTables(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	ctx := context.Background()
	s := setupTestStore(t)

	first := domain.Tables{
		Wildfire: []domain.WildfireSummary{
			{County: "Butte", Month: ym(2018, time.November), IncidentCount: 1, AcresBurned: 153336},
			{County: "Placer", Month: ym(2022, time.September), IncidentCount: 2, AcresBurned: 76800.25},
		},
		Rainfall: []domain.RainfallSummary{{County: "Placer", Month: ym(2022, time.September), PrecipIn: 1.2}},
		Analysis: []domain.AnalysisRow{{County: "Placer", Month: ym(2022, time.September), IncidentCount: 2, AcresBurned: 76800.25, PrecipIn: 1.2}},
	}
	run1 := domain.Run{
		ID:        "run-1",
		StartedAt: time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC),
		Stats:     domain.RunStats{IncidentsRead: 3, IncidentsJoined: 3, WaterYears: []int{2019, 2022}},
	}
	require.NoError(t, s.Publish(ctx, run1, first))

	second := domain.Tables{
		Wildfire: []domain.WildfireSummary{{County: "Sonoma", Month: ym(2017, time.October), IncidentCount: 4, AcresBurned: 10}},
	}
	run2 := domain.Run{ID: "run-2", StartedAt: time.Date(2024, 3, 1, 11, 30, 0, 0, time.UTC)}
	require.NoError(t, s.Publish(ctx, run2, second))

	wildfire, err := s.WildfireSummaries(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.Wildfire, wildfire)

	rainfall, err := s.RainfallSummaries(ctx)
	require.NoError(t, err)
	assert.Empty(t, rainfall)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, "run-1", runs[1].ID)
	assert.Equal(t, []int{2019, 2022}, runs[1].Stats.WaterYears)
	assert.Equal(t, 3, runs[1].Stats.IncidentsJoined)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), runs[1].FinishedAt)
	assert.Nil(t, runs[0].Stats.WaterYears)
}

func TestPublishRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	good := domain.Tables{
		Wildfire: []domain.WildfireSummary{{County: "Placer", Month: ym(2022, time.September), IncidentCount: 1, AcresBurned: 5}},
	}
	require.NoError(t, s.Publish(ctx, domain.Run{ID: "run-1"}, good))

	dup := domain.Tables{
		Wildfire: []domain.WildfireSummary{
			{County: "Kern", Month: ym(2021, time.July), IncidentCount: 1, AcresBurned: 1},
			{County: "Kern", Month: ym(2021, time.July), IncidentCount: 1, AcresBurned: 1},
		},
	}
	require.Error(t, s.Publish(ctx, domain.Run{ID: "run-2"}, dup))

	wildfire, err := s.WildfireSummaries(ctx)
	require.NoError(t, err)
	assert.Equal(t, good.Wildfire, wildfire)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etl.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := Open(context.Background(), path, logger)
	require.NoError(t, err)
	require.NoError(t, s.Publish(context.Background(), domain.Run{ID: "a"}, domain.Tables{}))
	require.NoError(t, s.Close())

	s, err = Open(context.Background(), path, logger)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Runs(context.Background())
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
