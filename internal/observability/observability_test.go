package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("stage complete", "stage", "join")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "stage complete", rec["msg"])
	assert.Equal(t, "join", rec["stage"])
}

func TestNewLogger_TextDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "DEBUG", "text")

	logger.Debug("visible", "county", "Placer")
	assert.Contains(t, buf.String(), "county=Placer")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetricsForTesting()
	m.IncidentsRead.Add(3)
	m.IncidentsJoined.WithLabelValues("polygon").Add(2)
	m.RowsWritten.WithLabelValues("wildfire_monthly").Add(5)
	m.LastRunSuccess.Set(1)

	assert.InDelta(t, 2, testutil.ToFloat64(m.IncidentsJoined.WithLabelValues("polygon")), 0)

	path := filepath.Join(t.TempDir(), "calfire_etl.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "calfire_etl_incidents_read_total 3")
	assert.Contains(t, text, `calfire_etl_incidents_joined_total{method="polygon"} 2`)
	assert.Contains(t, text, `calfire_etl_rows_written_total{table="wildfire_monthly"} 5`)
	assert.Contains(t, text, "calfire_etl_last_run_success 1")
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()
	a.IncidentsUnmatched.Inc()

	assert.InDelta(t, 1, testutil.ToFloat64(a.IncidentsUnmatched), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.IncidentsUnmatched), 0)
}
