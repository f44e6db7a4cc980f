package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
)

// Output file names inside the output directory.
const (
	WildfireFile = "wildfire_monthly.csv"
	RainfallFile = "rainfall_monthly.csv"
	AnalysisFile = "wildfire_rainfall_analysis.csv"
)

var (
	wildfireHeader = []string{"county", "year_month", "incident_count", "acres_burned"}
	rainfallHeader = []string{"county", "year_month", "precip_in"}
	analysisHeader = []string{"county", "year_month", "incident_count", "acres_burned", "precip_in"}
)

// Writer commits the output tables to a directory.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a Writer for dir. The directory is created on first write.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

// WriteTables stages every table in a temporary file, then renames them all
// into place. If staging fails, no output file is touched. It returns the rows
// written per file name.
func (w *Writer) WriteTables(t domain.Tables) (map[string]int, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	tables := []struct {
		name    string
		header  []string
		records [][]string
	}{
		{WildfireFile, wildfireHeader, wildfireRecords(t.Wildfire)},
		{RainfallFile, rainfallHeader, rainfallRecords(t.Rainfall)},
		{AnalysisFile, analysisHeader, analysisRecords(t.Analysis)},
	}

	staged := make([]string, 0, len(tables))
	cleanup := func() {
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
	}
	for _, tbl := range tables {
		tmp, err := stage(w.dir, tbl.name, tbl.header, tbl.records)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("write %s: %w", tbl.name, err)
		}
		staged = append(staged, tmp)
	}

	counts := make(map[string]int, len(tables))
	for i, tbl := range tables {
		final := filepath.Join(w.dir, tbl.name)
		if err := os.Rename(staged[i], final); err != nil {
			staged = staged[i:]
			cleanup()
			return nil, fmt.Errorf("commit %s: %w", tbl.name, err)
		}
		counts[tbl.name] = len(tbl.records)
		w.logger.Info("wrote table", "path", final, "rows", len(tbl.records))
	}
	return counts, nil
}

func stage(dir, name string, header []string, records [][]string) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", err
	}
	tmp := f.Name()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := cw.WriteAll(records); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := errors.Join(f.Sync(), f.Close()); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

// writeFileAtomic writes a single CSV file through a temporary sibling.
func writeFileAtomic(path string, header []string, records [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := stage(dir, filepath.Base(path), header, records)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit %s: %w", path, err)
	}
	return nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func wildfireRecords(rows []domain.WildfireSummary) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{r.County, r.Month.String(), strconv.Itoa(r.IncidentCount), formatAmount(r.AcresBurned)}
	}
	return out
}

func rainfallRecords(rows []domain.RainfallSummary) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{r.County, r.Month.String(), formatAmount(r.PrecipIn)}
	}
	return out
}

func analysisRecords(rows []domain.AnalysisRow) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{
			r.County, r.Month.String(), strconv.Itoa(r.IncidentCount),
			formatAmount(r.AcresBurned), formatAmount(r.PrecipIn),
		}
	}
	return out
}
