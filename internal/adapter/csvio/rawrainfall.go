package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
)

// RawRainfallPath is where the report table for waterYear is cached.
func RawRainfallPath(dir string, waterYear int) string {
	return filepath.Join(dir, "rainfall_raw_"+strconv.Itoa(waterYear)+".csv")
}

func rawRainfallHeader() []string {
	return append([]string{"station_id", "station_name"}, domain.ReportMonthColumns[:]...)
}

// WriteRawRainfall stores a report table as station_id,station_name,oct..sep.
func WriteRawRainfall(path string, rows []domain.RawRainfallRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		rec := make([]string, 0, 2+len(r.Values))
		rec = append(rec, r.StationID, r.StationName)
		rec = append(rec, r.Values[:]...)
		records = append(records, rec)
	}
	return writeFileAtomic(path, rawRainfallHeader(), records)
}

// ReadRawRainfall loads a table written by WriteRawRainfall. Month columns
// may appear in any order; absent months read as blank.
func ReadRawRainfall(path string) ([]domain.RawRainfallRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	first, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}
	h := newHeader(first, lowerTrim)
	if missing := h.missing("station_id", "station_name"); len(missing) > 0 {
		return nil, schemaError(path, missing)
	}

	var rows []domain.RawRainfallRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		row := domain.RawRainfallRow{
			StationID:   h.get(rec, "station_id"),
			StationName: h.get(rec, "station_name"),
		}
		for i, col := range domain.ReportMonthColumns {
			row.Values[i] = h.get(rec, col)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
