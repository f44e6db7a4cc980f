package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
)

// ReadStations loads the CDEC station metadata export. The id column is
// either "id" (with "county") or "name" (with "county_name").
func ReadStations(path string) ([]domain.Station, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open station metadata: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	first, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}
	h := newHeader(first, stationColumn)

	var idCol, countyCol, nameCol string
	switch {
	case h.has("id") && h.has("county"):
		idCol, countyCol = "id", "county"
		if h.has("name") {
			nameCol = "name"
		}
	case h.has("name") && h.has("county_name"):
		idCol, countyCol = "name", "county_name"
	default:
		return nil, fmt.Errorf("%s: %w: need id and county, or name and county_name", path, domain.ErrSchema)
	}
	if nameCol == "" && h.has("station_name") {
		nameCol = "station_name"
	}

	var stations []domain.Station
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		id := h.get(row, idCol)
		if id == "" {
			continue
		}
		st := domain.Station{ID: id, County: h.get(row, countyCol)}
		if nameCol != "" {
			st.Name = h.get(row, nameCol)
		}
		stations = append(stations, st)
	}
	return stations, nil
}

// stationColumn normalizes headers like ` "Elevation (feet)"` to `elevation_`.
func stationColumn(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "(feet)", "")
	return strings.ReplaceAll(s, `"`, "")
}
