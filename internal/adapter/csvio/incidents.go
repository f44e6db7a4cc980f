package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
	"golang.org/x/text/encoding/charmap"
)

// CAL FIRE incident export columns.
const (
	ColIncidentName = "incident_name"
	ColIncidentDate = "incident_dateonly_created"
	ColAcresBurned  = "incident_acres_burned"
	ColLongitude    = "incident_longitude"
	ColLatitude     = "incident_latitude"
	ColCounty       = "incident_county"
)

var incidentDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"1/2/2006",
	"1/2/2006 15:04",
}

// IncidentStats describes what ReadIncidents did with the rows of the file.
type IncidentStats struct {
	Rows    int
	Invalid int
	// Located counts valid rows carrying usable coordinates.
	Located int
}

// ReadIncidents loads the CAL FIRE incident export at path. The file is
// decoded as Latin-1. Rows with an unparseable date or non-numeric acreage are
// dropped and counted in IncidentStats.Invalid.
func ReadIncidents(path string) ([]domain.Incident, IncidentStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, IncidentStats{}, fmt.Errorf("open incidents csv: %w", err)
	}
	defer f.Close()

	incidents, stats, err := DecodeIncidents(f)
	if err != nil {
		return nil, stats, fmt.Errorf("%s: %w", path, err)
	}
	return incidents, stats, nil
}

// DecodeIncidents reads a Latin-1 encoded incident export from r.
func DecodeIncidents(r io.Reader) ([]domain.Incident, IncidentStats, error) {
	var stats IncidentStats

	cr := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, stats, fmt.Errorf("%w: empty file", domain.ErrSchema)
	}
	if err != nil {
		return nil, stats, fmt.Errorf("read header: %w", err)
	}
	h := newHeader(first, lowerTrim)
	if missing := h.missing(ColIncidentDate, ColAcresBurned); len(missing) > 0 {
		return nil, stats, fmt.Errorf("%w: missing columns %v", domain.ErrSchema, missing)
	}
	hasCoords := h.has(ColLongitude) && h.has(ColLatitude)
	if !hasCoords && !h.has(ColCounty) {
		return nil, stats, fmt.Errorf("%w: need %s and %s, or %s", domain.ErrSchema, ColLongitude, ColLatitude, ColCounty)
	}

	var incidents []domain.Incident
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read row: %w", err)
		}
		stats.Rows++
		line, _ := cr.FieldPos(0)

		date, ok := parseIncidentDate(h.get(row, ColIncidentDate))
		if !ok {
			stats.Invalid++
			continue
		}
		acres, ok := parseAmount(h.get(row, ColAcresBurned))
		if !ok || acres < 0 {
			stats.Invalid++
			continue
		}

		inc := domain.Incident{
			Name:        h.get(row, ColIncidentName),
			Date:        date,
			AcresBurned: acres,
			CountyText:  h.get(row, ColCounty),
			Line:        line,
		}
		if hasCoords {
			inc.Geo = parseLocation(h.get(row, ColLongitude), h.get(row, ColLatitude))
		}
		if inc.Geo != nil {
			stats.Located++
		}
		incidents = append(incidents, inc)
	}
	return incidents, stats, nil
}

func parseIncidentDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range incidentDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// parseAmount parses a finite number; NaN and Inf are rejected.
func parseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseLocation returns nil for blank, zero, non-finite, or out-of-range
// coordinates.
func parseLocation(lonText, latText string) *domain.Geo {
	lon, ok := parseAmount(lonText)
	if !ok {
		return nil
	}
	lat, ok := parseAmount(latText)
	if !ok {
		return nil
	}
	if lon == 0 && lat == 0 {
		return nil
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return nil
	}
	return &domain.Geo{Lon: lon, Lat: lat}
}
