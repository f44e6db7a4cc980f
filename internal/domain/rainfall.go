package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ReportMonths is the column order of a CDEC water-year report.
var ReportMonths = [12]time.Month{
	time.October, time.November, time.December,
	time.January, time.February, time.March, time.April,
	time.May, time.June, time.July, time.August, time.September,
}

// ReportMonthColumns are the column names used for raw report tables.
var ReportMonthColumns = [12]string{
	"oct", "nov", "dec", "jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep",
}

// ObservationsFromReport converts the rows of one water-year report into
// per-station monthly observations. Cells that are not a non-negative number
// ("---", "M", blanks) are dropped. County is left empty for [StationResolver].
func ObservationsFromReport(waterYear int, rows []RawRainfallRow) []RainfallObservation {
	obs := make([]RainfallObservation, 0, len(rows)*len(ReportMonths))
	for _, row := range rows {
		for i, cell := range row.Values {
			v, ok := parsePrecip(cell)
			if !ok {
				continue
			}
			obs = append(obs, RainfallObservation{
				StationID:   row.StationID,
				StationName: row.StationName,
				Month:       WaterYearMonth(waterYear, ReportMonths[i]),
				PrecipIn:    v,
			})
		}
	}
	return obs
}

func parsePrecip(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// StationResolver maps CDEC stations to boundary counties.
type StationResolver struct {
	byID     map[string]string
	counties *CountySet
}

// NewStationResolver indexes station metadata against the known counties.
// Metadata entries whose county is not in the set are ignored so that the
// station name can still be tried.
func NewStationResolver(stations []Station, counties *CountySet) *StationResolver {
	r := &StationResolver{byID: make(map[string]string, len(stations)), counties: counties}
	for _, st := range stations {
		id := strings.ToUpper(strings.TrimSpace(st.ID))
		if id == "" {
			continue
		}
		if county, ok := counties.Lookup(st.County); ok {
			r.byID[id] = county
		}
	}
	return r
}

// Resolve returns the county for a station. inferred is true when the county
// came from the station name rather than the metadata.
func (r *StationResolver) Resolve(stationID, stationName string) (county string, inferred, ok bool) {
	if county, ok := r.byID[strings.ToUpper(strings.TrimSpace(stationID))]; ok {
		return county, false, true
	}
	if county, ok := r.counties.Infer(stationName); ok {
		return county, true, true
	}
	return "", false, false
}

// ResolveStats counts how observations were attributed.
type ResolveStats struct {
	FromMetadata int
	Inferred     int
	Unmapped     int
	// UnmappedStations lists distinct station ids that could not be placed.
	UnmappedStations []string
}

// AssignCounties fills the County of each observation and drops those whose
// station cannot be placed in a known county.
func (r *StationResolver) AssignCounties(obs []RainfallObservation) ([]RainfallObservation, ResolveStats) {
	var stats ResolveStats
	seen := make(map[string]bool)
	out := make([]RainfallObservation, 0, len(obs))
	for _, o := range obs {
		county, inferred, ok := r.Resolve(o.StationID, o.StationName)
		if !ok {
			stats.Unmapped++
			if !seen[o.StationID] {
				seen[o.StationID] = true
				stats.UnmappedStations = append(stats.UnmappedStations, o.StationID)
			}
			continue
		}
		if inferred {
			stats.Inferred++
		} else {
			stats.FromMetadata++
		}
		o.County = county
		out = append(out, o)
	}
	return out, stats
}

// FilterMonths keeps observations whose month lies within from..to inclusive.
func FilterMonths(obs []RainfallObservation, from, to YearMonth) []RainfallObservation {
	out := make([]RainfallObservation, 0, len(obs))
	for _, o := range obs {
		if o.Month.Compare(from) < 0 || o.Month.Compare(to) > 0 {
			continue
		}
		out = append(out, o)
	}
	return out
}
