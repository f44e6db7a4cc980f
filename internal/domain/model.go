package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// Geo is a WGS-84 longitude/latitude pair.
type Geo struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Point returns the location as an orb point (x = lon, y = lat).
func (g Geo) Point() orb.Point {
	return orb.Point{g.Lon, g.Lat}
}

// Incident is one row of the CAL FIRE incident export.
type Incident struct {
	Name        string
	Date        time.Time
	AcresBurned float64
	// Geo is nil when the row carries no usable coordinates.
	Geo *Geo
	// CountyText is the raw incident_county value, possibly comma-separated.
	CountyText string
	// Line is the 1-based line in the source file, for log context.
	Line int
}

// JoinMethod records how an incident was placed in a county.
type JoinMethod string

const (
	JoinPolygon    JoinMethod = "polygon"
	JoinCountyName JoinMethod = "county_name"
)

// JoinedIncident is an incident attributed to exactly one county.
type JoinedIncident struct {
	Incident
	County string
	Method JoinMethod
}

// County is one county boundary in WGS-84 coordinates.
type County struct {
	Name     string
	Geometry orb.MultiPolygon
}

// Station is a CDEC station from the metadata export.
type Station struct {
	ID     string
	Name   string
	County string
}

// RawRainfallRow is one station row of a CDEC monthly precipitation report.
// Values are the cell texts in water-year order, October first.
type RawRainfallRow struct {
	StationID   string
	StationName string
	Values      [12]string
}

// RainfallObservation is one station's precipitation total for one month.
type RainfallObservation struct {
	StationID   string
	StationName string
	County      string
	Month       YearMonth
	PrecipIn    float64
}

// WildfireSummary is one row of wildfire_monthly.csv.
type WildfireSummary struct {
	County        string    `json:"county"`
	Month         YearMonth `json:"year_month"`
	IncidentCount int       `json:"incident_count"`
	AcresBurned   float64   `json:"acres_burned"`
}

// RainfallSummary is one row of rainfall_monthly.csv.
type RainfallSummary struct {
	County   string    `json:"county"`
	Month    YearMonth `json:"year_month"`
	PrecipIn float64   `json:"precip_in"`
}

// AnalysisRow is one row of the merged wildfire/rainfall table.
type AnalysisRow struct {
	County        string    `json:"county"`
	Month         YearMonth `json:"year_month"`
	IncidentCount int       `json:"incident_count"`
	AcresBurned   float64   `json:"acres_burned"`
	PrecipIn      float64   `json:"precip_in"`
}

// YearlyCount is the number of incidents created in one calendar year.
type YearlyCount struct {
	Year          int
	IncidentCount int
}

// Tables bundles the outputs of one run.
type Tables struct {
	Wildfire []WildfireSummary
	Rainfall []RainfallSummary
	Analysis []AnalysisRow
}

// RunStats counts what one run read, placed, and dropped.
type RunStats struct {
	IncidentsRead        int
	IncidentsInvalid     int
	IncidentsJoined      int
	IncidentsUnmatched   int
	RainfallObservations int
	RainfallUnmapped     int
	WaterYears           []int
}

// Run identifies one execution of the job.
type Run struct {
	ID        string
	StartedAt time.Time
	Stats     RunStats
}
