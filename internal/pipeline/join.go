package pipeline

import (
	"log/slog"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/geo"
)

// JoinStats counts how incidents were placed.
type JoinStats struct {
	Polygon    int
	CountyName int
	// Unmatched counts incidents that produced no joined record.
	Unmatched int
	// UnmatchedLocated is the part of Unmatched that had coordinates.
	UnmatchedLocated int
}

// Joiner attributes incidents to boundary counties.
type Joiner struct {
	index    *geo.Index
	counties *domain.CountySet
	fallback bool
	logger   *slog.Logger
}

// NewJoiner indexes the county boundaries. With fallback set, incidents
// without coordinates are placed by their incident_county text.
func NewJoiner(counties []domain.County, fallback bool, logger *slog.Logger) *Joiner {
	ix := geo.NewIndex(counties)
	return &Joiner{
		index:    ix,
		counties: domain.NewCountySet(ix.Names()),
		fallback: fallback,
		logger:   logger,
	}
}

// CountySet returns the names of the indexed counties.
func (j *Joiner) CountySet() *domain.CountySet {
	return j.counties
}

// Join places each incident. Located incidents go to the county polygon that
// contains them or are dropped. Others yield one record per known county named
// in their county text, when the fallback is enabled.
func (j *Joiner) Join(incidents []domain.Incident) ([]domain.JoinedIncident, JoinStats) {
	var stats JoinStats
	joined := make([]domain.JoinedIncident, 0, len(incidents))

	for _, inc := range incidents {
		if inc.Geo != nil {
			county, ok := j.index.Locate(inc.Geo.Point())
			if !ok {
				stats.Unmatched++
				stats.UnmatchedLocated++
				j.logger.Debug("incident outside all county boundaries",
					"line", inc.Line, "name", inc.Name, "lon", inc.Geo.Lon, "lat", inc.Geo.Lat)
				continue
			}
			stats.Polygon++
			joined = append(joined, domain.JoinedIncident{Incident: inc, County: county, Method: domain.JoinPolygon})
			continue
		}

		matched := 0
		if j.fallback {
			seen := make(map[string]bool)
			for _, name := range domain.SplitCounties(inc.CountyText) {
				county, ok := j.counties.Lookup(name)
				if !ok || seen[county] {
					continue
				}
				seen[county] = true
				matched++
				joined = append(joined, domain.JoinedIncident{Incident: inc, County: county, Method: domain.JoinCountyName})
			}
		}
		if matched == 0 {
			stats.Unmatched++
			j.logger.Debug("incident has no usable location",
				"line", inc.Line, "name", inc.Name, "county_text", inc.CountyText)
			continue
		}
		stats.CountyName += matched
	}

	j.logger.Info("spatial join complete",
		"polygon", stats.Polygon,
		"county_name", stats.CountyName,
		"unmatched", stats.Unmatched,
		"unmatched_located", stats.UnmatchedLocated,
	)
	return joined, stats
}
