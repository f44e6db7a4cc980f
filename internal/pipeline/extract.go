package pipeline

import (
	"log/slog"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/adapter/csvio"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/adapter/shapefile"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
)

// FileSource reads the job inputs from local files.
type FileSource struct {
	IncidentsPath string
	ShapefilePath string
	NameField     string
	StationsPath  string
	Logger        *slog.Logger
}

func (f FileSource) Incidents() (IncidentBatch, error) {
	incidents, stats, err := csvio.ReadIncidents(f.IncidentsPath)
	if err != nil {
		return IncidentBatch{}, err
	}
	if stats.Invalid > 0 {
		f.Logger.Warn("dropped invalid incident rows", "path", f.IncidentsPath, "invalid", stats.Invalid, "rows", stats.Rows)
	}
	f.Logger.Debug("incidents read", "rows", stats.Rows, "located", stats.Located)
	return IncidentBatch{Incidents: incidents, Invalid: stats.Invalid}, nil
}

func (f FileSource) Counties() ([]domain.County, error) {
	layer, err := shapefile.ReadCounties(f.ShapefilePath, f.NameField, f.Logger)
	if err != nil {
		return nil, err
	}
	f.Logger.Info("county boundaries loaded",
		"counties", len(layer.Counties), "crs", layer.CRS.Name(), "skipped_records", layer.Skipped)
	return layer.Counties, nil
}

func (f FileSource) Stations() ([]domain.Station, error) {
	return csvio.ReadStations(f.StationsPath)
}
