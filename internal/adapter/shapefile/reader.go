// Package shapefile loads county boundary polygons from ESRI shapefiles.
package shapefile

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/geo"
	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
)

// DefaultNameField is the county name attribute of the CAL FIRE cnty19_1 layer.
const DefaultNameField = "COUNTY_NAM"

// Layer is the result of reading a county shapefile.
type Layer struct {
	Counties []domain.County
	CRS      geo.CRS
	// CRSAssumed is true when no .prj was found and WGS-84 was assumed.
	CRSAssumed bool
	// Skipped counts records without polygon geometry or without a name.
	Skipped int
}

// ReadCounties reads every polygon record of the shapefile at path, names it
// from nameField, and reprojects it to WGS-84 according to the .prj sidecar.
func ReadCounties(path, nameField string, logger *slog.Logger) (Layer, error) {
	if _, err := os.Stat(path); err != nil {
		return Layer{}, fmt.Errorf("county shapefile %s: %w", path, err)
	}

	if _, err := attributeFile(path); err != nil {
		return Layer{}, fmt.Errorf("county shapefile attributes: %w", err)
	}

	crs, assumed, err := readCRS(path)
	if err != nil {
		return Layer{}, fmt.Errorf("county shapefile %s: %w", path, err)
	}
	if assumed {
		logger.Warn("no .prj found next to shapefile, assuming WGS 84", "path", path)
	}

	r, err := shp.Open(path)
	if err != nil {
		return Layer{}, fmt.Errorf("open county shapefile %s: %w", path, err)
	}
	defer r.Close()

	fieldIdx, err := findField(r.Fields(), nameField)
	if err != nil {
		return Layer{}, fmt.Errorf("county shapefile %s: %w", path, err)
	}

	layer := Layer{CRS: crs, CRSAssumed: assumed}
	for r.Next() {
		n, shape := r.Shape()
		name := domain.NormalizeCounty(strings.Trim(r.ReadAttribute(n, fieldIdx), " \x00"))
		mp := toMultiPolygon(shape)
		if name == "" || len(mp) == 0 {
			layer.Skipped++
			logger.Debug("skipping shapefile record", "record", n, "name", name, "polygons", len(mp))
			continue
		}

		wgs, err := geo.UnprojectMultiPolygon(mp, crs)
		if err != nil {
			return Layer{}, fmt.Errorf("reproject county %s: %w", name, err)
		}
		layer.Counties = append(layer.Counties, domain.County{Name: name, Geometry: wgs})
	}
	if err := r.Err(); err != nil {
		return Layer{}, fmt.Errorf("read county shapefile %s: %w", path, err)
	}
	if len(layer.Counties) == 0 {
		return Layer{}, fmt.Errorf("county shapefile %s: %w", path, domain.ErrNoCounties)
	}
	return layer, nil
}

func readCRS(shpPath string) (geo.CRS, bool, error) {
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	for _, ext := range []string{".prj", ".PRJ"} {
		data, err := os.ReadFile(base + ext)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		crs, err := geo.ParsePRJ(string(data))
		if err != nil {
			return nil, false, err
		}
		return crs, false, nil
	}
	return geo.WGS84, true, nil
}

// attributeFile returns the .dbf next to shpPath. go-shp opens it silently, so
// a missing file would otherwise surface as a layer without fields.
func attributeFile(shpPath string) (string, error) {
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	var firstErr error
	for _, ext := range []string{".dbf", ".DBF"} {
		_, err := os.Stat(base + ext)
		if err == nil {
			return base + ext, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return "", firstErr
}

func findField(fields []shp.Field, name string) (int, error) {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.Trim(f.String(), " \x00")
		if strings.EqualFold(names[i], name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: name field %q not found (fields: %s)", domain.ErrSchema, name, strings.Join(names, ", "))
}

// toMultiPolygon splits shapefile parts into rings. Clockwise rings start a
// new polygon; counter-clockwise rings are holes of the preceding polygon.
func toMultiPolygon(shape shp.Shape) orb.MultiPolygon {
	var parts []int32
	var points []shp.Point
	switch s := shape.(type) {
	case *shp.Polygon:
		parts, points = s.Parts, s.Points
	case *shp.PolygonZ:
		parts, points = s.Parts, s.Points
	case *shp.PolygonM:
		parts, points = s.Parts, s.Points
	default:
		return nil
	}

	var mp orb.MultiPolygon
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || end > int32(len(points)) || end-start < 4 {
			continue
		}
		ring := make(orb.Ring, 0, end-start)
		for _, p := range points[start:end] {
			ring = append(ring, orb.Point{p.X, p.Y})
		}
		if ring.Orientation() == orb.CCW && len(mp) > 0 {
			last := len(mp) - 1
			mp[last] = append(mp[last], ring)
			continue
		}
		mp = append(mp, orb.Polygon{ring})
	}
	return mp
}
