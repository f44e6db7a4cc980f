package shapefile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
)

// WriteCounties writes counties as a polygon shapefile with a single name
// attribute and a .prj sidecar. Geometry is written as given, so callers
// project it first when prjWKT is not geographic.
func WriteCounties(path, nameField string, counties []domain.County, prjWKT string) error {
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return fmt.Errorf("create shapefile %s: %w", path, err)
	}
	if err := w.SetFields([]shp.Field{shp.StringField(nameField, 50)}); err != nil {
		w.Close()
		return fmt.Errorf("set shapefile fields: %w", err)
	}

	for _, c := range counties {
		parts := shapeParts(c.Geometry)
		if len(parts) == 0 {
			continue
		}
		poly := shp.Polygon(*shp.NewPolyLine(parts))
		n := w.Write(&poly)
		if err := w.WriteAttribute(int(n), 0, strings.ToUpper(c.Name)); err != nil {
			w.Close()
			return fmt.Errorf("write attribute for %s: %w", c.Name, err)
		}
	}
	w.Close()

	prj := strings.TrimSuffix(path, filepath.Ext(path)) + ".prj"
	if err := os.WriteFile(prj, []byte(prjWKT), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", prj, err)
	}
	return nil
}

// shapeParts orders rings the way the format expects: outer rings clockwise,
// holes counter-clockwise.
func shapeParts(mp orb.MultiPolygon) [][]shp.Point {
	var parts [][]shp.Point
	for _, poly := range mp {
		for i, ring := range poly {
			want := orb.CW
			if i > 0 {
				want = orb.CCW
			}
			r := ring.Clone()
			if r.Orientation() != want {
				r.Reverse()
			}
			pts := make([]shp.Point, len(r))
			for j, p := range r {
				pts[j] = shp.Point{X: p[0], Y: p[1]}
			}
			parts = append(parts, pts)
		}
	}
	return parts
}
