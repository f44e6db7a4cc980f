// Package geo reconciles shapefile coordinate reference systems with WGS-84
// and answers point-in-county queries.
package geo

import (
	"errors"
	"fmt"

	"github.com/im7mortal/UTM"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// ErrUnsupportedCRS is returned for projections the job cannot reconcile.
var ErrUnsupportedCRS = errors.New("unsupported coordinate reference system")

// CRS converts coordinates in a source reference system to WGS-84 lon/lat.
type CRS interface {
	Name() string
	Unproject(p orb.Point) (orb.Point, error)
}

// Geographic is a lon/lat CRS. NAD83 and WGS-84 are treated as identical;
// the datum shift is about a metre.
type Geographic struct {
	name string
}

// WGS84 is the geographic CRS incident coordinates are expressed in.
var WGS84 = Geographic{name: "WGS 84"}

func (g Geographic) Name() string { return g.name }

func (g Geographic) Unproject(p orb.Point) (orb.Point, error) { return p, nil }

// WebMercator is EPSG:3857, common in ArcGIS Online exports.
type WebMercator struct{}

func (WebMercator) Name() string { return "WGS 84 / Pseudo-Mercator" }

func (WebMercator) Unproject(p orb.Point) (orb.Point, error) {
	return project.Mercator.ToWGS84(p), nil
}

// UTMZone is a Universal Transverse Mercator zone. California spans zones 10 and 11.
type UTMZone struct {
	Zone     int
	Northern bool
}

func (u UTMZone) Name() string {
	hemi := "N"
	if !u.Northern {
		hemi = "S"
	}
	return fmt.Sprintf("UTM zone %d%s", u.Zone, hemi)
}

func (u UTMZone) Unproject(p orb.Point) (orb.Point, error) {
	lat, lon, err := UTM.ToLatLon(p[0], p[1], u.Zone, "", u.Northern)
	if err != nil {
		return orb.Point{}, fmt.Errorf("utm zone %d: %w", u.Zone, err)
	}
	return orb.Point{lon, lat}, nil
}

// scaled applies a linear unit factor before unprojecting.
type scaled struct {
	CRS
	toMetres float64
}

func (s scaled) Unproject(p orb.Point) (orb.Point, error) {
	return s.CRS.Unproject(orb.Point{p[0] * s.toMetres, p[1] * s.toMetres})
}

// UnprojectMultiPolygon converts every vertex of mp to WGS-84.
func UnprojectMultiPolygon(mp orb.MultiPolygon, crs CRS) (orb.MultiPolygon, error) {
	out := make(orb.MultiPolygon, 0, len(mp))
	for _, poly := range mp {
		np := make(orb.Polygon, 0, len(poly))
		for _, ring := range poly {
			nr := make(orb.Ring, len(ring))
			for i, pt := range ring {
				q, err := crs.Unproject(pt)
				if err != nil {
					return nil, err
				}
				nr[i] = q
			}
			np = append(np, nr)
		}
		out = append(out, np)
	}
	return out, nil
}

// WKT definitions written next to generated shapefiles.
const (
	WGS84PRJ            = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`
	CaliforniaAlbersPRJ = `PROJCS["NAD_1983_California_Teale_Albers",GEOGCS["GCS_North_American_1983",DATUM["D_North_American_1983",SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Albers"],PARAMETER["False_Easting",0.0],PARAMETER["False_Northing",-4000000.0],PARAMETER["Central_Meridian",-120.0],PARAMETER["Standard_Parallel_1",34.0],PARAMETER["Standard_Parallel_2",40.5],PARAMETER["Latitude_Of_Origin",0.0],UNIT["Meter",1.0]]`
)
