package geo

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	projcsRe     = regexp.MustCompile(`^\s*PROJCS\[\s*"([^"]*)"`)
	geogcsRe     = regexp.MustCompile(`^\s*GEOGCS\[\s*"([^"]*)"`)
	projectionRe = regexp.MustCompile(`PROJECTION\[\s*"([^"]+)"`)
	parameterRe  = regexp.MustCompile(`PARAMETER\[\s*"([^"]+)"\s*,\s*([-+0-9.eE]+)\s*\]`)
	spheroidRe   = regexp.MustCompile(`SPHEROID\[\s*"[^"]*"\s*,\s*([0-9.eE+]+)\s*,\s*([0-9.eE+]+)`)
	unitRe       = regexp.MustCompile(`UNIT\[\s*"[^"]*"\s*,\s*([0-9.eE+-]+)`)
	utmZoneRe    = regexp.MustCompile(`(?i)utm[_ ]zone[_ ](\d{1,2})([ns])?`)
)

// ParsePRJ reads an ESRI WKT projection definition (the .prj sidecar of a
// shapefile) and returns the matching CRS. Geographic systems, Albers, UTM
// and Web Mercator are supported.
func ParsePRJ(wkt string) (CRS, error) {
	wkt = strings.TrimSpace(wkt)
	if m := geogcsRe.FindStringSubmatch(wkt); m != nil {
		return Geographic{name: m[1]}, nil
	}

	m := projcsRe.FindStringSubmatch(wkt)
	if m == nil {
		return nil, fmt.Errorf("%w: unrecognized WKT", ErrUnsupportedCRS)
	}
	name := m[1]

	pm := projectionRe.FindStringSubmatch(wkt)
	if pm == nil {
		return nil, fmt.Errorf("%w: %s has no PROJECTION", ErrUnsupportedCRS, name)
	}
	method := normalizeKey(pm[1])
	params := parseParameters(wkt)

	crs, err := crsFor(name, method, params, wkt)
	if err != nil {
		return nil, err
	}
	if f := linearUnit(wkt); f != 1 {
		return scaled{CRS: crs, toMetres: f}, nil
	}
	return crs, nil
}

func crsFor(name, method string, params map[string]float64, wkt string) (CRS, error) {
	switch {
	case strings.Contains(method, "albers"):
		p := AlbersParams{
			Name:              name,
			SemiMajor:         6378137,
			InverseFlattening: 298.257222101,
			StandardParallel1: params["standard_parallel_1"],
			StandardParallel2: params["standard_parallel_2"],
			LatitudeOfOrigin:  firstParam(params, "latitude_of_origin", "latitude_of_center"),
			CentralMeridian:   firstParam(params, "central_meridian", "longitude_of_center"),
			FalseEasting:      params["false_easting"],
			FalseNorthing:     params["false_northing"],
		}
		if s := spheroidRe.FindStringSubmatch(wkt); s != nil {
			p.SemiMajor, _ = strconv.ParseFloat(s[1], 64)
			p.InverseFlattening, _ = strconv.ParseFloat(s[2], 64)
		}
		return NewAlbers(p)

	case strings.Contains(method, "transverse_mercator"):
		z := utmZoneRe.FindStringSubmatch(name)
		if z == nil {
			return nil, fmt.Errorf("%w: transverse mercator %q is not a UTM zone", ErrUnsupportedCRS, name)
		}
		zone, _ := strconv.Atoi(z[1])
		return UTMZone{Zone: zone, Northern: !strings.EqualFold(z[2], "s")}, nil

	case strings.Contains(method, "mercator_auxiliary_sphere"),
		strings.Contains(method, "pseudo_mercator"),
		strings.Contains(method, "mercator") && strings.Contains(strings.ToLower(name), "web_mercator"):
		return WebMercator{}, nil
	}
	return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedCRS, name, method)
}

func parseParameters(wkt string) map[string]float64 {
	params := make(map[string]float64)
	for _, m := range parameterRe.FindAllStringSubmatch(wkt, -1) {
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		params[normalizeKey(m[1])] = v
	}
	return params
}

// linearUnit returns the projected unit in metres. The last UNIT in a PROJCS
// is the linear one; earlier ones belong to the GEOGCS.
func linearUnit(wkt string) float64 {
	all := unitRe.FindAllStringSubmatch(wkt, -1)
	if len(all) < 2 {
		return 1
	}
	v, err := strconv.ParseFloat(all[len(all)-1][1], 64)
	if err != nil || v <= 0 {
		return 1
	}
	return v
}

func firstParam(params map[string]float64, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := params[k]; ok {
			return v
		}
	}
	return 0
}

func normalizeKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}
