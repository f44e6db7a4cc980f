// Command genmock writes a reproducible synthetic input set for the ETL: a
// county boundary shapefile, a CAL FIRE style incident export, CDEC station
// metadata, and a raw rainfall report cache so the job can run offline.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -crs albers
//	RAINFALL_OFFLINE=true INCIDENTS_CSV=data/mock/incidents.csv \
//	  COUNTY_SHAPEFILE=data/mock/counties.shp \
//	  STATION_METADATA_CSV=data/mock/stations.csv \
//	  RAW_RAINFALL_DIR=data/mock/raw_rainfall go run ./cmd/etl
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/adapter/csvio"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/adapter/shapefile"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/geo"
	"github.com/paulmach/orb"
)

// countyCell is a rectangular stand-in for a county boundary.
type countyCell struct {
	name                           string
	minLon, minLat, maxLon, maxLat float64
}

var cells = []countyCell{
	{name: "Shasta", minLon: -123.0, minLat: 40.0, maxLon: -121.0, maxLat: 41.0},
	{name: "Plumas", minLon: -121.0, minLat: 40.0, maxLon: -119.0, maxLat: 41.0},
	{name: "Sonoma", minLon: -123.0, minLat: 38.0, maxLon: -121.0, maxLat: 40.0},
	{name: "Placer", minLon: -121.0, minLat: 38.0, maxLon: -119.0, maxLat: 40.0},
	{name: "San Luis Obispo", minLon: -121.0, minLat: 35.0, maxLon: -119.0, maxLat: 38.0},
	{name: "Los Angeles", minLon: -119.0, minLat: 33.5, maxLon: -117.0, maxLat: 35.0},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for the generated inputs")
	crsName := flag.String("crs", "wgs84", "shapefile coordinate system: wgs84 or albers")
	n := flag.Int("n", 500, "number of incident rows")
	fromWY := flag.Int("from-wy", 2020, "first water year of incident dates")
	toWY := flag.Int("to-wy", 2022, "last water year of incident dates")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *fromWY > *toWY {
		return fmt.Errorf("-from-wy %d is after -to-wy %d", *fromWY, *toWY)
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))

	if err := writeCounties(filepath.Join(*out, "counties.shp"), *crsName); err != nil {
		return fmt.Errorf("writing counties: %w", err)
	}
	log.Printf("wrote %d counties (%s)", len(cells), *crsName)

	rows := incidentRows(rng, *n, *fromWY, *toWY)
	if err := writeCSV(filepath.Join(*out, "incidents.csv"), incidentHeader, rows); err != nil {
		return fmt.Errorf("writing incidents: %w", err)
	}
	log.Printf("wrote %d incidents", len(rows))

	stations := mockStations()
	if err := writeCSV(filepath.Join(*out, "stations.csv"), stationHeader, stationRows(stations)); err != nil {
		return fmt.Errorf("writing stations: %w", err)
	}
	log.Printf("wrote %d stations", len(stations))

	rawDir := filepath.Join(*out, "raw_rainfall")
	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		return err
	}
	// Water years from the first incident month through the last.
	for wy := *fromWY; wy <= *toWY; wy++ {
		path := csvio.RawRainfallPath(rawDir, wy)
		if err := csvio.WriteRawRainfall(path, reportRows(rng, stations)); err != nil {
			return fmt.Errorf("writing rainfall report %d: %w", wy, err)
		}
		log.Printf("wrote %s", path)
	}
	return nil
}

func writeCounties(path, crsName string) error {
	var project func(orb.Point) orb.Point
	prj := geo.WGS84PRJ
	switch strings.ToLower(crsName) {
	case "wgs84":
		project = func(p orb.Point) orb.Point { return p }
	case "albers":
		al, err := geo.NewAlbers(geo.CaliforniaAlbers)
		if err != nil {
			return err
		}
		project = al.Project
		prj = geo.CaliforniaAlbersPRJ
	default:
		return fmt.Errorf("unknown -crs %q", crsName)
	}

	counties := make([]domain.County, 0, len(cells))
	for _, c := range cells {
		// Densify edges so projected boundaries stay close to the graticule.
		var ring orb.Ring
		corners := []orb.Point{
			{c.minLon, c.minLat}, {c.minLon, c.maxLat}, {c.maxLon, c.maxLat}, {c.maxLon, c.minLat},
		}
		for i, from := range corners {
			to := corners[(i+1)%len(corners)]
			for step := range 10 {
				f := float64(step) / 10
				ring = append(ring, project(orb.Point{
					from[0] + f*(to[0]-from[0]),
					from[1] + f*(to[1]-from[1]),
				}))
			}
		}
		ring = append(ring, ring[0])
		counties = append(counties, domain.County{
			Name:     strings.ToUpper(c.name),
			Geometry: orb.MultiPolygon{{ring}},
		})
	}
	return shapefile.WriteCounties(path, shapefile.DefaultNameField, counties, prj)
}

var incidentHeader = []string{
	csvio.ColIncidentName, csvio.ColIncidentDate, csvio.ColAcresBurned,
	csvio.ColLongitude, csvio.ColLatitude, csvio.ColCounty,
}

var fireNames = []string{"Creek", "Ridge", "Canyon", "Oak", "Pine", "Valley", "River", "Butte", "Grove", "Hill"}

// incidentRows mixes located rows with the awkward cases the ETL has to
// handle: missing coordinates, multi-county text, offshore points, unknown
// counties, and unparseable rows.
func incidentRows(rng *rand.Rand, n, fromWY, toWY int) [][]string {
	start := time.Date(fromWY-1, time.October, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(toWY, time.October, 1, 0, 0, 0, 0, time.UTC)
	days := int(end.Sub(start).Hours() / 24)

	rows := make([][]string, 0, n)
	for i := range n {
		c := cells[rng.IntN(len(cells))]
		date := start.AddDate(0, 0, rng.IntN(days))
		name := fmt.Sprintf("%s %d", fireNames[rng.IntN(len(fireNames))], i+1)
		acres := strconv.FormatFloat(float64(rng.IntN(500000))/100, 'f', -1, 64)
		lon := c.minLon + rng.Float64()*(c.maxLon-c.minLon)
		lat := c.minLat + rng.Float64()*(c.maxLat-c.minLat)
		county := c.name

		row := []string{name, date.Format("2006-01-02"), acres, fmtCoord(lon), fmtCoord(lat), county}
		switch roll := rng.IntN(100); {
		case roll < 8:
			// No coordinates; placed by name.
			row[3], row[4] = "", ""
			row[5] = strings.ToUpper(county) + " County"
		case roll < 12:
			other := cells[rng.IntN(len(cells))].name
			row[3], row[4] = "0", "0"
			row[5] = county + ", " + other
		case roll < 14:
			row[3], row[4] = "-125.5", "37.0"
		case roll < 16:
			row[3], row[4], row[5] = "", "", "Out Of State"
		case roll < 18:
			row[1] = "unknown"
		case roll < 19:
			row[2] = "n/a"
		case roll < 40:
			row[1] = date.Format("1/2/2006")
		}
		rows = append(rows, row)
	}
	return rows
}

func fmtCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 5, 64)
}

var stationHeader = []string{"ID", "Station Name", "County", "Elevation (feet)"}

// mockStations returns two stations per county. The second is left out of the
// metadata file so its county has to be inferred from its name, and one
// station belongs to no county at all.
func mockStations() []domain.Station {
	var stations []domain.Station
	for i, c := range cells {
		stations = append(stations,
			domain.Station{ID: fmt.Sprintf("S%02dA", i), Name: "MOUNT " + strings.ToUpper(c.name[:3]), County: strings.ToUpper(c.name)},
			domain.Station{ID: fmt.Sprintf("S%02dB", i), Name: strings.ToUpper(c.name) + " AIRPORT"},
		)
	}
	return append(stations, domain.Station{ID: "XRM", Name: "REMOTE MESA"})
}

func stationRows(stations []domain.Station) [][]string {
	var rows [][]string
	for i, st := range stations {
		if st.County == "" {
			continue
		}
		rows = append(rows, []string{st.ID, st.Name, st.County, strconv.Itoa(500 + 250*i)})
	}
	return rows
}

func reportRows(rng *rand.Rand, stations []domain.Station) []domain.RawRainfallRow {
	rows := make([]domain.RawRainfallRow, 0, len(stations))
	for _, st := range stations {
		row := domain.RawRainfallRow{StationID: st.ID, StationName: st.Name}
		for m := range row.Values {
			switch {
			case rng.IntN(20) == 0:
				row.Values[m] = "---"
			case m >= 7 && m <= 10 && rng.IntN(2) == 0:
				row.Values[m] = "0.00"
			default:
				row.Values[m] = strconv.FormatFloat(float64(rng.IntN(1200))/100, 'f', 2, 64)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
