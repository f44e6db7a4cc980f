// Command yearly prints the number of incidents created per calendar year in
// a CAL FIRE incident export, as CSV on stdout.
//
// Usage:
//
//	go run ./cmd/yearly -csv data/raw/mapdataall.csv
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/adapter/csvio"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	path := flag.String("csv", "", "path to the CAL FIRE incident CSV")
	flag.Parse()

	if *path == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -csv")
	}

	incidents, stats, err := csvio.ReadIncidents(*path)
	if err != nil {
		return err
	}
	log.Printf("read %d rows, %d invalid", stats.Rows, stats.Invalid)

	w := csv.NewWriter(os.Stdout)
	if err := w.Write([]string{"year", "incident_count"}); err != nil {
		return err
	}
	for _, yc := range domain.YearlyIncidentCounts(incidents) {
		if err := w.Write([]string{strconv.Itoa(yc.Year), strconv.Itoa(yc.IncidentCount)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
