// Command validate checks the integrity of a finished ETL output directory:
// table schemas, key uniqueness and ordering, value ranges, consistency of the
// merged analysis table with the two summaries, and optionally agreement with
// the county boundary layer and the SQLite sink.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -dir data/processed \
//	  -shapefile data/raw/CA_Counties.shp \
//	  -sqlite data/processed/etl.db
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/adapter/csvio"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/adapter/shapefile"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// outputs holds the three tables of one run.
type outputs struct {
	wildfire []domain.WildfireSummary
	rainfall []domain.RainfallSummary
	analysis []domain.AnalysisRow
}

func main() {
	dir := flag.String("dir", "", "ETL output directory")
	shp := flag.String("shapefile", "", "county boundary shapefile (optional)")
	nameField := flag.String("name-field", shapefile.DefaultNameField, "county name attribute in the shapefile")
	dbPath := flag.String("sqlite", "", "SQLite database written by the same run (optional)")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*dir, *shp, *nameField, *dbPath))
}

func run(dir, shpPath, nameField, dbPath string) int {
	fmt.Println("=== CAL FIRE / CDEC Output Validation ===")
	fmt.Println()

	// ── Phase 1 loads the tables; later phases need them ──
	out, schema := loadOutputs(dir)
	phases := []*phase{schema}
	if schema.passed() {
		phases = append(phases,
			validateKeys(out),
			validateValues(out),
			validateAnalysis(out),
		)
		if shpPath != "" {
			phases = append(phases, validateCounties(out, shpPath, nameField))
		}
		if dbPath != "" {
			phases = append(phases, validateSQLite(out, dbPath))
		}
	}

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d wildfire, %d rainfall, %d analysis\n",
		len(out.wildfire), len(out.rainfall), len(out.analysis))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Schema ──

func loadOutputs(dir string) (outputs, *phase) {
	p := &phase{name: "Phase 1: Schema (headers, field types)"}
	var out outputs
	var err error

	if out.wildfire, err = csvio.ReadWildfireSummaries(filepath.Join(dir, csvio.WildfireFile)); err != nil {
		p.errorf("%v", err)
	}
	if out.rainfall, err = csvio.ReadRainfallSummaries(filepath.Join(dir, csvio.RainfallFile)); err != nil {
		p.errorf("%v", err)
	}
	if out.analysis, err = csvio.ReadAnalysis(filepath.Join(dir, csvio.AnalysisFile)); err != nil {
		p.errorf("%v", err)
	}
	return out, p
}

// ── Phase 2: Keys ──
// Every table is keyed by (county, year_month), unique and sorted.

func validateKeys(out outputs) *phase {
	p := &phase{name: "Phase 2: Keys (unique, sorted)"}
	checkKeys(p, csvio.WildfireFile, keysOf(out.wildfire, func(r domain.WildfireSummary) key { return key{r.County, r.Month} }))
	checkKeys(p, csvio.RainfallFile, keysOf(out.rainfall, func(r domain.RainfallSummary) key { return key{r.County, r.Month} }))
	checkKeys(p, csvio.AnalysisFile, keysOf(out.analysis, func(r domain.AnalysisRow) key { return key{r.County, r.Month} }))
	return p
}

type key struct {
	county string
	month  domain.YearMonth
}

func (k key) String() string { return k.county + " " + k.month.String() }

func (k key) compare(o key) int {
	switch {
	case k.county < o.county:
		return -1
	case k.county > o.county:
		return 1
	}
	return k.month.Compare(o.month)
}

func keysOf[T any](rows []T, fn func(T) key) []key {
	keys := make([]key, len(rows))
	for i, r := range rows {
		keys[i] = fn(r)
	}
	return keys
}

func checkKeys(p *phase, table string, keys []key) {
	for i, k := range keys {
		if k.county == "" {
			p.errorf("%s row %d: empty county", table, i+1)
		}
		if k.month.IsZero() {
			p.errorf("%s row %d: empty year_month", table, i+1)
		}
		if i == 0 {
			continue
		}
		switch c := keys[i-1].compare(k); {
		case c == 0:
			p.errorf("%s row %d: duplicate key %s", table, i+1, k)
		case c > 0:
			p.errorf("%s row %d: key %s sorts before %s", table, i+1, k, keys[i-1])
		}
	}
}

// ── Phase 3: Values ──

func validateValues(out outputs) *phase {
	p := &phase{name: "Phase 3: Values (ranges)"}
	for i, r := range out.wildfire {
		if r.IncidentCount < 1 {
			p.errorf("%s row %d: incident_count %d < 1", csvio.WildfireFile, i+1, r.IncidentCount)
		}
		if r.AcresBurned < 0 {
			p.errorf("%s row %d: negative acres_burned %v", csvio.WildfireFile, i+1, r.AcresBurned)
		}
	}
	for i, r := range out.rainfall {
		if r.PrecipIn <= 0 {
			p.errorf("%s row %d: precip_in %v is not positive", csvio.RainfallFile, i+1, r.PrecipIn)
		}
	}
	for i, r := range out.analysis {
		if r.IncidentCount < 0 || r.AcresBurned < 0 || r.PrecipIn < 0 {
			p.errorf("%s row %d: negative value in %+v", csvio.AnalysisFile, i+1, r)
		}
	}
	return p
}

// ── Phase 4: Analysis ──
// The analysis table is the outer join of the two summaries.

func validateAnalysis(out outputs) *phase {
	p := &phase{name: "Phase 4: Analysis (merge of summaries)"}
	want := domain.MergeAnalysis(out.wildfire, out.rainfall)
	if diff := cmp.Diff(want, out.analysis, cmpopts.EquateEmpty()); diff != "" {
		p.errorf("analysis does not match merged summaries (-want +got):\n%s", diff)
	}

	total := 0
	for _, r := range out.wildfire {
		total += r.IncidentCount
	}
	merged := 0
	for _, r := range out.analysis {
		merged += r.IncidentCount
	}
	if total != merged {
		p.errorf("incident totals differ: wildfire=%d analysis=%d", total, merged)
	}
	return p
}

// ── Phase 5: Counties ──

func validateCounties(out outputs, shpPath, nameField string) *phase {
	p := &phase{name: "Phase 5: Counties (boundary layer)"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	layer, err := shapefile.ReadCounties(shpPath, nameField, logger)
	if err != nil {
		p.errorf("read boundaries: %v", err)
		return p
	}
	names := make([]string, len(layer.Counties))
	for i, c := range layer.Counties {
		names[i] = c.Name
	}
	set := domain.NewCountySet(names)

	seen := map[string]bool{}
	for _, r := range out.analysis {
		if seen[r.County] {
			continue
		}
		seen[r.County] = true
		if canonical, ok := set.Lookup(r.County); !ok || canonical != r.County {
			p.errorf("county %q is not in the boundary layer", r.County)
		}
	}
	return p
}

// ── Phase 6: SQLite ──

func validateSQLite(out outputs, dbPath string) *phase {
	p := &phase{name: "Phase 6: SQLite (matches CSV tables)"}
	if _, err := os.Stat(dbPath); err != nil {
		p.errorf("%v", err)
		return p
	}

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := sqlite.Open(ctx, dbPath, logger)
	if err != nil {
		p.errorf("open: %v", err)
		return p
	}
	defer store.Close()

	wildfire, err := store.WildfireSummaries(ctx)
	if err != nil {
		p.errorf("wildfire summaries: %v", err)
	} else if diff := cmp.Diff(out.wildfire, wildfire, cmpopts.EquateEmpty()); diff != "" {
		p.errorf("wildfire_monthly differs (-csv +sqlite):\n%s", diff)
	}

	rainfall, err := store.RainfallSummaries(ctx)
	if err != nil {
		p.errorf("rainfall summaries: %v", err)
	} else if diff := cmp.Diff(out.rainfall, rainfall, cmpopts.EquateEmpty()); diff != "" {
		p.errorf("rainfall_monthly differs (-csv +sqlite):\n%s", diff)
	}

	runs, err := store.Runs(ctx)
	switch {
	case err != nil:
		p.errorf("runs: %v", err)
	case len(runs) == 0:
		p.errorf("no run recorded")
	}
	return p
}
