package csvio

import (
	"encoding/csv"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
)

// ReadWildfireSummaries loads a wildfire_monthly.csv file.
func ReadWildfireSummaries(path string) ([]domain.WildfireSummary, error) {
	return readTable(path, wildfireHeader, func(rec []string) (domain.WildfireSummary, error) {
		var s domain.WildfireSummary
		var err error
		s.County = rec[0]
		if s.Month, err = domain.ParseYearMonth(rec[1]); err != nil {
			return s, err
		}
		if s.IncidentCount, err = strconv.Atoi(rec[2]); err != nil {
			return s, err
		}
		s.AcresBurned, err = strconv.ParseFloat(rec[3], 64)
		return s, err
	})
}

// ReadRainfallSummaries loads a rainfall_monthly.csv file.
func ReadRainfallSummaries(path string) ([]domain.RainfallSummary, error) {
	return readTable(path, rainfallHeader, func(rec []string) (domain.RainfallSummary, error) {
		var s domain.RainfallSummary
		var err error
		s.County = rec[0]
		if s.Month, err = domain.ParseYearMonth(rec[1]); err != nil {
			return s, err
		}
		s.PrecipIn, err = strconv.ParseFloat(rec[2], 64)
		return s, err
	})
}

// ReadAnalysis loads a wildfire_rainfall_analysis.csv file.
func ReadAnalysis(path string) ([]domain.AnalysisRow, error) {
	return readTable(path, analysisHeader, func(rec []string) (domain.AnalysisRow, error) {
		var r domain.AnalysisRow
		var err error
		r.County = rec[0]
		if r.Month, err = domain.ParseYearMonth(rec[1]); err != nil {
			return r, err
		}
		if r.IncidentCount, err = strconv.Atoi(rec[2]); err != nil {
			return r, err
		}
		if r.AcresBurned, err = strconv.ParseFloat(rec[3], 64); err != nil {
			return r, err
		}
		r.PrecipIn, err = strconv.ParseFloat(rec[4], 64)
		return r, err
	})
}

func readTable[T any](path string, want []string, parse func([]string) (T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	all, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(all) == 0 || !slices.Equal(all[0], want) {
		return nil, fmt.Errorf("%s: %w: header must be %v", path, domain.ErrSchema, want)
	}

	out := make([]T, 0, len(all)-1)
	for i, rec := range all[1:] {
		if len(rec) != len(want) {
			return nil, fmt.Errorf("%s line %d: want %d fields, got %d", path, i+2, len(want), len(rec))
		}
		v, err := parse(rec)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+2, err)
		}
		out = append(out, v)
	}
	return out, nil
}
