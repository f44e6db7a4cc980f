package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
)

// rainfallPlan is the set of water years to fetch and the months to keep.
type rainfallPlan struct {
	years    []int
	from, to domain.YearMonth
	trim     bool
}

// planRainfall derives the water years from the wildfire month span, capped
// at the current water year. Explicit bounds replace the span and disable
// trimming.
func planRainfall(joined []domain.JoinedIncident, opts Options) rainfallPlan {
	from, to, ok := domain.MonthSpan(joined)
	current := domain.CurrentWaterYear()

	if opts.StartWaterYear != 0 || opts.EndWaterYear != 0 {
		start, end := opts.StartWaterYear, opts.EndWaterYear
		if end == 0 {
			end = current
		}
		if start == 0 {
			start = end
			if ok {
				start = min(from.WaterYear(), end)
			}
		}
		var years []int
		for y := start; y <= end; y++ {
			years = append(years, y)
		}
		return rainfallPlan{years: years}
	}

	if !ok {
		return rainfallPlan{}
	}
	var years []int
	for _, y := range domain.WaterYearsBetween(from, to) {
		if y <= current {
			years = append(years, y)
		}
	}
	return rainfallPlan{years: years, from: from, to: to, trim: true}
}

func (p *Pipeline) loadRainfall(ctx context.Context, joined []domain.JoinedIncident, counties *domain.CountySet, stations []domain.Station, stats *domain.RunStats) ([]domain.RainfallObservation, error) {
	plan := planRainfall(joined, p.opts)
	stats.WaterYears = plan.years
	if len(plan.years) == 0 {
		p.logger.Warn("no water years to fetch, rainfall table will be empty")
		return nil, nil
	}
	p.logger.Info("fetching rainfall", "first_water_year", plan.years[0], "last_water_year", plan.years[len(plan.years)-1])

	var observations []domain.RainfallObservation
	for _, wy := range plan.years {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := p.rainfall.FetchReport(ctx, wy)
		if err != nil {
			return nil, fmt.Errorf("fetch rainfall: %w", err)
		}
		observations = append(observations, domain.ObservationsFromReport(wy, rows)...)
	}

	resolver := domain.NewStationResolver(stations, counties)
	mapped, rs := resolver.AssignCounties(observations)
	if rs.Unmapped > 0 {
		sample := rs.UnmappedStations
		if len(sample) > 10 {
			sample = sample[:10]
		}
		p.logger.Warn("dropping rainfall from stations without a known county",
			"observations", rs.Unmapped, "stations", len(rs.UnmappedStations), "sample", sample)
	}
	if plan.trim {
		mapped = domain.FilterMonths(mapped, plan.from, plan.to)
	}

	stats.RainfallObservations = len(mapped)
	stats.RainfallUnmapped = rs.Unmapped
	p.metrics.RainfallObservations.Add(float64(len(mapped)))
	p.metrics.RainfallUnmapped.Add(float64(rs.Unmapped))
	p.logger.Info("rainfall observations mapped",
		"from_metadata", rs.FromMetadata, "inferred", rs.Inferred, "kept", len(mapped))
	return mapped, nil
}
