package domain

import (
	"cmp"
	"math"
	"slices"
)

type countyMonth struct {
	county string
	month  YearMonth
}

func compareCountyMonth(a, b countyMonth) int {
	if c := cmp.Compare(a.county, b.county); c != 0 {
		return c
	}
	return a.month.Compare(b.month)
}

// AggregateWildfire groups joined incidents by (county, month) into incident
// counts and acres burned.
func AggregateWildfire(incidents []JoinedIncident) []WildfireSummary {
	acres := make(map[countyMonth][]float64)
	for _, inc := range incidents {
		k := countyMonth{county: inc.County, month: MonthOf(inc.Date)}
		acres[k] = append(acres[k], inc.AcresBurned)
	}

	out := make([]WildfireSummary, 0, len(acres))
	for _, k := range sortedKeys(acres) {
		out = append(out, WildfireSummary{
			County:        k.county,
			Month:         k.month,
			IncidentCount: len(acres[k]),
			AcresBurned:   round2(stableSum(acres[k])),
		})
	}
	return out
}

// AggregateRainfall sums station observations by (county, month). A county
// and month without observations produces no row.
func AggregateRainfall(obs []RainfallObservation) []RainfallSummary {
	precip := make(map[countyMonth][]float64)
	for _, o := range obs {
		k := countyMonth{county: o.County, month: o.Month}
		precip[k] = append(precip[k], o.PrecipIn)
	}

	out := make([]RainfallSummary, 0, len(precip))
	for _, k := range sortedKeys(precip) {
		out = append(out, RainfallSummary{
			County:   k.county,
			Month:    k.month,
			PrecipIn: round2(stableSum(precip[k])),
		})
	}
	return out
}

// MergeAnalysis outer-joins the two summaries on (county, month). Missing
// values are zero.
func MergeAnalysis(wildfire []WildfireSummary, rainfall []RainfallSummary) []AnalysisRow {
	rows := make(map[countyMonth]*AnalysisRow, len(wildfire)+len(rainfall))
	get := func(k countyMonth) *AnalysisRow {
		r, ok := rows[k]
		if !ok {
			r = &AnalysisRow{County: k.county, Month: k.month}
			rows[k] = r
		}
		return r
	}
	for _, w := range wildfire {
		r := get(countyMonth{county: w.County, month: w.Month})
		r.IncidentCount += w.IncidentCount
		r.AcresBurned = round2(r.AcresBurned + w.AcresBurned)
	}
	for _, p := range rainfall {
		r := get(countyMonth{county: p.County, month: p.Month})
		r.PrecipIn = round2(r.PrecipIn + p.PrecipIn)
	}

	out := make([]AnalysisRow, 0, len(rows))
	for _, k := range sortedKeys(rows) {
		out = append(out, *rows[k])
	}
	return out
}

// YearlyIncidentCounts counts incidents per calendar year of their creation date.
func YearlyIncidentCounts(incidents []Incident) []YearlyCount {
	counts := make(map[int]int)
	for _, inc := range incidents {
		counts[inc.Date.Year()]++
	}
	out := make([]YearlyCount, 0, len(counts))
	for y, n := range counts {
		out = append(out, YearlyCount{Year: y, IncidentCount: n})
	}
	slices.SortFunc(out, func(a, b YearlyCount) int { return cmp.Compare(a.Year, b.Year) })
	return out
}

// MonthSpan returns the first and last month covered by the joined incidents.
func MonthSpan(incidents []JoinedIncident) (from, to YearMonth, ok bool) {
	for i, inc := range incidents {
		m := MonthOf(inc.Date)
		if i == 0 || m.Compare(from) < 0 {
			from = m
		}
		if i == 0 || m.Compare(to) > 0 {
			to = m
		}
	}
	return from, to, len(incidents) > 0
}

func sortedKeys[V any](m map[countyMonth]V) []countyMonth {
	keys := make([]countyMonth, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareCountyMonth)
	return keys
}

// stableSum adds values in ascending order; float addition is not associative.
func stableSum(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return sum
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
