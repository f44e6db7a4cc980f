package domain

import (
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPlacer = "Placer"
	testNevada = "Nevada"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func joined(county string, date time.Time, acres float64) JoinedIncident {
	return JoinedIncident{
		Incident: Incident{Date: date, AcresBurned: acres},
		County:   county,
		Method:   JoinPolygon,
	}
}

func TestAggregateWildfire_PlacerScenario(t *testing.T) {
	incidents := []JoinedIncident{
		joined(testPlacer, day(2020, time.August, 5), 10),
		joined(testPlacer, day(2020, time.August, 17), 5),
		joined(testPlacer, day(2020, time.September, 1), 20),
	}

	got := AggregateWildfire(incidents)

	want := []WildfireSummary{
		{County: testPlacer, Month: YearMonth{2020, time.August}, IncidentCount: 2, AcresBurned: 15},
		{County: testPlacer, Month: YearMonth{2020, time.September}, IncidentCount: 1, AcresBurned: 20},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregateWildfire_SortedByCountyThenMonth(t *testing.T) {
	incidents := []JoinedIncident{
		joined(testPlacer, day(2021, time.January, 2), 1),
		joined(testNevada, day(2020, time.December, 30), 2),
		joined(testPlacer, day(2020, time.July, 4), 3),
	}

	got := AggregateWildfire(incidents)

	require.Len(t, got, 3)
	assert.Equal(t, testNevada, got[0].County)
	assert.Equal(t, "2020-07", got[1].Month.String())
	assert.Equal(t, "2021-01", got[2].Month.String())
}

func TestAggregateWildfire_OrderIndependent(t *testing.T) {
	var incidents []JoinedIncident
	for i := range 200 {
		county := testPlacer
		if i%3 == 0 {
			county = testNevada
		}
		incidents = append(incidents, joined(county, day(2020, time.Month(i%12+1), i%28+1), float64(i)*0.1+0.01))
	}
	want := AggregateWildfire(incidents)

	rng := rand.New(rand.NewPCG(1, 2))
	for range 10 {
		shuffled := slices.Clone(incidents)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		if diff := cmp.Diff(want, AggregateWildfire(shuffled)); diff != "" {
			t.Fatalf("shuffled input changed output (-want +got):\n%s", diff)
		}
	}
}

func TestAggregateRainfall(t *testing.T) {
	aug := YearMonth{2020, time.August}
	obs := []RainfallObservation{
		{StationID: "AAA", County: testPlacer, Month: aug, PrecipIn: 0.111},
		{StationID: "BBB", County: testPlacer, Month: aug, PrecipIn: 0.222},
		{StationID: "CCC", County: testNevada, Month: aug, PrecipIn: 0},
	}

	got := AggregateRainfall(obs)

	want := []RainfallSummary{
		{County: testNevada, Month: aug, PrecipIn: 0},
		{County: testPlacer, Month: aug, PrecipIn: 0.33},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregateRainfall_NoObservationsOmitsRow(t *testing.T) {
	obs := []RainfallObservation{
		{StationID: "AAA", County: testPlacer, Month: YearMonth{2020, time.August}, PrecipIn: 1.5},
	}

	got := AggregateRainfall(obs)

	require.Len(t, got, 1)
	for _, row := range got {
		assert.False(t, row.County == testPlacer && row.Month == YearMonth{2020, time.September},
			"a month without observations must not produce a row")
	}
	assert.Empty(t, AggregateRainfall(nil))
}

func TestAggregateRainfall_OrderIndependent(t *testing.T) {
	var obs []RainfallObservation
	for i := range 120 {
		obs = append(obs, RainfallObservation{
			StationID: "S" + string(rune('A'+i%26)),
			County:    []string{testPlacer, testNevada, "Yuba"}[i%3],
			Month:     YearMonth{2019 + i%2, time.Month(i%12 + 1)},
			PrecipIn:  float64(i%17) * 0.07,
		})
	}
	want := AggregateRainfall(obs)

	rng := rand.New(rand.NewPCG(7, 9))
	shuffled := slices.Clone(obs)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	assert.Equal(t, want, AggregateRainfall(shuffled))
}

func TestMergeAnalysis_OuterJoinZeroFill(t *testing.T) {
	aug := YearMonth{2020, time.August}
	sep := YearMonth{2020, time.September}
	wildfire := []WildfireSummary{
		{County: testPlacer, Month: aug, IncidentCount: 2, AcresBurned: 15},
		{County: testPlacer, Month: sep, IncidentCount: 1, AcresBurned: 20},
	}
	rainfall := []RainfallSummary{
		{County: testPlacer, Month: aug, PrecipIn: 0.5},
		{County: testNevada, Month: aug, PrecipIn: 1.25},
	}

	got := MergeAnalysis(wildfire, rainfall)

	want := []AnalysisRow{
		{County: testNevada, Month: aug, IncidentCount: 0, AcresBurned: 0, PrecipIn: 1.25},
		{County: testPlacer, Month: aug, IncidentCount: 2, AcresBurned: 15, PrecipIn: 0.5},
		{County: testPlacer, Month: sep, IncidentCount: 1, AcresBurned: 20, PrecipIn: 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("analysis mismatch (-want +got):\n%s", diff)
	}
}

func TestYearlyIncidentCounts(t *testing.T) {
	incidents := []Incident{
		{Date: day(2013, time.May, 1)},
		{Date: day(2012, time.June, 1)},
		{Date: day(2013, time.July, 1)},
	}

	got := YearlyIncidentCounts(incidents)

	assert.Equal(t, []YearlyCount{{Year: 2012, IncidentCount: 1}, {Year: 2013, IncidentCount: 2}}, got)
}

func TestMonthSpan(t *testing.T) {
	_, _, ok := MonthSpan(nil)
	assert.False(t, ok)

	from, to, ok := MonthSpan([]JoinedIncident{
		joined(testPlacer, day(2020, time.March, 3), 1),
		joined(testPlacer, day(2019, time.November, 3), 1),
		joined(testPlacer, day(2021, time.February, 3), 1),
	})
	require.True(t, ok)
	assert.Equal(t, YearMonth{2019, time.November}, from)
	assert.Equal(t, YearMonth{2021, time.February}, to)
}
