package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservationsFromReport(t *testing.T) {
	rows := []RawRainfallRow{{
		StationID:   "BLC",
		StationName: "BLUE CANYON",
		Values:      [12]string{"1.10", "---", "0.00", "5.5", "M", "", "2", "0", "0", "0", "0", "-1"},
	}}

	obs := ObservationsFromReport(2021, rows)

	require.Len(t, obs, 8)
	assert.Equal(t, YearMonth{2020, time.October}, obs[0].Month)
	assert.InDelta(t, 1.10, obs[0].PrecipIn, 1e-9)
	assert.Equal(t, YearMonth{2020, time.December}, obs[1].Month)
	assert.Equal(t, YearMonth{2021, time.January}, obs[2].Month)
	assert.Equal(t, YearMonth{2021, time.April}, obs[3].Month)
	assert.Equal(t, "BLC", obs[0].StationID)
	assert.Empty(t, obs[0].County)
}

func TestObservationsFromReport_NonFinite(t *testing.T) {
	rows := []RawRainfallRow{{
		StationID: "BLC",
		Values:    [12]string{"NaN", "Inf", "+Inf", "-Inf", "0.25"},
	}}

	obs := ObservationsFromReport(2021, rows)

	require.Len(t, obs, 1)
	assert.Equal(t, YearMonth{2021, time.February}, obs[0].Month)
	assert.InDelta(t, 0.25, obs[0].PrecipIn, 1e-9)
}

func TestStationResolver(t *testing.T) {
	counties := NewCountySet([]string{"Placer", "Los Angeles", "Nevada"})
	stations := []Station{
		{ID: "blc", Name: "Blue Canyon", County: "PLACER"},
		{ID: "XYZ", Name: "Somewhere", County: "Atlantis"},
	}
	r := NewStationResolver(stations, counties)

	county, inferred, ok := r.Resolve("BLC", "BLUE CANYON")
	assert.True(t, ok)
	assert.False(t, inferred)
	assert.Equal(t, "Placer", county)

	county, inferred, ok = r.Resolve("LAC", "LOS ANGELES CIVIC CENTER")
	assert.True(t, ok)
	assert.True(t, inferred)
	assert.Equal(t, "Los Angeles", county)

	_, _, ok = r.Resolve("XYZ", "SOMEWHERE")
	assert.False(t, ok, "metadata county outside the boundary set must not be used")
}

func TestStationResolver_AssignCounties(t *testing.T) {
	counties := NewCountySet([]string{"Placer"})
	r := NewStationResolver([]Station{{ID: "BLC", County: "Placer"}}, counties)
	aug := YearMonth{2020, time.August}
	obs := []RainfallObservation{
		{StationID: "BLC", Month: aug, PrecipIn: 1},
		{StationID: "UNK", StationName: "NOWHERE", Month: aug, PrecipIn: 2},
		{StationID: "UNK", StationName: "NOWHERE", Month: YearMonth{2020, time.September}, PrecipIn: 3},
	}

	out, stats := r.AssignCounties(obs)

	require.Len(t, out, 1)
	assert.Equal(t, "Placer", out[0].County)
	assert.Equal(t, 1, stats.FromMetadata)
	assert.Equal(t, 2, stats.Unmapped)
	assert.Equal(t, []string{"UNK"}, stats.UnmappedStations)
}

func TestFilterMonths(t *testing.T) {
	obs := []RainfallObservation{
		{Month: YearMonth{2020, time.July}},
		{Month: YearMonth{2020, time.August}},
		{Month: YearMonth{2020, time.September}},
		{Month: YearMonth{2020, time.October}},
	}

	got := FilterMonths(obs, YearMonth{2020, time.August}, YearMonth{2020, time.September})

	require.Len(t, got, 2)
	assert.Equal(t, time.August, got[0].Month.Month)
}
