// Package domain models CAL FIRE wildfire incidents, CDEC rainfall observations,
// and the monthly per-county summaries derived from them.
//
// # Data Sources
//
// Wildfire incidents come from the CAL FIRE incident map export
// (CALFireMapDataAll.csv). The export is Latin-1 encoded; the columns used here
// are incident_name, incident_dateonly_created, incident_acres_burned,
// incident_longitude, incident_latitude and incident_county. The county column
// may list several counties separated by commas ("Placer, Nevada").
//
// Rainfall comes from the California Data Exchange Center (CDEC) monthly
// precipitation report, published per water year as an HTML table with one row
// per station and one column per month, October first:
//
//	station_id | station_name | oct | nov | dec | jan | ... | sep
//
// Station ids are mapped to counties through the CDEC station metadata export.
// Stations missing from the metadata are matched against county names that
// appear in the station name ("PLACERVILLE" does not match, "LOS ANGELES CIVIC
// CENTER" does).
//
// # Water Years
//
// A water year runs from October 1 of the previous calendar year to
// September 30. Water year 2021 therefore covers 2020-10 through 2021-09:
//
//	oct, nov, dec -> waterYear-1
//	jan ... sep   -> waterYear
//
// # County Names
//
// Every source spells counties differently ("LOS ANGELES", "Los Angeles County",
// "los angeles"). All matching uses [NormalizeCounty], and every summary row
// carries a name taken from the county boundary set. Records that cannot be
// placed in a known county are dropped and counted, never attributed to a
// placeholder county.
//
// # Aggregation
//
// Summaries are keyed by (county, [YearMonth]) and sorted by county then month.
// Sums are computed over values sorted ascending so the output does not depend
// on input order, and rounded to two decimals.
package domain
