package domain

import "context"

// RainfallSource provides the station rows of the CDEC monthly precipitation
// report for one water year.
type RainfallSource interface {
	FetchReport(ctx context.Context, waterYear int) ([]RawRainfallRow, error)
}
