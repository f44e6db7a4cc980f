package cdec

import (
	"context"
	"fmt"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
	"golang.org/x/time/rate"
)

// RateLimitedSource spaces out report requests to the wrapped source.
type RateLimitedSource struct {
	inner   domain.RainfallSource
	limiter *rate.Limiter
}

// NewRateLimitedSource allows at most rps requests per second with no burst.
// A non-positive rps disables pacing.
func NewRateLimitedSource(inner domain.RainfallSource, rps float64) *RateLimitedSource {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &RateLimitedSource{
		inner:   inner,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (r *RateLimitedSource) FetchReport(ctx context.Context, waterYear int) ([]domain.RawRainfallRow, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return r.inner.FetchReport(ctx, waterYear)
}
