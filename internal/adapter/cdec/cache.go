package cdec

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/adapter/csvio"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/observability"
)

// ErrNotCached is returned in offline mode for a water year with no cached report.
var ErrNotCached = errors.New("rainfall report not cached")

// CacheMode selects how CachedSource uses the raw report directory.
type CacheMode int

const (
	// CacheReadThrough serves cached reports and fetches the rest.
	CacheReadThrough CacheMode = iota
	// CacheRefresh always fetches and overwrites the cache.
	CacheRefresh
	// CacheOffline never fetches.
	CacheOffline
)

func (m CacheMode) String() string {
	switch m {
	case CacheRefresh:
		return "refresh"
	case CacheOffline:
		return "offline"
	default:
		return "read-through"
	}
}

// CachedSource keeps every fetched report as rainfall_raw_{year}.csv in dir.
type CachedSource struct {
	inner   domain.RainfallSource
	dir     string
	mode    CacheMode
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedSource creates a disk cache decorator around a report source.
// inner may be nil in offline mode.
func NewCachedSource(inner domain.RainfallSource, dir string, mode CacheMode, metrics *observability.Metrics, logger *slog.Logger) *CachedSource {
	return &CachedSource{inner: inner, dir: dir, mode: mode, metrics: metrics, logger: logger}
}

func (c *CachedSource) FetchReport(ctx context.Context, waterYear int) ([]domain.RawRainfallRow, error) {
	path := csvio.RawRainfallPath(c.dir, waterYear)

	if c.mode != CacheRefresh {
		rows, err := csvio.ReadRawRainfall(path)
		switch {
		case err == nil:
			c.metrics.FetchCache.WithLabelValues("hit").Inc()
			c.logger.Debug("rainfall report served from cache", "water_year", waterYear, "path", path)
			return rows, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("read cached report: %w", err)
		}
		c.metrics.FetchCache.WithLabelValues("miss").Inc()
	}

	if c.mode == CacheOffline || c.inner == nil {
		return nil, fmt.Errorf("water year %d (%s): %w", waterYear, path, ErrNotCached)
	}

	rows, err := c.inner.FetchReport(ctx, waterYear)
	if err != nil {
		return nil, err
	}
	if err := csvio.WriteRawRainfall(path, rows); err != nil {
		return nil, fmt.Errorf("cache rainfall report: %w", err)
	}
	return rows, nil
}
