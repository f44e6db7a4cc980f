// Package cdec fetches monthly precipitation reports from the California Data
// Exchange Center.
package cdec

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/domain"
	"github.com/couchcryptid/calfire-rainfall-etl/internal/observability"
)

// DefaultBaseURL is the public CDEC host.
const DefaultBaseURL = "https://cdec.water.ca.gov"

// Client implements domain.RainfallSource over the CDEC report app.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a CDEC report client.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// FetchReport downloads and parses the PRECIPMON report for waterYear.
func (c *Client) FetchReport(ctx context.Context, waterYear int) ([]domain.RawRainfallRow, error) {
	params := url.Values{"name": {"PRECIPMON." + strconv.Itoa(waterYear)}}
	u := c.baseURL + "/reportapp/javareports?" + params.Encode()

	start := time.Now()
	rows, err := c.doRequest(ctx, u)
	c.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("water year %d: %w", waterYear, err)
	}
	c.metrics.FetchRequests.WithLabelValues("success").Inc()

	c.logger.Info("fetched rainfall report", "water_year", waterYear, "stations", len(rows), "duration", time.Since(start))
	if len(rows) == 0 {
		c.logger.Warn("rainfall report has no station rows", "water_year", waterYear)
	}
	return rows, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]domain.RawRainfallRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cdec request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("cdec error: status %d: %s", resp.StatusCode, body)
	}

	return ParseReport(resp.Body)
}
