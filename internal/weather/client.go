package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yegors/metar-reader/internal/observability"
	"github.com/yegors/metar-reader/pkg/logger"
)

// upstream responses larger than this are truncated
const maxResponseBytes = 64 << 10

// Fetcher retrieves raw METAR text for an airport
type Fetcher interface {
	FetchMETAR(ctx context.Context, airportCode string) (string, error)
}

// Client handles HTTP requests to the aviationweather.gov data API
type Client struct {
	config     WeatherConfig
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *logger.Logger
}

// NewClient creates a new weather API client
func NewClient(config WeatherConfig, metrics *observability.Metrics, logger *logger.Logger) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.RequestTimeoutSeconds) * time.Second,
		},
		metrics: metrics,
		logger:  logger.Named("weather-client"),
	}
}

// FetchMETAR fetches the latest raw METAR for the specified airport.
// Failures are returned as *FetchError.
func (c *Client) FetchMETAR(ctx context.Context, airportCode string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(airportCode))
	endpoint := fmt.Sprintf("%s/metar?ids=%s", strings.TrimRight(c.config.APIBaseURL, "/"), url.QueryEscape(code))

	start := time.Now()
	body, err := c.fetchWithRetry(ctx, endpoint, code)
	c.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchesTotal.WithLabelValues("error").Inc()
		return "", newFetchError(err)
	}

	raw := firstReportLine(body)
	if raw == "" {
		c.metrics.FetchesTotal.WithLabelValues("empty").Inc()
		c.logger.Info("No METAR available for airport",
			logger.String("airport", code))
		return "", &FetchError{Message: msgNoMETARFound}
	}

	c.metrics.FetchesTotal.WithLabelValues("success").Inc()
	return raw, nil
}

// firstReportLine returns the first non-blank line of an upstream response
func firstReportLine(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// fetchWithRetry performs the HTTP request with retry logic and exponential backoff
func (c *Client) fetchWithRetry(ctx context.Context, endpoint, airportCode string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoffDuration := time.Duration(500*(1<<uint(attempt-1))) * time.Millisecond
			c.logger.Info("Retrying METAR fetch",
				logger.String("airport", airportCode),
				logger.Int("attempt", attempt),
				logger.Duration("backoff", backoffDuration))

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoffDuration):
			}
		}

		body, err := c.fetchOnce(ctx, endpoint)
		if err == nil {
			if attempt > 0 {
				c.logger.Info("Fetched METAR after retries",
					logger.String("airport", airportCode),
					logger.Int("attempts_needed", attempt+1))
			}
			return body, nil
		}

		lastErr = err
		c.logger.Warn("METAR request failed, may retry",
			logger.String("airport", airportCode),
			logger.Error(err),
			logger.Int("attempt", attempt+1),
			logger.Int("max_attempts", c.config.MaxRetries+1))

		if errors.Is(err, context.Canceled) {
			break
		}
	}

	c.logger.Error("All attempts to fetch METAR failed",
		logger.String("airport", airportCode),
		logger.Error(lastErr),
		logger.Int("max_attempts", c.config.MaxRetries+1))
	return "", lastErr
}

func (c *Client) fetchOnce(ctx context.Context, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("error reading response: %w", err)
	}
	return string(data), nil
}
