// Package weatherbit fetches daily forecasts from the Weatherbit API
// through RapidAPI.
package weatherbit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/weather-forecast-etl/internal/config"
	"github.com/couchcryptid/weather-forecast-etl/internal/domain"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps the size of a forecast response body.
const maxBodyBytes = 4 << 20

// Client implements pipeline.Fetcher against the Weatherbit daily forecast endpoint.
type Client struct {
	apiKey     string
	apiHost    string
	baseURL    string
	units      string
	lang       string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a forecast client from the job configuration.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		apiKey:  cfg.WeatherAPIKey,
		apiHost: cfg.WeatherAPIHost,
		baseURL: cfg.WeatherBaseURL,
		units:   cfg.WeatherUnits,
		lang:    cfg.WeatherLang,
		httpClient: &http.Client{
			Timeout: cfg.WeatherTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.WeatherRateLimit), cfg.WeatherRateBurst),
		logger:  logger,
	}
}

// FetchForecast requests the daily forecast for a configured city.
func (c *Client) FetchForecast(ctx context.Context, city domain.CityConfig) (domain.ForecastResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.ForecastResponse{}, fmt.Errorf("rate limit wait canceled: %w", err)
	}

	params := url.Values{
		"lat":   {strconv.FormatFloat(city.Lat, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(city.Lon, 'f', -1, 64)},
		"units": {c.units},
		"lang":  {c.lang},
	}
	fullURL := c.baseURL + "/forecast/daily?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.ForecastResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.apiHost)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ForecastResponse{}, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.ForecastResponse{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.ForecastResponse{}, fmt.Errorf("weatherbit API error: status %d: %s", resp.StatusCode, truncate(body, 256))
	}
	// Weatherbit answers 204 when it has no data for the coordinates.
	if resp.StatusCode == http.StatusNoContent || len(body) == 0 {
		return domain.ForecastResponse{}, fmt.Errorf("weatherbit API returned no data for %s", city.Name)
	}

	forecast, err := domain.DecodeForecastResponse(body)
	if err != nil {
		return domain.ForecastResponse{}, err
	}

	c.logger.Debug("forecast fetched",
		"city", city.Name,
		"days", len(forecast.Data),
		"duration", time.Since(start),
	)
	return forecast, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
