//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/weather-forecast-etl/internal/adapter/postgres"
	"github.com/couchcryptid/weather-forecast-etl/internal/domain"
	"github.com/couchcryptid/weather-forecast-etl/internal/observability"
	"github.com/couchcryptid/weather-forecast-etl/internal/pipeline"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

var raleigh = domain.CityConfig{Name: "Raleigh", Lat: 35.7796, Lon: -78.6382}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startPostgres runs a disposable Postgres container and returns its URL.
func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("weather"),
		tcpostgres.WithUsername("etl"),
		tcpostgres.WithPassword("etl"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start postgres container")

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return url
}

// newStore connects a Store to url and creates the schema.
func newStore(ctx context.Context, t *testing.T, url string) *postgres.Store {
	t.Helper()
	store, err := postgres.Connect(ctx, url, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	require.NoError(t, store.EnsureSchema(ctx))
	return store
}

// staticFetcher returns the same body for every city.
type staticFetcher struct {
	body []byte
}

func (f *staticFetcher) FetchForecast(_ context.Context, _ domain.CityConfig) (domain.ForecastResponse, error) {
	return domain.DecodeForecastResponse(f.body)
}

func forecastBody(t *testing.T, days ...map[string]any) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"city_name":    "Raleigh",
		"country_code": "US",
		"state_code":   "NC",
		"lat":          "35.7796",
		"lon":          "-78.6382",
		"timezone":     "America/New_York",
		"data":         days,
	})
	require.NoError(t, err)
	return body
}

func countRows(ctx context.Context, t *testing.T, conn *pgx.Conn, table string) int {
	t.Helper()
	var n int
	require.NoError(t, conn.QueryRow(ctx, "SELECT count(*) FROM "+table).Scan(&n))
	return n
}

func TestPostgresPipeline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	url := startPostgres(ctx, t)
	store := newStore(ctx, t, url)

	check, err := pgx.Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = check.Close(context.Background()) })

	fetcher := &staticFetcher{body: forecastBody(t,
		map[string]any{
			"datetime": "2024-03-01", "temp": 12.5, "max_temp": 20.1, "min_temp": 6.3,
			"rh": 61, "pop": 40, "wind_spd": 3.2, "wind_gust_spd": 7.9, "wind_dir": 225,
			"weather": map[string]any{"code": 803, "description": "Broken clouds", "icon": "c03d"},
		},
		map[string]any{"datetime": "2024-03-02", "max_temp": 10, "min_temp": 15},
		map[string]any{"temp": 9},
	)}
	p := pipeline.New(fetcher, store, nil, nil, discardLogger(), observability.NewMetricsForTesting())

	t.Run("first run loads accepted days", func(t *testing.T) {
		result, err := p.Run(ctx, []domain.CityConfig{raleigh})
		require.NoError(t, err)
		assert.Equal(t, 2, result.Loaded)
		assert.Equal(t, 1, result.Rejected)

		assert.Equal(t, 1, countRows(ctx, t, check, "cities"))
		assert.Equal(t, 2, countRows(ctx, t, check, "daily_weather"))

		var (
			name, country, state, tz string
			humidity, weatherCode    int
			temp                     float64
			description              string
		)
		require.NoError(t, check.QueryRow(ctx, `
SELECT c.name, c.country_code, c.state_code, c.timezone,
       d.humidity, d.weather_code, d.temp::float8, d.weather_description
FROM daily_weather d JOIN cities c USING (city_id)
WHERE d.forecast_date = '2024-03-01'`).Scan(&name, &country, &state, &tz, &humidity, &weatherCode, &temp, &description))
		assert.Equal(t, "Raleigh", name)
		assert.Equal(t, "US", country)
		assert.Equal(t, "NC", state)
		assert.Equal(t, "America/New_York", tz)
		assert.Equal(t, 61, humidity)
		assert.Equal(t, 803, weatherCode)
		assert.InDelta(t, 12.5, temp, 1e-9)
		assert.Equal(t, "Broken clouds", description)
	})

	t.Run("rerun is idempotent", func(t *testing.T) {
		_, err := p.Run(ctx, []domain.CityConfig{raleigh})
		require.NoError(t, err)
		assert.Equal(t, 1, countRows(ctx, t, check, "cities"))
		assert.Equal(t, 2, countRows(ctx, t, check, "daily_weather"))
	})

	t.Run("upsert overwrites every column", func(t *testing.T) {
		fetcher.body = forecastBody(t, map[string]any{"datetime": "2024-03-01", "temp": 14})
		_, err := p.Run(ctx, []domain.CityConfig{raleigh})
		require.NoError(t, err)

		var temp float64
		var humidity *int
		require.NoError(t, check.QueryRow(ctx,
			`SELECT temp::float8, humidity FROM daily_weather WHERE forecast_date = '2024-03-01'`,
		).Scan(&temp, &humidity))
		assert.InDelta(t, 14.0, temp, 1e-9)
		assert.Nil(t, humidity)
		assert.Equal(t, 2, countRows(ctx, t, check, "daily_weather"))
	})

	t.Run("out-of-range readings are stored with warnings", func(t *testing.T) {
		fetcher.body = forecastBody(t, map[string]any{
			"datetime": "2024-03-04", "uv": 120, "temp": 1500, "wind_spd": 1200, "rh": 1000,
		})
		result, err := p.Run(ctx, []domain.CityConfig{raleigh})
		require.NoError(t, err)
		assert.True(t, result.Committed)
		assert.Equal(t, 1, result.Warned)

		var uv, temp, windSpeed float64
		var humidity int64
		require.NoError(t, check.QueryRow(ctx,
			`SELECT uv, temp, wind_speed, humidity FROM daily_weather WHERE forecast_date = '2024-03-04'`,
		).Scan(&uv, &temp, &windSpeed, &humidity))
		assert.InDelta(t, 120.0, uv, 1e-9)
		assert.InDelta(t, 1500.0, temp, 1e-9)
		assert.InDelta(t, 1200.0, windSpeed, 1e-9)
		assert.Equal(t, int64(1000), humidity)
	})

	t.Run("storage failure rolls back the whole run", func(t *testing.T) {
		fetcher.body = forecastBody(t,
			map[string]any{"datetime": "2024-03-03", "temp": 11},
			map[string]any{"datetime": "2024-02-30", "temp": 11},
		)
		_, err := p.Run(ctx, []domain.CityConfig{raleigh})
		require.ErrorIs(t, err, pipeline.ErrStorage)

		assert.Equal(t, 3, countRows(ctx, t, check, "daily_weather"), "2024-03-03 must not be committed")
	})
}

func TestPostgresResolveCity_NewCoordinates(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	store := newStore(ctx, t, startPostgres(ctx, t))

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	_, found, err := tx.FindCity(ctx, 35.7796, -78.6382)
	require.NoError(t, err)
	assert.False(t, found)

	first, err := tx.ResolveCity(ctx, domain.City{Name: "Raleigh", Latitude: 35.7796, Longitude: -78.6382})
	require.NoError(t, err)
	existing, found, err := tx.FindCity(ctx, 35.77960001, -78.6382)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, first, existing)
	again, err := tx.ResolveCity(ctx, domain.City{Name: "Renamed", Latitude: 35.7796, Longitude: -78.6382})
	require.NoError(t, err)
	other, err := tx.ResolveCity(ctx, domain.City{Name: "Raleigh", Latitude: 35.78, Longitude: -78.64})
	require.NoError(t, err)

	assert.Equal(t, first, again)
	assert.NotEqual(t, first, other)
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Rollback(ctx), "rollback after commit is a no-op")
}
