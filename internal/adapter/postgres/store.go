// Package postgres persists cities and daily forecasts with pgx. A run writes
// through a single transaction on one connection.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/weather-forecast-etl/internal/domain"
	"github.com/jackc/pgx/v5"
)

//go:embed schema.sql
var schemaSQL string

const selectCitySQL = `SELECT city_id FROM cities
WHERE latitude = $1::numeric(10, 7) AND longitude = $2::numeric(10, 7)`

const insertCitySQL = `INSERT INTO cities (name, country_code, state_code, latitude, longitude, timezone)
VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, NULLIF($6, ''))
ON CONFLICT (latitude, longitude) DO NOTHING
RETURNING city_id`

var upsertDailyWeatherSQL = buildUpsertSQL(domain.DailyWeatherColumns)

// buildUpsertSQL renders the daily_weather upsert. On a (city_id,
// forecast_date) conflict every listed column is overwritten.
func buildUpsertSQL(columns []string) string {
	placeholders := make([]string, len(columns))
	updates := make([]string, len(columns))
	for i, col := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+3)
		updates[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
	}

	var b strings.Builder
	b.WriteString("INSERT INTO daily_weather (city_id, forecast_date, ")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(")\nVALUES ($1, CAST($2::text AS date), ")
	b.WriteString(strings.Join(placeholders, ", "))
	b.WriteString(")\nON CONFLICT (city_id, forecast_date) DO UPDATE SET\n    ")
	b.WriteString(strings.Join(updates, ",\n    "))
	return b.String()
}

// Store wraps a single Postgres connection.
type Store struct {
	conn   *pgx.Conn
	logger *slog.Logger
}

// Connect opens and pings a connection to databaseURL.
func Connect(ctx context.Context, databaseURL string, logger *slog.Logger) (*Store, error) {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx) //nolint:errcheck // already failing
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("connected to postgres",
		"host", conn.Config().Host,
		"database", conn.Config().Database,
	)
	return &Store{conn: conn, logger: logger}, nil
}

// Close releases the connection.
func (s *Store) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

// EnsureSchema creates the cities and daily_weather tables if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.conn.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Begin opens the run transaction.
func (s *Store) Begin(ctx context.Context) (domain.Tx, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Tx implements domain.Tx on a pgx transaction.
type Tx struct {
	tx pgx.Tx
}

// FindCity looks up an existing city_id without inserting.
func (t *Tx) FindCity(ctx context.Context, lat, lon float64) (int64, bool, error) {
	var id int64
	err := t.tx.QueryRow(ctx, selectCitySQL, lat, lon).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("select city: %w", err)
	}
	return id, true, nil
}

// ResolveCity returns the city_id for the coordinates, inserting the city
// when it is new. An existing row is never updated.
func (t *Tx) ResolveCity(ctx context.Context, city domain.City) (int64, error) {
	id, found, err := t.FindCity(ctx, city.Latitude, city.Longitude)
	if err != nil {
		return 0, err
	}
	if found {
		return id, nil
	}

	err = t.tx.QueryRow(ctx, insertCitySQL,
		city.Name, city.CountryCode, city.StateCode, city.Latitude, city.Longitude, city.Timezone,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("insert city: %w", err)
	}

	// A concurrent writer inserted the same coordinates first.
	if err := t.tx.QueryRow(ctx, selectCitySQL, city.Latitude, city.Longitude).Scan(&id); err != nil {
		return 0, fmt.Errorf("select city after conflict: %w", err)
	}
	return id, nil
}

// UpsertDailyWeather inserts or fully overwrites the record for
// (cityID, rec.ForecastDate).
func (t *Tx) UpsertDailyWeather(ctx context.Context, cityID int64, rec domain.DailyWeatherRecord) error {
	args := make([]any, 0, len(domain.DailyWeatherColumns)+2)
	args = append(args, cityID, rec.ForecastDate)
	args = append(args, rec.Values()...)
	if _, err := t.tx.Exec(ctx, upsertDailyWeatherSQL, args...); err != nil {
		return fmt.Errorf("upsert daily_weather: %w", err)
	}
	return nil
}

func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback is a no-op once the transaction has been committed.
func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}
