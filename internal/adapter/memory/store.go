// Package memory provides a transactional in-memory Store with the same
// identity and upsert rules as the Postgres schema. It backs DRY_RUN mode
// and pipeline tests.
package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/couchcryptid/weather-forecast-etl/internal/domain"
)

// ErrTxInProgress is returned by Begin while another transaction is open.
var ErrTxInProgress = errors.New("memory store: transaction already in progress")

// ErrTxDone is returned when a finished transaction is used again.
var ErrTxDone = errors.New("memory store: transaction already committed or rolled back")

type recordKey struct {
	cityID int64
	date   string
}

type state struct {
	nextCityID int64
	cities     []domain.City
	records    map[recordKey]domain.DailyWeatherRecord
}

func (s state) clone() state {
	c := state{
		nextCityID: s.nextCityID,
		cities:     append([]domain.City(nil), s.cities...),
		records:    make(map[recordKey]domain.DailyWeatherRecord, len(s.records)),
	}
	for k, v := range s.records {
		c.records[k] = v
	}
	return c
}

// Store holds committed cities and daily records. One transaction may be
// open at a time.
type Store struct {
	mu      sync.Mutex
	state   state
	open    bool
	commits int
}

// New creates an empty Store.
func New() *Store {
	return &Store{state: state{nextCityID: 1, records: map[recordKey]domain.DailyWeatherRecord{}}}
}

// Begin opens a transaction over a snapshot of the committed state.
func (s *Store) Begin(_ context.Context) (domain.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return nil, ErrTxInProgress
	}
	s.open = true
	return &tx{store: s, state: s.state.clone()}, nil
}

// Cities returns the committed cities ordered by ID.
func (s *Store) Cities() []domain.City {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]domain.City(nil), s.state.cities...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Record returns the committed record for a city and forecast date.
func (s *Store) Record(cityID int64, date string) (domain.DailyWeatherRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.state.records[recordKey{cityID: cityID, date: date}]
	return rec, ok
}

// RecordCount returns the number of committed daily records.
func (s *Store) RecordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.records)
}

// Commits returns how many transactions have been committed.
func (s *Store) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

type tx struct {
	store *Store
	state state
	done  bool
}

// roundCoord matches the numeric(10, 7) columns the Postgres schema
// compares on.
func roundCoord(v float64) float64 {
	return math.Round(v*1e7) / 1e7
}

func (t *tx) lookup(lat, lon float64) (int64, bool) {
	lat, lon = roundCoord(lat), roundCoord(lon)
	for _, c := range t.state.cities {
		if c.Latitude == lat && c.Longitude == lon {
			return c.ID, true
		}
	}
	return 0, false
}

func (t *tx) FindCity(ctx context.Context, lat, lon float64) (int64, bool, error) {
	if t.done {
		return 0, false, ErrTxDone
	}
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	id, ok := t.lookup(lat, lon)
	return id, ok, nil
}

func (t *tx) ResolveCity(ctx context.Context, city domain.City) (int64, error) {
	if t.done {
		return 0, ErrTxDone
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if id, ok := t.lookup(city.Latitude, city.Longitude); ok {
		return id, nil
	}
	city.Latitude = roundCoord(city.Latitude)
	city.Longitude = roundCoord(city.Longitude)
	city.ID = t.state.nextCityID
	t.state.nextCityID++
	t.state.cities = append(t.state.cities, city)
	return city.ID, nil
}

func (t *tx) UpsertDailyWeather(ctx context.Context, cityID int64, rec domain.DailyWeatherRecord) error {
	if t.done {
		return ErrTxDone
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !t.hasCity(cityID) {
		return errors.New("memory store: daily_weather.city_id references an unknown city")
	}
	if rec.ForecastDate == "" {
		return errors.New("memory store: daily_weather.forecast_date is required")
	}
	t.state.records[recordKey{cityID: cityID, date: rec.ForecastDate}] = rec
	return nil
}

func (t *tx) hasCity(id int64) bool {
	for _, c := range t.state.cities {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (t *tx) Commit(_ context.Context) error {
	if t.done {
		return ErrTxDone
	}
	t.done = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.state = t.state
	t.store.open = false
	t.store.commits++
	return nil
}

func (t *tx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.open = false
	return nil
}
