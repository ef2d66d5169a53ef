package domain

import (
	"context"
	"time"
)

// Tx is the storage transaction a run writes through. Nothing written
// through a Tx is visible until Commit; Rollback after Commit is a no-op.
type Tx interface {
	// FindCity returns the ID of an existing city at the coordinates.
	FindCity(ctx context.Context, lat, lon float64) (int64, bool, error)

	// ResolveCity returns the ID of the city with the same latitude and
	// longitude, creating the row when none exists.
	ResolveCity(ctx context.Context, city City) (int64, error)

	// UpsertDailyWeather inserts the record for (cityID, rec.ForecastDate) or
	// overwrites every non-key column of the existing one.
	UpsertDailyWeather(ctx context.Context, cityID int64, rec DailyWeatherRecord) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// RunProgress is a point-in-time view of the current or last run.
type RunProgress struct {
	RunID       string    `json:"run_id,omitempty"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
	CitiesTotal int       `json:"cities_total"`
	CitiesDone  int       `json:"cities_done"`
	Loaded      int       `json:"loaded"`
	Rejected    int       `json:"rejected"`
	Outcome     string    `json:"outcome,omitempty"` // "running", "committed", "rolled_back"
}
