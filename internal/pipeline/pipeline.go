package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/weather-forecast-etl/internal/domain"
	"github.com/couchcryptid/weather-forecast-etl/internal/observability"
	"github.com/google/uuid"
)

var (
	// ErrFetch marks a city whose forecast could not be fetched. The city is
	// skipped and the run continues.
	ErrFetch = errors.New("fetch forecast")

	// ErrStorage marks a storage failure. The whole run is rolled back.
	ErrStorage = errors.New("storage")
)

// Fetcher retrieves the daily forecast for a configured city.
type Fetcher interface {
	FetchForecast(ctx context.Context, city domain.CityConfig) (domain.ForecastResponse, error)
}

// Store opens the transaction a run writes through.
type Store interface {
	Begin(ctx context.Context) (domain.Tx, error)
}

// Archiver keeps a copy of each raw API response.
type Archiver interface {
	Archive(ctx context.Context, cityName string, payload []byte) error
}

// CityResult reports what happened to one configured city.
type CityResult struct {
	Name     string
	CityID   int64
	Fetched  int
	Loaded   int
	Rejected int
	Warned   int
	Err      error
}

// Result summarizes a run. Counts are only persisted when Committed is true.
type Result struct {
	RunID     string
	Cities    []CityResult
	Loaded    int
	Rejected  int
	Warned    int
	Skipped   int
	Committed bool
}

// Pipeline runs fetch, validate, transform and upsert for every configured city.
type Pipeline struct {
	fetcher  Fetcher
	store    Store
	archiver Archiver
	geocoder domain.Geocoder
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu       sync.Mutex
	progress domain.RunProgress
}

// New creates a Pipeline. archiver and geocoder may be nil to disable raw
// response archiving and geocoding enrichment.
func New(f Fetcher, s Store, a Archiver, g domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		fetcher:  f,
		store:    s,
		archiver: a,
		geocoder: g,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once the current run has processed at least one
// city, or an error describing why the job is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.progress.RunID == "" {
		return errors.New("no run has started yet")
	}
	if p.progress.Outcome == "rolled_back" {
		return errors.New("last run was rolled back")
	}
	if p.progress.CitiesDone == 0 {
		return errors.New("run has not loaded any city yet")
	}
	return nil
}

// Progress returns a snapshot of the current or last run.
func (p *Pipeline) Progress() domain.RunProgress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

// Run processes cities in order inside a single storage transaction. Fetch
// failures skip the city; a storage failure or cancellation rolls back the
// whole run and is returned as an error.
func (p *Pipeline) Run(ctx context.Context, cities []domain.CityConfig) (Result, error) {
	result := Result{RunID: uuid.NewString()}
	logger := p.logger.With("run_id", result.RunID)
	start := clock.Now()

	p.setProgress(domain.RunProgress{
		RunID:       result.RunID,
		StartedAt:   start,
		CitiesTotal: len(cities),
		Outcome:     "running",
	})
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	logger.Info("run started", "cities", len(cities))

	tx, err := p.store.Begin(ctx)
	if err != nil {
		return p.finish(logger, result, start, fmt.Errorf("%w: begin transaction: %w", ErrStorage, err))
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		// The run context may already be canceled; rollback must still reach the store.
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			logger.Error("rollback failed", "error", rbErr)
		}
	}()

	for _, city := range cities {
		if err := ctx.Err(); err != nil {
			return p.finish(logger, result, start, fmt.Errorf("run canceled: %w", err))
		}

		cr, err := p.processCity(ctx, logger, tx, city)
		result.Cities = append(result.Cities, cr)
		if err != nil {
			return p.finish(logger, result, start, err)
		}
		if cr.Err != nil {
			result.Skipped++
		}
		result.Loaded += cr.Loaded
		result.Rejected += cr.Rejected
		result.Warned += cr.Warned

		p.updateProgress(func(rp *domain.RunProgress) {
			rp.CitiesDone++
			rp.Loaded = result.Loaded
			rp.Rejected = result.Rejected
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return p.finish(logger, result, start, fmt.Errorf("%w: commit: %w", ErrStorage, err))
	}
	committed = true
	result.Committed = true

	return p.finish(logger, result, start, nil)
}

// processCity fetches one city and loads it through tx. A fetch failure is
// reported on the CityResult; only storage failures are returned as errors.
func (p *Pipeline) processCity(ctx context.Context, logger *slog.Logger, tx domain.Tx, city domain.CityConfig) (CityResult, error) {
	logger.Info("processing city", "city", city.Name)

	resp, err := p.fetcher.FetchForecast(ctx, city)
	if err != nil {
		logger.Error("failed to fetch forecast, skipping city", "city", city.Name, "error", err)
		p.metrics.Cities.WithLabelValues("fetch_failed").Inc()
		return CityResult{Name: city.Name, Err: fmt.Errorf("%w: %s: %w", ErrFetch, city.Name, err)}, nil
	}

	p.archive(ctx, logger, city.Name, resp.RawPayload)

	cr, err := p.LoadCity(ctx, tx, city, resp)
	if err != nil {
		return cr, err
	}
	p.metrics.Cities.WithLabelValues("loaded").Inc()
	logger.Info("city loaded",
		"city", city.Name,
		"city_id", cr.CityID,
		"days", cr.Fetched,
		"loaded", cr.Loaded,
		"rejected", cr.Rejected,
	)
	return cr, nil
}

func (p *Pipeline) archive(ctx context.Context, logger *slog.Logger, cityName string, payload []byte) {
	if p.archiver == nil || len(payload) == 0 {
		return
	}
	if err := p.archiver.Archive(ctx, cityName, payload); err != nil {
		logger.Warn("archive raw response failed", "city", cityName, "error", err)
		p.metrics.RawArchiveErrors.Inc()
	}
}

// finish records the run outcome in metrics, progress and logs.
func (p *Pipeline) finish(logger *slog.Logger, result Result, start time.Time, err error) (Result, error) {
	elapsed := clock.Since(start)
	p.metrics.RunDuration.Observe(elapsed.Seconds())

	outcome := "committed"
	if err != nil {
		outcome = "rolled_back"
		p.metrics.Runs.WithLabelValues(failureLabel(err)).Inc()
		logger.Error("run failed, transaction rolled back",
			"error", err,
			"cities_processed", len(result.Cities),
			"duration", elapsed,
		)
	} else {
		p.metrics.Runs.WithLabelValues("success").Inc()
		p.metrics.Records.WithLabelValues("loaded").Add(float64(result.Loaded))
		logger.Info("run completed",
			"cities", len(result.Cities),
			"skipped", result.Skipped,
			"loaded", result.Loaded,
			"rejected", result.Rejected,
			"warned", result.Warned,
			"duration", elapsed,
		)
	}

	p.updateProgress(func(rp *domain.RunProgress) {
		rp.FinishedAt = clock.Now()
		rp.Outcome = outcome
	})
	return result, err
}

// failureLabel is the runs_total outcome for a failed run.
func failureLabel(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "storage_error"
}

func (p *Pipeline) setProgress(rp domain.RunProgress) {
	p.mu.Lock()
	p.progress = rp
	p.mu.Unlock()
}

func (p *Pipeline) updateProgress(fn func(*domain.RunProgress)) {
	p.mu.Lock()
	fn(&p.progress)
	p.mu.Unlock()
}
