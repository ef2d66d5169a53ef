// Command etl runs one forecast ingestion: it fetches the Weatherbit daily
// forecast for every configured city, validates and transforms each day, and
// upserts the result into Postgres in a single transaction.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	httpadapter "github.com/couchcryptid/weather-forecast-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-forecast-etl/internal/adapter/kafka"
	"github.com/couchcryptid/weather-forecast-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/weather-forecast-etl/internal/adapter/memory"
	"github.com/couchcryptid/weather-forecast-etl/internal/adapter/postgres"
	"github.com/couchcryptid/weather-forecast-etl/internal/adapter/rawlog"
	"github.com/couchcryptid/weather-forecast-etl/internal/adapter/weatherbit"
	"github.com/couchcryptid/weather-forecast-etl/internal/config"
	"github.com/couchcryptid/weather-forecast-etl/internal/domain"
	"github.com/couchcryptid/weather-forecast-etl/internal/observability"
	"github.com/couchcryptid/weather-forecast-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	cities, err := config.LoadCities(cfg.CitiesFile)
	if err != nil {
		logger.Error("failed to load cities", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store pipeline.Store
	if cfg.DryRun {
		store = memory.New()
		logger.Warn("dry run: records are validated but not persisted")
	} else {
		pg, err := postgres.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return 1
		}
		defer func() {
			if err := pg.Close(context.Background()); err != nil {
				logger.Error("database close error", "error", err)
			}
		}()
		store = pg
	}

	var archiver pipeline.Archiver
	switch cfg.RawSink {
	case config.RawSinkFile:
		archiver = rawlog.NewFileSink(cfg.RawLogDir, clockwork.NewRealClock(), logger)
	case config.RawSinkKafka:
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		archiver = writer
	}
	logger.Info("raw response sink", "sink", cfg.RawSink)

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	fetcher := weatherbit.NewClient(cfg, logger)
	p := pipeline.New(fetcher, store, archiver, geocoder, logger, metrics)

	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	result, err := p.Run(ctx, cities)
	if err != nil {
		logger.Error("etl run failed", "run_id", result.RunID, "error", err)
		return 1
	}
	for _, cr := range result.Cities {
		if cr.Err != nil {
			logger.Warn("city skipped", "run_id", result.RunID, "city", cr.Name, "error", cr.Err)
		}
	}
	return 0
}
