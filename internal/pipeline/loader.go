package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/weather-forecast-etl/internal/domain"
)

// LoadCity resolves the city identity and upserts every accepted forecast day
// through tx, in response order. Rejected days are skipped; days with
// warnings are logged and still written. Any storage error is returned
// wrapped in ErrStorage and leaves the rest of the days unprocessed.
func (p *Pipeline) LoadCity(ctx context.Context, tx domain.Tx, cfg domain.CityConfig, resp domain.ForecastResponse) (CityResult, error) {
	cr := CityResult{Name: cfg.Name, Fetched: len(resp.Data)}

	cityID, err := p.resolveCityID(ctx, tx, domain.ResolveCity(cfg, resp))
	if err != nil {
		return cr, err
	}
	cr.CityID = cityID

	for _, day := range resp.Data {
		outcome := domain.ValidateForecastDay(day)
		if !outcome.Accepted {
			p.logger.Warn("skipping record", "city", cfg.Name, "reason", outcome.Warnings)
			p.metrics.Records.WithLabelValues("rejected").Inc()
			cr.Rejected++
			continue
		}

		rec := domain.TransformForecastDay(day)

		if len(outcome.Warnings) > 0 {
			cr.Warned++
			p.metrics.ValidationWarnings.Add(float64(len(outcome.Warnings)))
			for _, w := range outcome.Warnings {
				p.logger.Warn("data quality warning",
					"city", cfg.Name,
					"forecast_date", rec.ForecastDate,
					"warning", w,
				)
			}
		}

		if err := tx.UpsertDailyWeather(ctx, cityID, rec); err != nil {
			return cr, fmt.Errorf("%w: upsert %s %s: %w", ErrStorage, cfg.Name, rec.ForecastDate, err)
		}
		cr.Loaded++
	}

	return cr, nil
}

// resolveCityID returns the stored ID for city. Existing cities are never
// updated, so reverse geocoding only runs for coordinates not yet stored.
func (p *Pipeline) resolveCityID(ctx context.Context, tx domain.Tx, city domain.City) (int64, error) {
	id, found, err := tx.FindCity(ctx, city.Latitude, city.Longitude)
	if err != nil {
		return 0, fmt.Errorf("%w: find city %s (%.4f, %.4f): %w", ErrStorage, city.Name, city.Latitude, city.Longitude, err)
	}
	if found {
		return id, nil
	}

	city = domain.EnrichCityWithGeocoding(ctx, city, p.geocoder, p.logger)
	id, err = tx.ResolveCity(ctx, city)
	if err != nil {
		return 0, fmt.Errorf("%w: resolve city %s (%.4f, %.4f): %w", ErrStorage, city.Name, city.Latitude, city.Longitude, err)
	}
	return id, nil
}
