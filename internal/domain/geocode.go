package domain

import (
	"context"
	"log/slog"
)

// EnrichCityWithGeocoding fills a missing country or state code from the
// city's coordinates. Values the API already returned are never replaced, and
// a nil geocoder or a failed lookup leaves the city unchanged.
func EnrichCityWithGeocoding(ctx context.Context, city City, geocoder Geocoder, logger *slog.Logger) City {
	if geocoder == nil {
		return city
	}
	if city.CountryCode != "" && city.StateCode != "" {
		return city
	}

	result, err := geocoder.ReverseGeocode(ctx, city.Latitude, city.Longitude)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"city", city.Name,
			"lat", city.Latitude,
			"lon", city.Longitude,
			"error", err,
		)
		return city
	}

	if city.CountryCode == "" {
		city.CountryCode = result.CountryCode
	}
	if city.StateCode == "" {
		city.StateCode = result.StateCode
	}
	return city
}
