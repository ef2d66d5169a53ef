package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	CountryCode      string // ISO 3166-1 alpha-2, upper case
	StateCode        string // region part of ISO 3166-2, e.g. "NC" for "US-NC"
	Confidence       float64
}

// Geocoder resolves place details for coordinates.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}
