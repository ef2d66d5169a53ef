package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CityConfig is one entry of the configured city list.
type CityConfig struct {
	Name string  `yaml:"name" json:"name" validate:"required"`
	Lat  float64 `yaml:"lat" json:"lat" validate:"gte=-90,lte=90"`
	Lon  float64 `yaml:"lon" json:"lon" validate:"gte=-180,lte=180"`
}

// ForecastResponse is the decoded body of a daily forecast request.
type ForecastResponse struct {
	CityName    *string          `json:"city_name"`
	CountryCode string           `json:"country_code"`
	StateCode   string           `json:"state_code"`
	Lat         Coordinate       `json:"lat"`
	Lon         Coordinate       `json:"lon"`
	Timezone    string           `json:"timezone"`
	Data        []RawForecastDay `json:"data"`

	RawPayload []byte `json:"-"`
}

// DecodeForecastResponse parses a forecast body. Numbers inside the daily
// records are kept as json.Number.
func DecodeForecastResponse(body []byte) (ForecastResponse, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var resp ForecastResponse
	if err := dec.Decode(&resp); err != nil {
		return ForecastResponse{}, fmt.Errorf("decode forecast response: %w", err)
	}
	resp.RawPayload = body
	return resp, nil
}

// Coordinate accepts both JSON numbers and numeric strings. Null, an empty
// string or a missing key leave it invalid.
type Coordinate struct {
	Value float64
	Valid bool
}

// NewCoordinate returns a valid Coordinate.
func NewCoordinate(v float64) Coordinate {
	return Coordinate{Value: v, Valid: true}
}

func (c *Coordinate) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if strings.TrimSpace(s) == "" || s == "null" {
		*c = Coordinate{}
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("invalid coordinate %q: %w", s, err)
	}
	*c = NewCoordinate(f)
	return nil
}

// City is the identity row a forecast belongs to. Latitude and longitude form
// its identity key.
type City struct {
	ID          int64
	Name        string
	CountryCode string
	StateCode   string
	Latitude    float64
	Longitude   float64
	Timezone    string
}

// ResolveCity derives the city identity for a response, preferring values the
// API returned and falling back to the configured entry for name and
// coordinates.
func ResolveCity(cfg CityConfig, resp ForecastResponse) City {
	city := City{
		Name:        cfg.Name,
		CountryCode: resp.CountryCode,
		StateCode:   resp.StateCode,
		Latitude:    cfg.Lat,
		Longitude:   cfg.Lon,
		Timezone:    resp.Timezone,
	}
	if resp.CityName != nil && *resp.CityName != "" {
		city.Name = *resp.CityName
	}
	if resp.Lat.Valid {
		city.Latitude = resp.Lat.Value
	}
	if resp.Lon.Valid {
		city.Longitude = resp.Lon.Value
	}
	return city
}

// DailyWeatherRecord is the storage shape of one forecast day. A city has at
// most one record per ForecastDate; nil fields are stored as NULL.
type DailyWeatherRecord struct {
	ForecastDate string

	// Temperature (°C).
	Temp            *float64
	MaxTemp         *float64
	MinTemp         *float64
	ApparentMaxTemp *float64
	ApparentMinTemp *float64
	HighTemp        *float64
	LowTemp         *float64
	Dewpt           *float64

	// Precipitation.
	Precipitation *float64
	Pop           *int64
	Snow          *float64
	SnowDepth     *float64

	// Wind.
	WindSpeed    *float64
	WindGustSpd  *float64
	WindDir      *int64
	WindCdir     *string
	WindCdirFull *string

	// Clouds and visibility.
	Clouds    *int64
	CloudsHi  *int64
	CloudsLow *int64
	CloudsMid *int64
	Vis       *float64

	// Atmospheric.
	Humidity *int64
	Pressure *float64
	Slp      *float64
	Ozone    *float64
	UV       *float64

	WeatherCode        *int64
	WeatherDescription *string
	WeatherIcon        *string

	MoonPhase         *float64
	MoonPhaseLunation *float64
	SunriseTS         *int64
	SunsetTS          *int64
	MoonriseTS        *int64
	MoonsetTS         *int64

	MaxDHI *float64
	TS     *int64
}
