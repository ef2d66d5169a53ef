package domain

import (
	"fmt"
	"regexp"
	"time"
)

// MissingDateWarning is the single warning of a rejected forecast day.
const MissingDateWarning = "Missing date - cannot insert record"

const (
	minTemperature = -150.0
	maxTemperature = 100.0
	minPressure    = 800.0
	maxPressure    = 1100.0
	maxUV          = 15.0
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// temperatureFields are range-checked in this order.
var temperatureFields = []string{
	"temp", "max_temp", "min_temp", "app_max_temp", "app_min_temp", "high_temp", "low_temp", "dewpt",
}

// ValidationOutcome is the result of validating one forecast day. Warnings
// keep check order and never block an accepted day.
type ValidationOutcome struct {
	Accepted bool
	Warnings []string
}

// ValidateForecastDay applies the data-quality gate to one day. Only a
// missing, empty or non-string datetime rejects the day.
func ValidateForecastDay(day RawForecastDay) ValidationOutcome {
	date := day.Field("datetime")
	if s, ok := date.Raw.(string); !date.Present || !ok || s == "" {
		return ValidationOutcome{Accepted: false, Warnings: []string{MissingDateWarning}}
	}

	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	if !IsValidDate(date.String()) {
		warn("Invalid date format: %s", date)
	}

	for _, name := range temperatureFields {
		if v := day.Field(name); !inRange(v, minTemperature, maxTemperature) {
			warn("Temperature out of range: %s=%s°C", name, v)
		}
	}

	if v := day.Field("rh"); !inRange(v, 0, 100) {
		warn("Invalid humidity (rh): %s%% (must be 0-100)", v)
	}
	if v := day.Field("pop"); !inRange(v, 0, 100) {
		warn("Invalid precipitation probability (pop): %s%% (must be 0-100)", v)
	}

	if v := day.Field("wind_dir"); !inRange(v, 0, 360) {
		warn("Invalid wind direction (wind_dir): %s° (must be 0-360)", v)
	}

	if v := day.Field("pres"); !inRange(v, minPressure, maxPressure) {
		warn("Invalid pressure (pres): %s hPa (must be 800-1100)", v)
	}
	if v := day.Field("slp"); !inRange(v, minPressure, maxPressure) {
		warn("Invalid sea level pressure (slp): %s hPa (must be 800-1100)", v)
	}

	if v := day.Field("uv"); !inRange(v, 0, maxUV) {
		warn("Invalid UV index (uv): %s (must be 0-15)", v)
	}

	maxTemp, minTemp := day.Field("max_temp"), day.Field("min_temp")
	if hi, lo, ok := bothNumeric(maxTemp, minTemp); ok && hi < lo {
		warn("max_temp (%s) < min_temp (%s)", maxTemp, minTemp)
	}

	windSpd := day.Field("wind_spd")
	if windSpd.Present {
		if spd, ok := windSpd.Float(); !ok {
			warn("Invalid wind speed (wind_spd): %s (not a number)", windSpd)
		} else if spd < 0 {
			warn("Negative wind speed (wind_spd): %s", windSpd)
		}
	}

	gust := day.Field("wind_gust_spd")
	if _, ok := gust.Float(); gust.Present && !ok {
		warn("Invalid wind gust (wind_gust_spd): %s (not a number)", gust)
	} else if g, spd, ok := bothNumeric(gust, windSpd); ok && g < spd {
		warn("Wind gust (%s) < wind speed (%s)", gust, windSpd)
	}

	return ValidationOutcome{Accepted: true, Warnings: warnings}
}

// IsValidDate reports whether s is a YYYY-MM-DD calendar date.
func IsValidDate(s string) bool {
	if !dateRe.MatchString(s) {
		return false
	}
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

// inRange treats absent values as valid and non-numeric values as invalid.
func inRange(v Value, lo, hi float64) bool {
	if !v.Present {
		return true
	}
	f, ok := v.Float()
	return ok && f >= lo && f <= hi
}

func bothNumeric(a, b Value) (float64, float64, bool) {
	x, okA := a.Float()
	y, okB := b.Float()
	return x, y, okA && okB
}
