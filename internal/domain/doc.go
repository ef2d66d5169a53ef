// Package domain models Weatherbit daily forecast data and the rules that
// turn it into rows of the historical weather dataset.
//
// # Data Source
//
// Forecasts come from the Weatherbit "forecast/daily" endpoint (served through
// RapidAPI). One response covers one coordinate pair and carries up to 16 days:
//
//	{
//	  "city_name": "Raleigh", "country_code": "US", "state_code": "NC",
//	  "lat": 35.7796, "lon": -78.6382, "timezone": "America/New_York",
//	  "data": [ { "datetime": "2024-03-01", "max_temp": 20.1, ... }, ... ]
//	}
//
// Each element of "data" is kept as a RawForecastDay: decoded JSON with
// numbers preserved as json.Number, so a missing key, an explicit null and a
// non-numeric value stay distinguishable until validation.
//
// # Units
//
// Requests use units=metric: temperatures in °C, precipitation and snow in mm,
// wind in m/s, visibility in km, pressure in hPa. Sun and moon times are Unix
// seconds (UTC).
//
// # Quality Gates
//
// ValidateForecastDay has a single hard gate: a day without a "datetime"
// cannot be keyed in storage and is rejected. Every other check is soft and
// only contributes a warning:
//
//	temperatures (temp, max/min, app_max/app_min, high/low, dewpt)  [-150, 100] °C
//	rh, pop                                                          [0, 100] %
//	wind_dir                                                         [0, 360] °
//	pres, slp                                                        [800, 1100] hPa
//	uv                                                               [0, 15]
//	max_temp >= min_temp, wind_spd >= 0, wind_gust_spd >= wind_spd
//
// A null or missing value always passes; the cross-field checks run only
// when both sides are present.
//
// # Field Naming
//
// TransformForecastDay renames source keys to storage columns (rh -> humidity,
// wind_spd -> wind_speed, app_max_temp -> apparent_max_temp, ...) and
// flattens the nested "weather" object into weather_code, weather_description
// and weather_icon. Lookups fall back to the column name, so a day that
// already uses storage naming is read the same way.
package domain
