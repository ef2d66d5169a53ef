package domain

// sourceColumns maps upstream keys to storage columns. weather.code,
// weather.description and weather.icon are flattened separately.
var sourceColumns = [][2]string{
	{"datetime", "forecast_date"},
	{"temp", "temp"},
	{"max_temp", "max_temp"},
	{"min_temp", "min_temp"},
	{"app_max_temp", "apparent_max_temp"},
	{"app_min_temp", "apparent_min_temp"},
	{"high_temp", "high_temp"},
	{"low_temp", "low_temp"},
	{"dewpt", "dewpt"},
	{"precip", "precipitation"},
	{"pop", "pop"},
	{"snow", "snow"},
	{"snow_depth", "snow_depth"},
	{"wind_spd", "wind_speed"},
	{"wind_gust_spd", "wind_gust_spd"},
	{"wind_dir", "wind_dir"},
	{"wind_cdir", "wind_cdir"},
	{"wind_cdir_full", "wind_cdir_full"},
	{"clouds", "clouds"},
	{"clouds_hi", "clouds_hi"},
	{"clouds_low", "clouds_low"},
	{"clouds_mid", "clouds_mid"},
	{"vis", "vis"},
	{"rh", "humidity"},
	{"pres", "pressure"},
	{"slp", "slp"},
	{"ozone", "ozone"},
	{"uv", "uv"},
	{"moon_phase", "moon_phase"},
	{"moon_phase_lunation", "moon_phase_lunation"},
	{"sunrise_ts", "sunrise_ts"},
	{"sunset_ts", "sunset_ts"},
	{"moonrise_ts", "moonrise_ts"},
	{"moonset_ts", "moonset_ts"},
	{"max_dhi", "max_dhi"},
	{"ts", "ts"},
}

var columnBySource = func() map[string]string {
	m := make(map[string]string, len(sourceColumns))
	for _, sc := range sourceColumns {
		m[sc[0]] = sc[1]
	}
	return m
}()

// DailyWeatherColumns lists the non-key daily_weather columns in the order
// returned by DailyWeatherRecord.Values.
var DailyWeatherColumns = []string{
	"temp", "max_temp", "min_temp",
	"apparent_max_temp", "apparent_min_temp", "high_temp", "low_temp", "dewpt",
	"precipitation", "pop", "snow", "snow_depth",
	"wind_speed", "wind_gust_spd", "wind_dir", "wind_cdir", "wind_cdir_full",
	"clouds", "clouds_hi", "clouds_low", "clouds_mid", "vis",
	"humidity", "pressure", "slp", "ozone", "uv",
	"weather_code", "weather_description", "weather_icon",
	"moon_phase", "moon_phase_lunation", "sunrise_ts", "sunset_ts", "moonrise_ts", "moonset_ts",
	"max_dhi", "ts",
}

// TransformForecastDay maps a raw forecast day onto the storage schema.
// Numeric fields that do not parse are stored as NULL; the validator has
// already reported them.
func TransformForecastDay(day RawForecastDay) DailyWeatherRecord {
	return DailyWeatherRecord{
		ForecastDate: day.Field("datetime").String(),

		Temp:            day.Field("temp").floatPtr(),
		MaxTemp:         day.Field("max_temp").floatPtr(),
		MinTemp:         day.Field("min_temp").floatPtr(),
		ApparentMaxTemp: day.Field("app_max_temp").floatPtr(),
		ApparentMinTemp: day.Field("app_min_temp").floatPtr(),
		HighTemp:        day.Field("high_temp").floatPtr(),
		LowTemp:         day.Field("low_temp").floatPtr(),
		Dewpt:           day.Field("dewpt").floatPtr(),

		Precipitation: day.Field("precip").floatPtr(),
		Pop:           day.Field("pop").intPtr(),
		Snow:          day.Field("snow").floatPtr(),
		SnowDepth:     day.Field("snow_depth").floatPtr(),

		WindSpeed:    day.Field("wind_spd").floatPtr(),
		WindGustSpd:  day.Field("wind_gust_spd").floatPtr(),
		WindDir:      day.Field("wind_dir").intPtr(),
		WindCdir:     day.Field("wind_cdir").textPtr(),
		WindCdirFull: day.Field("wind_cdir_full").textPtr(),

		Clouds:    day.Field("clouds").intPtr(),
		CloudsHi:  day.Field("clouds_hi").intPtr(),
		CloudsLow: day.Field("clouds_low").intPtr(),
		CloudsMid: day.Field("clouds_mid").intPtr(),
		Vis:       day.Field("vis").floatPtr(),

		Humidity: day.Field("rh").intPtr(),
		Pressure: day.Field("pres").floatPtr(),
		Slp:      day.Field("slp").floatPtr(),
		Ozone:    day.Field("ozone").floatPtr(),
		UV:       day.Field("uv").floatPtr(),

		WeatherCode:        day.weather("code").intPtr(),
		WeatherDescription: day.weather("description").textPtr(),
		WeatherIcon:        day.weather("icon").textPtr(),

		MoonPhase:         day.Field("moon_phase").floatPtr(),
		MoonPhaseLunation: day.Field("moon_phase_lunation").floatPtr(),
		SunriseTS:         day.Field("sunrise_ts").intPtr(),
		SunsetTS:          day.Field("sunset_ts").intPtr(),
		MoonriseTS:        day.Field("moonrise_ts").intPtr(),
		MoonsetTS:         day.Field("moonset_ts").intPtr(),

		MaxDHI: day.Field("max_dhi").floatPtr(),
		TS:     day.Field("ts").intPtr(),
	}
}

// weather reads a key of the nested weather descriptor, falling back to the
// flattened weather_<key> column.
func (d RawForecastDay) weather(key string) Value {
	if w, ok := d["weather"].(map[string]any); ok {
		if v := RawForecastDay(w).Get(key); v.Present {
			return v
		}
	}
	return d.Get("weather_" + key)
}

// Values returns the non-key column values in DailyWeatherColumns order.
func (r DailyWeatherRecord) Values() []any {
	return []any{
		r.Temp, r.MaxTemp, r.MinTemp,
		r.ApparentMaxTemp, r.ApparentMinTemp, r.HighTemp, r.LowTemp, r.Dewpt,
		r.Precipitation, r.Pop, r.Snow, r.SnowDepth,
		r.WindSpeed, r.WindGustSpd, r.WindDir, r.WindCdir, r.WindCdirFull,
		r.Clouds, r.CloudsHi, r.CloudsLow, r.CloudsMid, r.Vis,
		r.Humidity, r.Pressure, r.Slp, r.Ozone, r.UV,
		r.WeatherCode, r.WeatherDescription, r.WeatherIcon,
		r.MoonPhase, r.MoonPhaseLunation, r.SunriseTS, r.SunsetTS, r.MoonriseTS, r.MoonsetTS,
		r.MaxDHI, r.TS,
	}
}
