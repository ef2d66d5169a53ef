package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Raw response sinks.
const (
	RawSinkFile  = "file"
	RawSinkKafka = "kafka"
	RawSinkNone  = "none"
)

// Config holds all job settings, populated from environment variables.
type Config struct {
	DatabaseURL string
	CitiesFile  string
	DryRun      bool

	WeatherAPIKey    string
	WeatherAPIHost   string
	WeatherBaseURL   string
	WeatherUnits     string
	WeatherLang      string
	WeatherTimeout   time.Duration
	WeatherRateLimit float64
	WeatherRateBurst int

	RawSink       string
	RawLogDir     string
	KafkaBrokers  []string
	KafkaRawTopic string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is loaded first when present;
// variables already set in the environment take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	weatherTimeout, err := parsePositiveDuration("WEATHER_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("WEATHER_RATE_LIMIT", "1"), 64)
	if err != nil || rateLimit <= 0 {
		return nil, errors.New("invalid WEATHER_RATE_LIMIT")
	}
	rateBurst, err := strconv.Atoi(sharedcfg.EnvOrDefault("WEATHER_RATE_BURST", "1"))
	if err != nil || rateBurst <= 0 {
		return nil, errors.New("invalid WEATHER_RATE_BURST")
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		CitiesFile:  sharedcfg.EnvOrDefault("CITIES_FILE", "config/config.yaml"),
		DryRun:      parseBool(os.Getenv("DRY_RUN")),

		WeatherAPIKey:    os.Getenv("WEATHER_API_KEY"),
		WeatherAPIHost:   sharedcfg.EnvOrDefault("WEATHER_API_HOST", "weatherbit-v1-mashape.p.rapidapi.com"),
		WeatherBaseURL:   strings.TrimRight(sharedcfg.EnvOrDefault("WEATHER_BASE_URL", "https://weatherbit-v1-mashape.p.rapidapi.com"), "/"),
		WeatherUnits:     sharedcfg.EnvOrDefault("WEATHER_UNITS", "metric"),
		WeatherLang:      sharedcfg.EnvOrDefault("WEATHER_LANG", "en"),
		WeatherTimeout:   weatherTimeout,
		WeatherRateLimit: rateLimit,
		WeatherRateBurst: rateBurst,

		RawSink:       strings.ToLower(sharedcfg.EnvOrDefault("RAW_SINK", RawSinkFile)),
		RawLogDir:     sharedcfg.EnvOrDefault("RAW_LOG_DIR", "logs"),
		KafkaBrokers:  sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaRawTopic: sharedcfg.EnvOrDefault("KAFKA_RAW_TOPIC", "raw-weather-forecasts"),

		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if cfg.WeatherAPIKey == "" {
		return nil, errors.New("WEATHER_API_KEY is required")
	}
	if cfg.DatabaseURL == "" && !cfg.DryRun {
		return nil, errors.New("DATABASE_URL is required unless DRY_RUN is set")
	}
	switch cfg.RawSink {
	case RawSinkFile, RawSinkNone:
	case RawSinkKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when RAW_SINK is kafka")
		}
		if cfg.KafkaRawTopic == "" {
			return nil, errors.New("KAFKA_RAW_TOPIC is required when RAW_SINK is kafka")
		}
	default:
		return nil, fmt.Errorf("invalid RAW_SINK %q: must be file, kafka or none", cfg.RawSink)
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBool(s string) bool {
	s = strings.TrimSpace(s)
	return s == "1" || strings.EqualFold(s, "true")
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
