package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fieldpulse/irrigation-advisory/internal/waterbalance"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	DBPath string

	// STAC catalog for Sentinel-2 scene discovery.
	STACURL        string
	STACCollection string
	STACTimeout    time.Duration

	// Clip service, the raster sidecar that reads and clips band assets.
	ClipServiceURL string
	ClipTimeout    time.Duration

	// OpenWeather 3-hourly forecast.
	OpenWeatherKey  string
	OpenWeatherURL  string
	ForecastTimeout time.Duration
	ForecastSteps   int

	// NASA POWER soil moisture fallback.
	PowerURL       string
	PowerTimeout   time.Duration
	PowerEnabled   bool
	PowerCacheSize int
	PowerCacheTTL  time.Duration

	// Advisory pipeline thresholds.
	MaxCloudPct   float64
	DaysBack      int
	BalancePolicy waterbalance.Policy
	CallTimeout   time.Duration

	// Kafka advice event publishing.
	KafkaBrokers     []string
	KafkaAdviceTopic string
	KafkaEnabled     bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	stacTimeout, err := parseDuration("STAC_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	clipTimeout, err := parseDuration("CLIP_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	forecastTimeout, err := parseDuration("FORECAST_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	powerTimeout, err := parseDuration("POWER_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	callTimeout, err := parseDuration("CALL_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	powerCacheTTL, err := parseDuration("POWER_CACHE_TTL", "6h")
	if err != nil {
		return nil, err
	}
	powerCacheSize, err := parseInt("POWER_CACHE_SIZE", 1000, 1, 1_000_000)
	if err != nil {
		return nil, err
	}

	forecastSteps, err := parseInt("FORECAST_STEPS", 8, 1, 40)
	if err != nil {
		return nil, err
	}
	daysBack, err := parseInt("DAYS_BACK", 30, 1, 365)
	if err != nil {
		return nil, err
	}
	maxCloudPct, err := parseFloat("MAX_CLOUD_PCT", 40)
	if err != nil {
		return nil, err
	}
	if maxCloudPct <= 0 || maxCloudPct > 100 {
		return nil, errors.New("MAX_CLOUD_PCT must be in (0, 100]")
	}

	policy := waterbalance.Policy(envOrDefault("BALANCE_POLICY", string(waterbalance.PolicyDeficitPeriod)))
	if !waterbalance.ValidPolicy(policy) {
		return nil, fmt.Errorf("invalid BALANCE_POLICY %q", policy)
	}

	kafkaEnabled := envOrDefault("KAFKA_ENABLED", "false") == "true"

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DBPath: envOrDefault("DB_PATH", "advisory.db"),

		STACURL:        envOrDefault("STAC_URL", "https://earth-search.aws.element84.com/v1"),
		STACCollection: envOrDefault("STAC_COLLECTION", "sentinel-2-l2a"),
		STACTimeout:    stacTimeout,

		ClipServiceURL: envOrDefault("CLIP_SERVICE_URL", "http://localhost:8081"),
		ClipTimeout:    clipTimeout,

		OpenWeatherKey:  os.Getenv("OPENWEATHER_KEY"),
		OpenWeatherURL:  envOrDefault("OPENWEATHER_URL", "https://api.openweathermap.org/data/2.5/forecast"),
		ForecastTimeout: forecastTimeout,
		ForecastSteps:   forecastSteps,

		PowerURL:       envOrDefault("POWER_URL", "https://power.larc.nasa.gov/api/temporal/daily/point"),
		PowerTimeout:   powerTimeout,
		PowerEnabled:   envOrDefault("POWER_ENABLED", "true") == "true",
		PowerCacheSize: powerCacheSize,
		PowerCacheTTL:  powerCacheTTL,

		MaxCloudPct:   maxCloudPct,
		DaysBack:      daysBack,
		BalancePolicy: policy,
		CallTimeout:   callTimeout,

		KafkaBrokers:     splitBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAdviceTopic: envOrDefault("KAFKA_ADVICE_TOPIC", "irrigation-advice"),
		KafkaEnabled:     kafkaEnabled,
	}

	if cfg.STACURL == "" {
		return nil, errors.New("STAC_URL is required")
	}
	if cfg.STACCollection == "" {
		return nil, errors.New("STAC_COLLECTION is required")
	}
	if cfg.ClipServiceURL == "" {
		return nil, errors.New("CLIP_SERVICE_URL is required")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaAdviceTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_ADVICE_TOPIC is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration", key)
	}
	return d, nil
}

func parseInt(key string, def, min, max int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("%s must be an integer in [%d, %d]", key, min, max)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return f, nil
}

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
