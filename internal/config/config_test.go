package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldpulse/irrigation-advisory/internal/waterbalance"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "advisory.db", cfg.DBPath)
	assert.Equal(t, "https://earth-search.aws.element84.com/v1", cfg.STACURL)
	assert.Equal(t, "sentinel-2-l2a", cfg.STACCollection)
	assert.Equal(t, 10*time.Second, cfg.STACTimeout)
	assert.Equal(t, "http://localhost:8081", cfg.ClipServiceURL)
	assert.Equal(t, 30*time.Second, cfg.ClipTimeout)
	assert.Empty(t, cfg.OpenWeatherKey)
	assert.Equal(t, 8, cfg.ForecastSteps)
	assert.True(t, cfg.PowerEnabled)
	assert.Equal(t, 1000, cfg.PowerCacheSize)
	assert.Equal(t, 6*time.Hour, cfg.PowerCacheTTL)
	assert.Equal(t, 40.0, cfg.MaxCloudPct)
	assert.Equal(t, 30, cfg.DaysBack)
	assert.Equal(t, waterbalance.PolicyDeficitPeriod, cfg.BalancePolicy)
	assert.Equal(t, 30*time.Second, cfg.CallTimeout)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "irrigation-advice", cfg.KafkaAdviceTopic)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("DB_PATH", "/var/lib/advisory/fields.db")
	t.Setenv("STAC_URL", "https://stac.example.test/v1")
	t.Setenv("STAC_COLLECTION", "sentinel-2-c1-l2a")
	t.Setenv("CLIP_SERVICE_URL", "http://clip:8081")
	t.Setenv("OPENWEATHER_KEY", "ow-test-key")
	t.Setenv("FORECAST_STEPS", "16")
	t.Setenv("POWER_ENABLED", "false")
	t.Setenv("MAX_CLOUD_PCT", "25")
	t.Setenv("DAYS_BACK", "14")
	t.Setenv("BALANCE_POLICY", "single_event")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_ADVICE_TOPIC", "advice-events")
	t.Setenv("KAFKA_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/var/lib/advisory/fields.db", cfg.DBPath)
	assert.Equal(t, "https://stac.example.test/v1", cfg.STACURL)
	assert.Equal(t, "sentinel-2-c1-l2a", cfg.STACCollection)
	assert.Equal(t, "http://clip:8081", cfg.ClipServiceURL)
	assert.Equal(t, "ow-test-key", cfg.OpenWeatherKey)
	assert.Equal(t, 16, cfg.ForecastSteps)
	assert.False(t, cfg.PowerEnabled)
	assert.Equal(t, 25.0, cfg.MaxCloudPct)
	assert.Equal(t, 14, cfg.DaysBack)
	assert.Equal(t, waterbalance.PolicySingleEvent, cfg.BalancePolicy)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "advice-events", cfg.KafkaAdviceTopic)
	assert.True(t, cfg.KafkaEnabled)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidForecastSteps(t *testing.T) {
	t.Setenv("FORECAST_STEPS", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FORECAST_STEPS")
}

func TestLoad_ForecastStepsTooLarge(t *testing.T) {
	t.Setenv("FORECAST_STEPS", "999")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FORECAST_STEPS")
}

func TestLoad_InvalidMaxCloudPct(t *testing.T) {
	for _, v := range []string{"0", "-5", "150", "cloudy"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("MAX_CLOUD_PCT", v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "MAX_CLOUD_PCT")
		})
	}
}

func TestLoad_InvalidDaysBack(t *testing.T) {
	t.Setenv("DAYS_BACK", "400")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DAYS_BACK")
}

func TestLoad_InvalidBalancePolicy(t *testing.T) {
	t.Setenv("BALANCE_POLICY", "vibes")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BALANCE_POLICY")
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", " , ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_InvalidClipTimeout(t *testing.T) {
	t.Setenv("CLIP_TIMEOUT", "bad")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLIP_TIMEOUT")
}
