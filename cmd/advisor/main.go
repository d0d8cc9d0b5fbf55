package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/fieldpulse/irrigation-advisory/internal/adapter/httpapi"
	kafkaadapter "github.com/fieldpulse/irrigation-advisory/internal/adapter/kafka"
	"github.com/fieldpulse/irrigation-advisory/internal/adapter/openweather"
	"github.com/fieldpulse/irrigation-advisory/internal/adapter/power"
	"github.com/fieldpulse/irrigation-advisory/internal/adapter/raster"
	"github.com/fieldpulse/irrigation-advisory/internal/adapter/stac"
	storeadapter "github.com/fieldpulse/irrigation-advisory/internal/adapter/store"
	"github.com/fieldpulse/irrigation-advisory/internal/advisor"
	"github.com/fieldpulse/irrigation-advisory/internal/config"
	"github.com/fieldpulse/irrigation-advisory/internal/domain"
	"github.com/fieldpulse/irrigation-advisory/internal/observability"
	"github.com/fieldpulse/irrigation-advisory/internal/satellite"
	"github.com/fieldpulse/irrigation-advisory/internal/weather"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	store, err := storeadapter.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open field store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}

	catalog := stac.NewClient(cfg.STACURL, cfg.STACTimeout, logger, metrics)
	rasters := raster.NewClient(cfg.ClipServiceURL, cfg.ClipTimeout, logger, metrics)
	forecast := openweather.NewClient(cfg.OpenWeatherKey, cfg.OpenWeatherURL, cfg.ForecastTimeout, logger, metrics)

	// Satellite soil moisture (feature-flagged via POWER_ENABLED).
	var soil domain.SoilMoistureProvider
	if cfg.PowerEnabled {
		client := power.NewClient(cfg.PowerURL, cfg.PowerTimeout, clock, logger, metrics)
		soil = power.NewCachedProvider(client, cfg.PowerCacheSize, cfg.PowerCacheTTL, clock)
		logger.Info("satellite soil moisture enabled", "url", cfg.PowerURL, "cache_size", cfg.PowerCacheSize, "cache_ttl", cfg.PowerCacheTTL)
	} else {
		logger.Info("satellite soil moisture disabled")
	}

	// Advice event publishing (feature-flagged via KAFKA_ENABLED).
	var pub domain.AdvicePublisher
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaAdviceTopic, logger)
		pub = publisher
		logger.Info("advice publishing enabled", "topic", cfg.KafkaAdviceTopic)
	} else {
		logger.Info("advice publishing disabled")
	}

	selector := satellite.NewSceneSelector(catalog, cfg.STACCollection, clock, logger, metrics)
	indexer := satellite.NewIndexComputer(rasters, logger, metrics)
	estimator := weather.NewEstimator(forecast, cfg.ForecastSteps, logger, metrics)

	svc := advisor.New(store, selector, indexer, estimator, soil, pub, cfg.STACCollection, advisor.Options{
		DaysBack:    cfg.DaysBack,
		MaxCloudPct: cfg.MaxCloudPct,
		Policy:      cfg.BalancePolicy,
		CallTimeout: cfg.CallTimeout,
	}, clock, logger, metrics)

	srv := httpapi.NewServer(cfg.HTTPAddr, svc, store, clock, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
