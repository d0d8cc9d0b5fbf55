// Package weather aggregates short-range forecasts into a daily reference
// evapotranspiration proxy.
package weather

import (
	"context"
	"log/slog"

	"github.com/fieldpulse/irrigation-advisory/internal/domain"
	"github.com/fieldpulse/irrigation-advisory/internal/observability"
)

// defaultTempC is assumed when the forecast source is unreachable or returns
// no usable steps. Weather unavailability degrades precision; it never blocks
// advice.
const defaultTempC = 30.0

// Estimator turns a fixed-cadence forecast into a WeatherSnapshot.
type Estimator struct {
	provider domain.ForecastProvider
	steps    int
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewEstimator creates an Estimator reading the first steps forecast records
// (8 three-hour steps covers roughly 24h).
func NewEstimator(provider domain.ForecastProvider, steps int, logger *slog.Logger, metrics *observability.Metrics) *Estimator {
	return &Estimator{provider: provider, steps: steps, logger: logger, metrics: metrics}
}

// Estimate fetches the forecast for a point and aggregates the first window
// of steps into mean temperature, total rainfall, and an ET0 proxy. On any
// provider failure it falls back to the default temperature with zero rain.
func (e *Estimator) Estimate(ctx context.Context, lat, lon float64) domain.WeatherSnapshot {
	steps, err := e.provider.Forecast(ctx, lat, lon)
	if err != nil || len(steps) == 0 {
		e.metrics.ForecastRequests.WithLabelValues("fallback").Inc()
		e.logger.Warn("forecast unavailable, using default snapshot",
			"lat", lat, "lon", lon, "error", err)
		return Snapshot(defaultTempC, 0)
	}
	e.metrics.ForecastRequests.WithLabelValues("success").Inc()

	if len(steps) > e.steps {
		steps = steps[:e.steps]
	}

	var tempSum, rainSum float64
	for _, s := range steps {
		tempSum += s.TempC
		rainSum += s.RainMM
	}
	return Snapshot(tempSum/float64(len(steps)), rainSum)
}

// Snapshot builds a WeatherSnapshot from an already-aggregated mean
// temperature and rainfall total.
func Snapshot(meanTempC, rainMM float64) domain.WeatherSnapshot {
	return domain.WeatherSnapshot{
		MeanTempC:  meanTempC,
		RainfallMM: rainMM,
		ET0MM:      ET0(meanTempC),
	}
}

// ET0 is a deliberately simplified Hargreaves-style daily proxy:
//
//	et0_mm = max(0, 0.0023 * (tmean_c + 17.8)) * 24
//
// It is an approximation for advisory tiering, not a physical FAO-56
// computation. The constants are part of the contract; do not tune them.
func ET0(meanTempC float64) float64 {
	v := 0.0023 * (meanTempC + 17.8)
	if v < 0 {
		v = 0
	}
	return v * 24
}
