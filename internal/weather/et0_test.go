package weather

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fieldpulse/irrigation-advisory/internal/domain"
	"github.com/fieldpulse/irrigation-advisory/internal/observability"
)

type fakeForecast struct {
	steps []domain.ForecastStep
	err   error
}

func (f *fakeForecast) Forecast(_ context.Context, _, _ float64) ([]domain.ForecastStep, error) {
	return f.steps, f.err
}

func steps(temps []float64, rains []float64) []domain.ForecastStep {
	base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	out := make([]domain.ForecastStep, len(temps))
	for i := range temps {
		out[i] = domain.ForecastStep{
			Time:   base.Add(time.Duration(i) * 3 * time.Hour),
			TempC:  temps[i],
			RainMM: rains[i],
		}
	}
	return out
}

func newEstimator(provider domain.ForecastProvider) *Estimator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEstimator(provider, 8, logger, observability.NewMetricsForTesting())
}

func TestEstimate_AggregatesFirstEightSteps(t *testing.T) {
	// 10 steps; only the first 8 count. First 8 temps average to 25,
	// first 8 rains sum to 4.0.
	temps := []float64{20, 22, 24, 26, 28, 30, 26, 24, 99, 99}
	rains := []float64{0.5, 0.5, 1.0, 0, 0, 1.0, 0.5, 0.5, 50, 50}

	snap := newEstimator(&fakeForecast{steps: steps(temps, rains)}).Estimate(context.Background(), 31.5, 74.3)

	assert.InDelta(t, 25.0, snap.MeanTempC, 1e-9)
	assert.InDelta(t, 4.0, snap.RainfallMM, 1e-9)
	assert.InDelta(t, ET0(25.0), snap.ET0MM, 1e-9)
}

func TestEstimate_FewerStepsThanWindow(t *testing.T) {
	snap := newEstimator(&fakeForecast{steps: steps([]float64{30, 32}, []float64{1, 2})}).
		Estimate(context.Background(), 31.5, 74.3)

	assert.InDelta(t, 31.0, snap.MeanTempC, 1e-9)
	assert.InDelta(t, 3.0, snap.RainfallMM, 1e-9)
}

func TestEstimate_ProviderErrorFallsBack(t *testing.T) {
	snap := newEstimator(&fakeForecast{err: errors.New("dns failure")}).
		Estimate(context.Background(), 31.5, 74.3)

	assert.Equal(t, 30.0, snap.MeanTempC)
	assert.Zero(t, snap.RainfallMM)
	assert.InDelta(t, ET0(30.0), snap.ET0MM, 1e-9)
}

func TestEstimate_EmptyForecastFallsBack(t *testing.T) {
	snap := newEstimator(&fakeForecast{}).Estimate(context.Background(), 31.5, 74.3)

	assert.Equal(t, 30.0, snap.MeanTempC)
}

func TestET0_Formula(t *testing.T) {
	// et0 = max(0, 0.0023*(t+17.8)) * 24, exact constants.
	assert.InDelta(t, 0.0023*(30.0+17.8)*24, ET0(30.0), 1e-12)
	assert.InDelta(t, 0.0023*(25.0+17.8)*24, ET0(25.0), 1e-12)
}

func TestET0_ClampsNegative(t *testing.T) {
	assert.Zero(t, ET0(-20))
}
