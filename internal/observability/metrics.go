package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// advisory service.
type Metrics struct {
	// Collaborator I/O.
	CatalogSearches      *prometheus.CounterVec   // labels: outcome={success,error,empty}
	RasterClips          *prometheus.CounterVec   // labels: outcome={success,error}
	ForecastRequests     *prometheus.CounterVec   // labels: outcome={success,fallback}
	SoilMoistureRequests *prometheus.CounterVec   // labels: outcome={success,unavailable,error}
	CollaboratorDuration *prometheus.HistogramVec // labels: collaborator={catalog,raster,forecast,soil}

	// Advisory outcomes.
	Recommendations *prometheus.CounterVec // labels: policy, status={ok,processing}
	AdviceTiers     *prometheus.CounterVec // labels: tier={normal,drying,critical}

	ServiceReady prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CatalogSearches,
		m.RasterClips,
		m.ForecastRequests,
		m.SoilMoistureRequests,
		m.CollaboratorDuration,
		m.Recommendations,
		m.AdviceTiers,
		m.ServiceReady,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CatalogSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "irrigation_advisory",
			Name:      "catalog_searches_total",
			Help:      "Imagery catalog searches by outcome.",
		}, []string{"outcome"}),
		RasterClips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "irrigation_advisory",
			Name:      "raster_clips_total",
			Help:      "Band clip requests by outcome.",
		}, []string{"outcome"}),
		ForecastRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "irrigation_advisory",
			Name:      "forecast_requests_total",
			Help:      "Forecast fetches by outcome; fallback means the default snapshot was used.",
		}, []string{"outcome"}),
		SoilMoistureRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "irrigation_advisory",
			Name:      "soil_moisture_requests_total",
			Help:      "Satellite soil moisture fetches by outcome.",
		}, []string{"outcome"}),
		CollaboratorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "irrigation_advisory",
			Name:      "collaborator_duration_seconds",
			Help:      "Duration of remote collaborator calls.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"collaborator"}),
		Recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "irrigation_advisory",
			Name:      "recommendations_total",
			Help:      "Recommendation requests by policy and terminal status.",
		}, []string{"policy", "status"}),
		AdviceTiers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "irrigation_advisory",
			Name:      "advice_tiers_total",
			Help:      "Deficit advice emitted by tier.",
		}, []string{"tier"}),
		ServiceReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "irrigation_advisory",
			Name:      "service_ready",
			Help:      "1 when the service has served at least one request successfully.",
		}),
	}
}
