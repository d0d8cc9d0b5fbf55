// Package advisor orchestrates the irrigation advisory pipeline: geometry,
// scene selection and indexing, weather aggregation, and the water balance.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fieldpulse/irrigation-advisory/internal/domain"
	"github.com/fieldpulse/irrigation-advisory/internal/geometry"
	"github.com/fieldpulse/irrigation-advisory/internal/observability"
	"github.com/fieldpulse/irrigation-advisory/internal/satellite"
	"github.com/fieldpulse/irrigation-advisory/internal/waterbalance"
	"github.com/fieldpulse/irrigation-advisory/internal/weather"
)

// processingETAMinutes is the suggested retry interval returned while the
// satellite soil moisture signal is still being fetched.
const processingETAMinutes = 2

// Statuses of a Recommendation. Processing is a valid terminal response for
// a single request, distinct from failure: the caller retries after
// ETAMinutes.
const (
	StatusOK         = "ok"
	StatusProcessing = "processing"
)

// Options carries the tunable thresholds for the advisory pipeline.
type Options struct {
	DaysBack    int     // scene lookback window
	MaxCloudPct float64 // scene selection cloud threshold
	Policy      waterbalance.Policy
	CallTimeout time.Duration // bound on each remote collaborator call
}

// GeometryResult is the response of ComputeGeometry.
type GeometryResult struct {
	Centroid       domain.Centroid    `json:"centroid"`
	Area           domain.AreaMeasure `json:"area"`
	ClosedBoundary domain.Ring        `json:"closed_boundary"`
}

// Recommendation is the terminal response of GetRecommendation.
type Recommendation struct {
	Status     string `json:"status"`
	ETAMinutes int    `json:"eta_minutes,omitempty"`

	Field  string                  `json:"field,omitempty"`
	Crop   string                  `json:"crop,omitempty"`
	Policy waterbalance.Policy     `json:"policy,omitempty"`
	Today  *domain.WeatherSnapshot `json:"today,omitempty"`

	// Deficit-over-period policy. The amounts are pointers so a computed
	// zero (rain covered crop use, or irrigated today) still reaches the
	// wire; only a policy that never ran omits them.
	DaysSinceIrrigation *int                   `json:"since_last_irrigation_days,omitempty"`
	NetDeficitMM        *float64               `json:"net_deficit_mm,omitempty"`
	Tier                waterbalance.Tier      `json:"tier,omitempty"`
	Messages            []waterbalance.Message `json:"messages,omitempty"`

	// Single-event policy.
	RecommendationMM *float64 `json:"recommendation_mm,omitempty"`
	WindowDays       int      `json:"window_days,omitempty"`
	SoilMoisturePct  *float64 `json:"soil_moisture_pct,omitempty"`
}

// Service wires the pipeline stages behind the boundary adapter.
type Service struct {
	store    domain.FieldStore
	selector *satellite.SceneSelector
	indexer  *satellite.IndexComputer
	weather  *weather.Estimator
	soil     domain.SoilMoistureProvider // nil disables the satellite fallback
	pub      domain.AdvicePublisher      // nil disables advice events

	collection string
	opts       Options
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a Service. soil and pub may be nil.
func New(
	store domain.FieldStore,
	selector *satellite.SceneSelector,
	indexer *satellite.IndexComputer,
	estimator *weather.Estimator,
	soil domain.SoilMoistureProvider,
	pub domain.AdvicePublisher,
	collection string,
	opts Options,
	clock clockwork.Clock,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Service {
	return &Service{
		store:      store,
		selector:   selector,
		indexer:    indexer,
		weather:    estimator,
		soil:       soil,
		pub:        pub,
		collection: collection,
		opts:       opts,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness reports whether the service can serve traffic: the field
// store must be reachable. Remote imagery and weather collaborators are
// deliberately excluded; their unavailability degrades responses, it does
// not make the service unready.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if _, err := s.store.ListFields(ctx); err != nil {
		return fmt.Errorf("field store not reachable: %w", err)
	}
	return nil
}

// ComputeGeometry validates a raw GeoJSON boundary and returns its centroid,
// area, and closed ring. Purely local: no remote call is made, so malformed
// boundaries are rejected before the pipeline starts.
func (s *Service) ComputeGeometry(rawBoundary []byte) (*GeometryResult, error) {
	ring, err := geometry.ParseBoundary(rawBoundary)
	if err != nil {
		return nil, err
	}
	res := geometry.CentroidAndArea(ring)
	return &GeometryResult{
		Centroid:       res.Centroid,
		Area:           res.Area,
		ClosedBoundary: res.Closed,
	}, nil
}

// SelectAndIndex picks the best recent scene for a field and computes its
// index statistics. A nil result with nil error means no scene is available
// under the filters; callers treat that as "not available", not failure.
// Successful results are persisted for history.
func (s *Service) SelectAndIndex(ctx context.Context, fieldID string, daysBack int, maxCloudPct float64) (*domain.IndexResult, error) {
	field, err := s.store.GetField(ctx, fieldID)
	if err != nil {
		return nil, err
	}

	if daysBack <= 0 {
		daysBack = s.opts.DaysBack
	}
	if maxCloudPct <= 0 {
		maxCloudPct = s.opts.MaxCloudPct
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()
	scene, err := s.selector.Select(callCtx, field.Boundary, daysBack, maxCloudPct)
	if err != nil {
		return nil, err
	}
	if scene == nil {
		return nil, nil
	}

	clipCtx, cancelClip := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancelClip()
	result, err := s.indexer.Compute(clipCtx, *scene, field.Boundary)
	if err != nil {
		return nil, err
	}

	stat := domain.SceneStat{
		FieldID:    field.ID,
		Collection: s.collection,
		SceneID:    result.SceneID,
		SceneDate:  scene.AcquiredAt,
		NDVIMean:   result.NDVIMean,
		NDWIMean:   result.NDWIMean,
		CloudPct:   result.CloudPct,
	}
	if err := s.store.SaveSceneStat(ctx, &stat); err != nil {
		// Persistence is bookkeeping here; the computed result still stands.
		s.logger.Warn("failed to persist scene stat", "field_id", field.ID, "scene_id", result.SceneID, "error", err)
	}

	s.metrics.ServiceReady.Set(1)
	return &result, nil
}

// GetRecommendation produces irrigation advice for a stored field. The
// weather and soil moisture sub-paths run concurrently; a failure in one
// never blocks the other. Under the single-event policy a missing soil
// moisture signal yields a processing response rather than blocking.
func (s *Service) GetRecommendation(ctx context.Context, fieldID string, manualSoilMoisturePct *float64) (*Recommendation, error) {
	field, err := s.store.GetField(ctx, fieldID)
	if err != nil {
		return nil, err
	}

	snapshot, soilPct := s.gatherInputs(ctx, field, manualSoilMoisturePct)

	rec := &Recommendation{
		Status: StatusOK,
		Field:  field.Name,
		Crop:   field.Crop,
		Policy: s.opts.Policy,
		Today:  presentSnapshot(snapshot),
	}

	switch s.opts.Policy {
	case waterbalance.PolicySingleEvent:
		if soilPct == nil {
			s.metrics.Recommendations.WithLabelValues(string(s.opts.Policy), StatusProcessing).Inc()
			return &Recommendation{
				Status:     StatusProcessing,
				ETAMinutes: processingETAMinutes,
				Field:      field.Name,
				Policy:     s.opts.Policy,
			}, nil
		}
		advice := waterbalance.SingleEvent(field.Crop, snapshot.ET0MM, snapshot.RainfallMM, soilPct)
		rec.RecommendationMM = &advice.RecommendationMM
		rec.WindowDays = advice.WindowDays
		rec.SoilMoisturePct = soilPct

	default: // PolicyDeficitPeriod
		days := waterbalance.DaysSince(field.LastIrrigationAt, s.clock.Now().UTC())
		advice := waterbalance.Deficit(field.Crop, days, snapshot.ET0MM, snapshot.RainfallMM)
		rec.DaysSinceIrrigation = &advice.DaysSinceIrrigation
		rec.NetDeficitMM = &advice.NetDeficitMM
		rec.Tier = advice.Tier
		rec.Messages = advice.Messages
		s.metrics.AdviceTiers.WithLabelValues(string(advice.Tier)).Inc()
	}

	s.metrics.Recommendations.WithLabelValues(string(s.opts.Policy), StatusOK).Inc()
	s.publish(ctx, field, rec)
	s.metrics.ServiceReady.Set(1)
	return rec, nil
}

// gatherInputs runs the weather and soil sub-paths concurrently. Each gets
// its own bounded context so one slow collaborator cannot starve the other.
func (s *Service) gatherInputs(ctx context.Context, field *domain.FieldRecord, manualSoilPct *float64) (domain.WeatherSnapshot, *float64) {
	var (
		wg       sync.WaitGroup
		snapshot domain.WeatherSnapshot
		soilPct  *float64
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		wxCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
		defer cancel()
		snapshot = s.weather.Estimate(wxCtx, field.Centroid.Lat, field.Centroid.Lon)
	}()

	needSoil := s.opts.Policy == waterbalance.PolicySingleEvent
	switch {
	case manualSoilPct != nil:
		soilPct = manualSoilPct
	case needSoil && s.soil != nil:
		wg.Add(1)
		go func() {
			defer wg.Done()
			soilCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
			defer cancel()
			pct, err := s.soil.SoilMoisture(soilCtx, field.Centroid.Lat, field.Centroid.Lon)
			if err != nil {
				// Soil moisture is a fallback signal; its failure degrades
				// to the processing response, never to a request failure.
				s.metrics.SoilMoistureRequests.WithLabelValues("error").Inc()
				s.logger.Warn("soil moisture fetch failed", "field_id", field.ID, "error", err)
				return
			}
			if pct == nil {
				s.metrics.SoilMoistureRequests.WithLabelValues("unavailable").Inc()
				return
			}
			s.metrics.SoilMoistureRequests.WithLabelValues("success").Inc()
			soilPct = pct
		}()
	}

	wg.Wait()
	return snapshot, soilPct
}

// publish emits an advice event when a publisher is configured. Publishing
// is best-effort: the recommendation has already been computed.
func (s *Service) publish(ctx context.Context, field *domain.FieldRecord, rec *Recommendation) {
	if s.pub == nil {
		return
	}
	event := domain.AdviceEvent{
		FieldID:          field.ID,
		Crop:             field.Crop,
		Policy:           string(rec.Policy),
		Tier:             string(rec.Tier),
		NetDeficitMM:     rec.NetDeficitMM,
		RecommendationMM: rec.RecommendationMM,
		IssuedAt:         s.clock.Now().UTC(),
	}
	if err := s.pub.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish advice event", "field_id", field.ID, "error", err)
	}
}

// ConfirmRecommendation stores a farmer-confirmed schedule for a field.
func (s *Service) ConfirmRecommendation(ctx context.Context, fieldID string, recommendationMM float64, windowDays int, notes string, inputs any) (*domain.ScheduleRecord, error) {
	if _, err := s.store.GetField(ctx, fieldID); err != nil {
		return nil, err
	}
	if recommendationMM <= 0 {
		return nil, errors.New("recommendation_mm must be positive")
	}
	if windowDays <= 0 {
		windowDays = waterbalance.WindowDays
	}

	snapshot := ""
	if inputs != nil {
		data, err := json.Marshal(inputs)
		if err != nil {
			return nil, fmt.Errorf("encode inputs snapshot: %w", err)
		}
		snapshot = string(data)
	}

	schedule := &domain.ScheduleRecord{
		FieldID:          fieldID,
		RecommendationMM: recommendationMM,
		WindowDays:       windowDays,
		Inputs:           snapshot,
		Notes:            notes,
		Confirmed:        true,
		CreatedAt:        s.clock.Now().UTC(),
	}
	if err := s.store.SaveSchedule(ctx, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// presentSnapshot applies boundary rounding to the weather snapshot.
func presentSnapshot(snap domain.WeatherSnapshot) *domain.WeatherSnapshot {
	return &domain.WeatherSnapshot{
		MeanTempC:  waterbalance.Round1(snap.MeanTempC),
		RainfallMM: waterbalance.Round1(snap.RainfallMM),
		ET0MM:      waterbalance.Round1(snap.ET0MM),
	}
}
