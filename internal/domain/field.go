package domain

import (
	"time"
)

// Ring is a polygon ring of (lon, lat) vertices in WGS-84. A closed ring
// repeats its first vertex at the end; callers normalize via geometry.CloseRing.
type Ring [][]float64

// Centroid is a WGS-84 latitude/longitude pair derived from a field boundary.
// It is recomputed with the boundary and never cached independently of it.
type Centroid struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// AreaMeasure is the field area in both units, derived from the same planar
// projection as the centroid.
type AreaMeasure struct {
	Hectares float64 `json:"hectares"`
	Acres    float64 `json:"acres"`
}

// FieldRecord is a stored field: boundary, crop, and irrigation history.
type FieldRecord struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Crop             string      `json:"crop,omitempty"`
	Boundary         Ring        `json:"boundary"`
	Centroid         Centroid    `json:"centroid"`
	Area             AreaMeasure `json:"area"`
	LastIrrigationAt *time.Time  `json:"last_irrigation_at,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// SceneReference identifies one satellite acquisition selected for a field.
// Assets maps band keys (B04, B08, B11, SCL) to raster locators.
type SceneReference struct {
	ID         string            `json:"id"`
	AcquiredAt time.Time         `json:"acquired_at"`
	CloudCover float64           `json:"cloud_cover"`
	Assets     map[string]string `json:"-"`
}

// IndexResult holds per-field spectral index means for one scene.
// A nil mean indicates every pixel in the clipped AOI was invalid after
// masking. That is a valid outcome, distinct from 0.0.
type IndexResult struct {
	NDVIMean *float64 `json:"ndvi_mean"`
	NDWIMean *float64 `json:"ndwi_mean"`
	CloudPct float64  `json:"cloud_pct"`
	SceneID  string   `json:"scene_id"`
}

// SceneStat is a persisted IndexResult with provenance, one row per
// field/scene pair.
type SceneStat struct {
	FieldID    string    `json:"field_id"`
	Collection string    `json:"collection"`
	SceneID    string    `json:"scene_id"`
	SceneDate  time.Time `json:"scene_date"`
	NDVIMean   *float64  `json:"ndvi_mean"`
	NDWIMean   *float64  `json:"ndwi_mean"`
	CloudPct   float64   `json:"cloud_pct"`
}

// WeatherSnapshot summarizes the next ~24h of forecast at a point.
type WeatherSnapshot struct {
	MeanTempC  float64 `json:"temp_c"`
	RainfallMM float64 `json:"rainfall_forecast_mm"`
	ET0MM      float64 `json:"et0_mm"`
}

// ScheduleRecord is a farmer-confirmed irrigation recommendation.
type ScheduleRecord struct {
	ID               string    `json:"id"`
	FieldID          string    `json:"field_id"`
	RecommendationMM float64   `json:"recommendation_mm"`
	WindowDays       int       `json:"window_days"`
	Inputs           string    `json:"inputs,omitempty"` // JSON snapshot of the inputs at confirmation time
	Notes            string    `json:"notes,omitempty"`
	Confirmed        bool      `json:"confirmed"`
	CreatedAt        time.Time `json:"created_at"`
}

// AdviceEvent is the serialized form of a recommendation published to the
// advice topic for downstream consumers (SMS alerts, dashboards).
type AdviceEvent struct {
	FieldID          string    `json:"field_id"`
	Crop             string    `json:"crop,omitempty"`
	Policy           string    `json:"policy"`
	Tier             string    `json:"tier,omitempty"`
	NetDeficitMM     *float64  `json:"net_deficit_mm,omitempty"`
	RecommendationMM *float64  `json:"recommendation_mm,omitempty"`
	IssuedAt         time.Time `json:"issued_at"`
}
