package domain

import (
	"context"
	"time"
)

// SceneQuery describes a spatiotemporal catalog search.
type SceneQuery struct {
	Collection string
	Polygon    Ring
	Start      time.Time
	End        time.Time
	CloudLT    float64 // whole-scene cloud cover must be strictly below this
	Limit      int
}

// Catalog searches a remote imagery catalog for scenes intersecting a polygon.
// Implementations return scenes sorted by acquisition date descending.
type Catalog interface {
	Search(ctx context.Context, q SceneQuery) ([]SceneReference, error)
}

// Raster is a clipped 2D band in row-major order. Valid marks cells that
// carry data; cells outside the clip geometry or flagged by the source
// nodata mask are invalid.
type Raster struct {
	Width  int
	Height int
	Values []float64
	Valid  []bool
}

// RasterAccessor fetches a band raster and clips it to a polygon.
// allTouched keeps pixels that only partially intersect the polygon.
type RasterAccessor interface {
	OpenAndClip(ctx context.Context, locator string, polygon Ring, allTouched bool) (Raster, error)
}

// ForecastStep is one fixed-cadence forecast record (3-hour steps for the
// default provider).
type ForecastStep struct {
	Time   time.Time
	TempC  float64
	RainMM float64
}

// ForecastProvider returns a short-range forecast for a point, ordered by time.
type ForecastProvider interface {
	Forecast(ctx context.Context, lat, lon float64) ([]ForecastStep, error)
}

// SoilMoistureProvider estimates volumetric soil moisture (percent) at a
// point from remote sensing. A nil value with nil error means no usable
// signal is available right now; callers must not treat that as zero.
type SoilMoistureProvider interface {
	SoilMoisture(ctx context.Context, lat, lon float64) (*float64, error)
}

// FieldStore persists fields, their scene statistics, and confirmed schedules.
type FieldStore interface {
	CreateField(ctx context.Context, field *FieldRecord) error
	GetField(ctx context.Context, id string) (*FieldRecord, error)
	ListFields(ctx context.Context) ([]FieldRecord, error)
	UpdateField(ctx context.Context, field *FieldRecord) error

	SaveSceneStat(ctx context.Context, stat *SceneStat) error
	ListSceneStats(ctx context.Context, fieldID string, limit int) ([]SceneStat, error)

	SaveSchedule(ctx context.Context, schedule *ScheduleRecord) error
	ListSchedules(ctx context.Context, fieldID string, limit int) ([]ScheduleRecord, error)
}

// AdvicePublisher emits recommendation events for downstream consumers.
type AdvicePublisher interface {
	Publish(ctx context.Context, event AdviceEvent) error
}
