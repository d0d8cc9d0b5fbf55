// Package store persists fields, scene statistics, and confirmed schedules
// in SQLite via GORM. The driver is CGO-free so the service stays a static
// binary.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fieldpulse/irrigation-advisory/internal/domain"
)

// Store implements domain.FieldStore on a GORM SQLite database.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}
	if err := db.AutoMigrate(&fieldModel{}, &sceneStatModel{}, &scheduleModel{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// CreateField inserts a field, assigning an ID when the record has none.
func (s *Store) CreateField(ctx context.Context, field *domain.FieldRecord) error {
	if field.ID == "" {
		field.ID = uuid.NewString()
	}
	m, err := toFieldModel(field)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("create field: %w", err)
	}
	return nil
}

// GetField loads one field by ID.
func (s *Store) GetField(ctx context.Context, id string) (*domain.FieldRecord, error) {
	var m fieldModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrFieldNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get field: %w", err)
	}
	return m.toDomain()
}

// ListFields returns all fields, newest first.
func (s *Store) ListFields(ctx context.Context) ([]domain.FieldRecord, error) {
	var models []fieldModel
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}
	fields := make([]domain.FieldRecord, 0, len(models))
	for _, m := range models {
		f, err := m.toDomain()
		if err != nil {
			return nil, err
		}
		fields = append(fields, *f)
	}
	return fields, nil
}

// UpdateField saves the full field record.
func (s *Store) UpdateField(ctx context.Context, field *domain.FieldRecord) error {
	m, err := toFieldModel(field)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&fieldModel{}).Where("id = ?", field.ID).Updates(m)
	if res.Error != nil {
		return fmt.Errorf("update field: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrFieldNotFound
	}
	return nil
}

// SaveSceneStat appends a scene statistic for a field.
func (s *Store) SaveSceneStat(ctx context.Context, stat *domain.SceneStat) error {
	m := &sceneStatModel{
		ID:         uuid.NewString(),
		FieldID:    stat.FieldID,
		Collection: stat.Collection,
		SceneID:    stat.SceneID,
		SceneDate:  stat.SceneDate,
		NDVIMean:   stat.NDVIMean,
		NDWIMean:   stat.NDWIMean,
		CloudPct:   stat.CloudPct,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("save scene stat: %w", err)
	}
	return nil
}

// ListSceneStats returns up to limit statistics for a field, newest scene
// first. A non-positive limit returns everything.
func (s *Store) ListSceneStats(ctx context.Context, fieldID string, limit int) ([]domain.SceneStat, error) {
	q := s.db.WithContext(ctx).Where("field_id = ?", fieldID).Order("scene_date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var models []sceneStatModel
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list scene stats: %w", err)
	}
	stats := make([]domain.SceneStat, 0, len(models))
	for _, m := range models {
		stats = append(stats, domain.SceneStat{
			FieldID:    m.FieldID,
			Collection: m.Collection,
			SceneID:    m.SceneID,
			SceneDate:  m.SceneDate,
			NDVIMean:   m.NDVIMean,
			NDWIMean:   m.NDWIMean,
			CloudPct:   m.CloudPct,
		})
	}
	return stats, nil
}

// SaveSchedule inserts a confirmed schedule, assigning an ID when missing.
func (s *Store) SaveSchedule(ctx context.Context, schedule *domain.ScheduleRecord) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	m := &scheduleModel{
		ID:               schedule.ID,
		FieldID:          schedule.FieldID,
		RecommendationMM: schedule.RecommendationMM,
		WindowDays:       schedule.WindowDays,
		Inputs:           schedule.Inputs,
		Notes:            schedule.Notes,
		Confirmed:        schedule.Confirmed,
		CreatedAt:        schedule.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}
	return nil
}

// ListSchedules returns up to limit schedules for a field, newest first.
func (s *Store) ListSchedules(ctx context.Context, fieldID string, limit int) ([]domain.ScheduleRecord, error) {
	q := s.db.WithContext(ctx).Where("field_id = ?", fieldID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var models []scheduleModel
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	schedules := make([]domain.ScheduleRecord, 0, len(models))
	for _, m := range models {
		schedules = append(schedules, domain.ScheduleRecord{
			ID:               m.ID,
			FieldID:          m.FieldID,
			RecommendationMM: m.RecommendationMM,
			WindowDays:       m.WindowDays,
			Inputs:           m.Inputs,
			Notes:            m.Notes,
			Confirmed:        m.Confirmed,
			CreatedAt:        m.CreatedAt,
		})
	}
	return schedules, nil
}

// Database models. The boundary ring is stored as JSON text; SQLite has no
// native geometry type and the service never queries inside it.

type fieldModel struct {
	ID               string `gorm:"primaryKey"`
	Name             string
	Crop             string
	Boundary         string
	CentroidLat      float64
	CentroidLon      float64
	AreaHectares     float64
	AreaAcres        float64
	LastIrrigationAt *time.Time
	CreatedAt        time.Time
}

func (fieldModel) TableName() string { return "fields" }

type sceneStatModel struct {
	ID         string `gorm:"primaryKey"`
	FieldID    string `gorm:"index"`
	Collection string
	SceneID    string
	SceneDate  time.Time
	NDVIMean   *float64
	NDWIMean   *float64
	CloudPct   float64
	CreatedAt  time.Time
}

func (sceneStatModel) TableName() string { return "scene_stats" }

type scheduleModel struct {
	ID               string `gorm:"primaryKey"`
	FieldID          string `gorm:"index"`
	RecommendationMM float64
	WindowDays       int
	Inputs           string
	Notes            string
	Confirmed        bool
	CreatedAt        time.Time
}

func (scheduleModel) TableName() string { return "schedules" }

func toFieldModel(f *domain.FieldRecord) (*fieldModel, error) {
	boundary, err := json.Marshal(f.Boundary)
	if err != nil {
		return nil, fmt.Errorf("encode boundary: %w", err)
	}
	return &fieldModel{
		ID:               f.ID,
		Name:             f.Name,
		Crop:             f.Crop,
		Boundary:         string(boundary),
		CentroidLat:      f.Centroid.Lat,
		CentroidLon:      f.Centroid.Lon,
		AreaHectares:     f.Area.Hectares,
		AreaAcres:        f.Area.Acres,
		LastIrrigationAt: f.LastIrrigationAt,
		CreatedAt:        f.CreatedAt,
	}, nil
}

func (m *fieldModel) toDomain() (*domain.FieldRecord, error) {
	var boundary domain.Ring
	if m.Boundary != "" {
		if err := json.Unmarshal([]byte(m.Boundary), &boundary); err != nil {
			return nil, fmt.Errorf("decode boundary for field %s: %w", m.ID, err)
		}
	}
	return &domain.FieldRecord{
		ID:               m.ID,
		Name:             m.Name,
		Crop:             m.Crop,
		Boundary:         boundary,
		Centroid:         domain.Centroid{Lat: m.CentroidLat, Lon: m.CentroidLon},
		Area:             domain.AreaMeasure{Hectares: m.AreaHectares, Acres: m.AreaAcres},
		LastIrrigationAt: m.LastIrrigationAt,
		CreatedAt:        m.CreatedAt,
	}, nil
}
