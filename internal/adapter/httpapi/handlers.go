package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fieldpulse/irrigation-advisory/internal/advisor"
	"github.com/fieldpulse/irrigation-advisory/internal/domain"
)

type createFieldRequest struct {
	Name             string          `json:"name"`
	Crop             string          `json:"crop"`
	Boundary         json.RawMessage `json:"boundary"`
	LastIrrigationAt *time.Time      `json:"last_irrigation_at,omitempty"`
}

type updateFieldRequest struct {
	Name             *string         `json:"name,omitempty"`
	Crop             *string         `json:"crop,omitempty"`
	Boundary         json.RawMessage `json:"boundary,omitempty"`
	LastIrrigationAt *time.Time      `json:"last_irrigation_at,omitempty"`
}

type geometryRequest struct {
	Boundary json.RawMessage `json:"boundary"`
}

type confirmRequest struct {
	RecommendationMM float64        `json:"recommendation_mm"`
	WindowDays       int            `json:"window_days,omitempty"`
	Notes            string         `json:"notes,omitempty"`
	Inputs           map[string]any `json:"inputs,omitempty"`
}

type indicesResponse struct {
	Status string              `json:"status"`
	Result *domain.IndexResult `json:"result,omitempty"`
}

func (s *Server) handleCreateField(w http.ResponseWriter, r *http.Request) {
	var req createFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if req.Name == "" || req.Crop == "" || len(req.Boundary) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("name, crop, and boundary are required"))
		return
	}

	geo, err := s.advisor.ComputeGeometry(req.Boundary)
	if err != nil {
		s.writeError(w, err)
		return
	}

	field := &domain.FieldRecord{
		Name:             req.Name,
		Crop:             req.Crop,
		Boundary:         geo.ClosedBoundary,
		Centroid:         geo.Centroid,
		Area:             geo.Area,
		LastIrrigationAt: req.LastIrrigationAt,
		CreatedAt:        s.clock.Now().UTC(),
	}
	if err := s.store.CreateField(r.Context(), field); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, field)
}

func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	fields, err := s.store.ListFields(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fields)
}

func (s *Server) handleGetField(w http.ResponseWriter, r *http.Request) {
	field, err := s.store.GetField(r.Context(), chi.URLParam(r, "fieldID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, field)
}

func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	field, err := s.store.GetField(r.Context(), chi.URLParam(r, "fieldID"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req updateFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	if req.Name != nil {
		field.Name = *req.Name
	}
	if req.Crop != nil {
		field.Crop = *req.Crop
	}
	if req.LastIrrigationAt != nil {
		field.LastIrrigationAt = req.LastIrrigationAt
	}
	if len(req.Boundary) > 0 {
		geo, err := s.advisor.ComputeGeometry(req.Boundary)
		if err != nil {
			s.writeError(w, err)
			return
		}
		field.Boundary = geo.ClosedBoundary
		field.Centroid = geo.Centroid
		field.Area = geo.Area
	}

	if err := s.store.UpdateField(r.Context(), field); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, field)
}

func (s *Server) handleGeometry(w http.ResponseWriter, r *http.Request) {
	var req geometryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	// Accept both a wrapped {"boundary": ...} body and a bare geometry.
	raw := req.Boundary
	if len(raw) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("boundary is required"))
		return
	}

	geo, err := s.advisor.ComputeGeometry(raw)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, geo)
}

func (s *Server) handleIndices(w http.ResponseWriter, r *http.Request) {
	daysBack, _ := strconv.Atoi(r.URL.Query().Get("days_back"))
	maxCloudPct, _ := strconv.ParseFloat(r.URL.Query().Get("max_cloud_pct"), 64)

	result, err := s.advisor.SelectAndIndex(r.Context(), chi.URLParam(r, "fieldID"), daysBack, maxCloudPct)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if result == nil {
		writeJSON(w, http.StatusOK, indicesResponse{Status: "not-available"})
		return
	}
	writeJSON(w, http.StatusOK, indicesResponse{Status: "ok", Result: result})
}

func (s *Server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	var manualSoil *float64
	if raw := r.URL.Query().Get("soil_moisture_pct"); raw != "" {
		pct, err := strconv.ParseFloat(raw, 64)
		if err != nil || pct < 0 || pct > 100 {
			writeJSON(w, http.StatusBadRequest, errorBody("soil_moisture_pct must be a percent in [0, 100]"))
			return
		}
		manualSoil = &pct
	}

	rec, err := s.advisor.GetRecommendation(r.Context(), chi.URLParam(r, "fieldID"), manualSoil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if rec.Status == advisor.StatusProcessing {
		writeJSON(w, http.StatusAccepted, rec)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if req.RecommendationMM <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("recommendation_mm must be positive"))
		return
	}

	var inputs any
	if req.Inputs != nil {
		inputs = req.Inputs
	}
	schedule, err := s.advisor.ConfirmRecommendation(r.Context(), chi.URLParam(r, "fieldID"), req.RecommendationMM, req.WindowDays, req.Notes, inputs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, schedule)
}

func (s *Server) handleSchedules(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	schedules, err := s.store.ListSchedules(r.Context(), chi.URLParam(r, "fieldID"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schedules)
}

func (s *Server) handleSceneStats(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	stats, err := s.store.ListSceneStats(r.Context(), chi.URLParam(r, "fieldID"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrFieldNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("field not found"))
	case errors.Is(err, domain.ErrInvalidBoundary):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, domain.ErrTransient):
		writeJSON(w, http.StatusServiceUnavailable, errorBody("upstream data source unavailable, retry later"))
	default:
		s.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
