// Package httpapi exposes the advisory service over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fieldpulse/irrigation-advisory/internal/advisor"
	"github.com/fieldpulse/irrigation-advisory/internal/domain"
)

// Advisor is the advisory pipeline surface the handlers call.
type Advisor interface {
	CheckReadiness(ctx context.Context) error
	ComputeGeometry(rawBoundary []byte) (*advisor.GeometryResult, error)
	SelectAndIndex(ctx context.Context, fieldID string, daysBack int, maxCloudPct float64) (*domain.IndexResult, error)
	GetRecommendation(ctx context.Context, fieldID string, manualSoilMoisturePct *float64) (*advisor.Recommendation, error)
	ConfirmRecommendation(ctx context.Context, fieldID string, recommendationMM float64, windowDays int, notes string, inputs any) (*domain.ScheduleRecord, error)
}

// Server exposes the advisory API plus health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	advisor    Advisor
	store      domain.FieldStore
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewServer creates the HTTP server and mounts all routes.
func NewServer(addr string, adv Advisor, store domain.FieldStore, clock clockwork.Clock, logger *slog.Logger) *Server {
	s := &Server{
		advisor: adv,
		store:   store,
		clock:   clock,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/geometry", s.handleGeometry)

	r.Route("/fields", func(r chi.Router) {
		r.Post("/", s.handleCreateField)
		r.Get("/", s.handleListFields)
		r.Route("/{fieldID}", func(r chi.Router) {
			r.Get("/", s.handleGetField)
			r.Patch("/", s.handleUpdateField)
			r.Get("/indices", s.handleIndices)
			r.Get("/recommendation", s.handleRecommendation)
			r.Post("/recommendation/confirm", s.handleConfirm)
			r.Get("/schedules", s.handleSchedules)
			r.Get("/stats", s.handleSceneStats)
		})
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.advisor.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
