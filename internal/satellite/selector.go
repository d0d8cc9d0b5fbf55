// Package satellite selects imagery scenes for a field and turns their
// spectral bands into per-field vegetation and moisture statistics.
package satellite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fieldpulse/irrigation-advisory/internal/domain"
	"github.com/fieldpulse/irrigation-advisory/internal/observability"
)

const searchLimit = 5

// SceneSelector picks the most recent low-cloud scene intersecting a polygon.
type SceneSelector struct {
	catalog    domain.Catalog
	collection string
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewSceneSelector creates a selector over one sensor collection.
func NewSceneSelector(catalog domain.Catalog, collection string, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *SceneSelector {
	return &SceneSelector{
		catalog:    catalog,
		collection: collection,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// Select returns the newest scene within [today-daysBack, today] whose
// whole-scene cloud cover is strictly below maxCloudPct, or nil when no
// scene qualifies. A nil result is "no data available", not a failure;
// catalog I/O failures wrap domain.ErrTransient.
func (s *SceneSelector) Select(ctx context.Context, polygon domain.Ring, daysBack int, maxCloudPct float64) (*domain.SceneReference, error) {
	end := s.clock.Now().UTC()
	start := end.AddDate(0, 0, -daysBack)

	scenes, err := s.catalog.Search(ctx, domain.SceneQuery{
		Collection: s.collection,
		Polygon:    polygon,
		Start:      start,
		End:        end,
		CloudLT:    maxCloudPct,
		Limit:      searchLimit,
	})
	if err != nil {
		s.metrics.CatalogSearches.WithLabelValues("error").Inc()
		if errors.Is(err, domain.ErrTransient) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: catalog search: %v", domain.ErrTransient, err)
	}

	// The catalog is asked for the filters too, but results are re-filtered
	// and re-sorted here so the contract does not depend on server behavior.
	best := pickScene(scenes, start, end, maxCloudPct)
	if best == nil {
		s.metrics.CatalogSearches.WithLabelValues("empty").Inc()
		s.logger.Info("no scene available",
			"collection", s.collection,
			"days_back", daysBack,
			"max_cloud_pct", maxCloudPct,
		)
		return nil, nil
	}

	s.metrics.CatalogSearches.WithLabelValues("success").Inc()
	s.logger.Debug("scene selected",
		"scene_id", best.ID,
		"acquired_at", best.AcquiredAt,
		"cloud_cover", best.CloudCover,
	)
	return best, nil
}

// pickScene filters to the date window and cloud threshold, sorts newest
// first, and returns the top scene.
func pickScene(scenes []domain.SceneReference, start, end time.Time, maxCloudPct float64) *domain.SceneReference {
	eligible := make([]domain.SceneReference, 0, len(scenes))
	for _, sc := range scenes {
		if sc.CloudCover >= maxCloudPct {
			continue
		}
		if sc.AcquiredAt.Before(start) || sc.AcquiredAt.After(end) {
			continue
		}
		eligible = append(eligible, sc)
	}
	if len(eligible) == 0 {
		return nil
	}
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].AcquiredAt.After(eligible[j].AcquiredAt)
	})
	return &eligible[0]
}
