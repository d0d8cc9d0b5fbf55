package satellite

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/montanaflynn/stats"

	"github.com/fieldpulse/irrigation-advisory/internal/domain"
	"github.com/fieldpulse/irrigation-advisory/internal/observability"
)

// Sentinel-2 L2A asset keys.
const (
	bandRed  = "B04"
	bandNIR  = "B08"
	bandSWIR = "B11"
	bandSCL  = "SCL"
)

// epsilon keeps the normalized-difference denominators away from zero when
// both bands read zero. Part of the index contract, not tunable.
const epsilon = 1e-6

// badSCLClasses are the scene-classification values masked before index
// aggregation: 3 cloud shadow, 8 cloud medium probability, 9 cloud high
// probability, 10 cirrus.
var badSCLClasses = map[int]struct{}{3: {}, 8: {}, 9: {}, 10: {}}

// IndexComputer clips spectral bands to a field polygon and aggregates
// cloud-masked NDVI and NDWI means.
type IndexComputer struct {
	rasters domain.RasterAccessor
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewIndexComputer creates an IndexComputer over a raster accessor.
func NewIndexComputer(rasters domain.RasterAccessor, logger *slog.Logger, metrics *observability.Metrics) *IndexComputer {
	return &IndexComputer{rasters: rasters, logger: logger, metrics: metrics}
}

// Compute fetches the red, NIR, SWIR, and scene-classification bands clipped
// to the polygon (all-touched), masks cloud and shadow pixels, and returns
// the mean NDVI and NDWI over the remaining valid pixels. A mean over zero
// valid pixels is reported as nil, never 0 or NaN. Raster I/O failures wrap
// domain.ErrTransient.
func (c *IndexComputer) Compute(ctx context.Context, scene domain.SceneReference, polygon domain.Ring) (domain.IndexResult, error) {
	bands, err := c.fetchBands(ctx, scene, polygon)
	if err != nil {
		c.metrics.RasterClips.WithLabelValues("error").Inc()
		return domain.IndexResult{}, err
	}
	c.metrics.RasterClips.WithLabelValues("success").Inc()

	red, nir, swir, scl := bands[bandRed], bands[bandNIR], bands[bandSWIR], bands[bandSCL]
	if len(nir.Values) != len(red.Values) || len(nir.Values) != len(swir.Values) || len(nir.Values) != len(scl.Values) {
		return domain.IndexResult{}, fmt.Errorf("band grids misaligned for scene %s", scene.ID)
	}

	// Each index aggregates over its own band pair: a nodata cell in SWIR
	// must not shrink the NDVI sample, and vice versa.
	ndvi := make([]float64, 0, len(nir.Values))
	ndwi := make([]float64, 0, len(nir.Values))
	for i := range nir.Values {
		if !nir.Valid[i] || !scl.Valid[i] {
			continue
		}
		if _, bad := badSCLClasses[int(scl.Values[i])]; bad {
			continue
		}
		n := nir.Values[i]
		if red.Valid[i] {
			v := (n - red.Values[i]) / (n + red.Values[i] + epsilon)
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				ndvi = append(ndvi, v)
			}
		}
		if swir.Valid[i] {
			w := (n - swir.Values[i]) / (n + swir.Values[i] + epsilon)
			if !math.IsNaN(w) && !math.IsInf(w, 0) {
				ndwi = append(ndwi, w)
			}
		}
	}

	result := domain.IndexResult{
		NDVIMean: finiteMean(ndvi),
		NDWIMean: finiteMean(ndwi),
		CloudPct: scene.CloudCover,
		SceneID:  scene.ID,
	}
	c.logger.Debug("indices computed",
		"scene_id", scene.ID,
		"ndvi_pixels", len(ndvi),
		"ndwi_pixels", len(ndwi),
		"total_pixels", len(nir.Values),
	)
	return result, nil
}

// fetchBands clips the four bands concurrently. The accessor contract
// guarantees all bands for one polygon come back on the same grid.
func (c *IndexComputer) fetchBands(ctx context.Context, scene domain.SceneReference, polygon domain.Ring) (map[string]domain.Raster, error) {
	keys := []string{bandRed, bandNIR, bandSWIR, bandSCL}

	// Resolve every asset before launching anything, so a missing band
	// never leaves clip goroutines from earlier bands in flight.
	locators := make(map[string]string, len(keys))
	for _, key := range keys {
		locator, ok := scene.Assets[key]
		if !ok {
			return nil, fmt.Errorf("scene %s is missing asset %s", scene.ID, key)
		}
		locators[key] = locator
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		rasters = make(map[string]domain.Raster, len(keys))
		errs    = make([]error, 0, len(keys))
	)
	for _, key := range keys {
		locator := locators[key]
		wg.Add(1)
		go func(key, locator string) {
			defer wg.Done()
			raster, err := c.rasters.OpenAndClip(ctx, locator, polygon, true)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("clip %s: %v", key, err))
				return
			}
			rasters[key] = raster
		}(key, locator)
	}
	wg.Wait()

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransient, errs[0])
	}
	return rasters, nil
}

// finiteMean returns the arithmetic mean of vals, or nil when there are no
// values or the mean is non-finite. The nil is load-bearing: downstream
// consumers must be able to tell "no valid pixels" from an index of zero.
func finiteMean(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	m, err := stats.Mean(vals)
	if err != nil || math.IsNaN(m) || math.IsInf(m, 0) {
		return nil
	}
	return &m
}
