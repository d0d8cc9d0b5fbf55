// Package raster implements domain.RasterAccessor against the clip service,
// a sidecar that opens remote band assets and clips them to a polygon.
package raster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fieldpulse/irrigation-advisory/internal/domain"
	"github.com/fieldpulse/irrigation-advisory/internal/observability"
)

// Client calls the clip service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a clip service client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metrics,
	}
}

// OpenAndClip fetches one band asset clipped to the polygon. The response
// grid is row-major; mask[i] is true for cells carrying data. Failures wrap
// domain.ErrTransient because the sidecar or the asset host may recover.
func (c *Client) OpenAndClip(ctx context.Context, locator string, polygon domain.Ring, allTouched bool) (domain.Raster, error) {
	start := time.Now()
	raster, err := c.clip(ctx, locator, polygon, allTouched)
	c.metrics.CollaboratorDuration.WithLabelValues("raster").Observe(time.Since(start).Seconds())
	return raster, err
}

func (c *Client) clip(ctx context.Context, locator string, polygon domain.Ring, allTouched bool) (domain.Raster, error) {
	coords := make([][]float64, len(polygon))
	for i, v := range polygon {
		coords[i] = []float64{v[0], v[1]}
	}
	payload, err := json.Marshal(clipRequest{
		Href: locator,
		Geometry: geometry{
			Type:        "Polygon",
			Coordinates: [][][]float64{coords},
		},
		AllTouched: allTouched,
	})
	if err != nil {
		return domain.Raster{}, fmt.Errorf("encode clip request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/clip", bytes.NewReader(payload))
	if err != nil {
		return domain.Raster{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Raster{}, fmt.Errorf("%w: clip request: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return domain.Raster{}, fmt.Errorf("%w: clip service returned status %d: %s", domain.ErrTransient, resp.StatusCode, raw)
	}

	var cr clipResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return domain.Raster{}, fmt.Errorf("%w: decode clip response: %v", domain.ErrTransient, err)
	}

	if len(cr.Values) != cr.Width*cr.Height || len(cr.Mask) != len(cr.Values) {
		return domain.Raster{}, fmt.Errorf("clip response grid mismatch: %dx%d with %d values, %d mask cells",
			cr.Width, cr.Height, len(cr.Values), len(cr.Mask))
	}

	return domain.Raster{
		Width:  cr.Width,
		Height: cr.Height,
		Values: cr.Values,
		Valid:  cr.Mask,
	}, nil
}

// Clip service request and response types.

type clipRequest struct {
	Href       string   `json:"href"`
	Geometry   geometry `json:"geometry"`
	AllTouched bool     `json:"all_touched"`
}

type geometry struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

type clipResponse struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Values []float64 `json:"values"`
	Mask   []bool    `json:"mask"`
}
