// Package stac implements domain.Catalog against a STAC API search endpoint.
package stac

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	geojson "github.com/paulmach/go.geojson"

	"github.com/fieldpulse/irrigation-advisory/internal/domain"
	"github.com/fieldpulse/irrigation-advisory/internal/geometry"
	"github.com/fieldpulse/irrigation-advisory/internal/observability"
)

// assetAliases maps the asset keys published by known catalogs onto the
// canonical Sentinel-2 band names the rest of the service uses. Earth Search
// publishes lowercase common names; self-hosted catalogs tend to keep the
// band identifiers.
var assetAliases = map[string]string{
	"red":    "B04",
	"nir":    "B08",
	"swir16": "B11",
	"scl":    "SCL",
	"B04":    "B04",
	"B08":    "B08",
	"B11":    "B11",
	"SCL":    "SCL",
}

// Client implements domain.Catalog using a STAC API /search endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a STAC search client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metrics,
	}
}

// Search runs a POST /search against the catalog. Results come back sorted
// by acquisition date descending; the cloud filter is strict less-than.
// Network and server failures wrap domain.ErrTransient. Outcome counters
// live in the scene selector; only the call duration is recorded here.
func (c *Client) Search(ctx context.Context, q domain.SceneQuery) ([]domain.SceneReference, error) {
	start := time.Now()
	scenes, err := c.search(ctx, q)
	c.metrics.CollaboratorDuration.WithLabelValues("catalog").Observe(time.Since(start).Seconds())
	return scenes, err
}

func (c *Client) search(ctx context.Context, q domain.SceneQuery) ([]domain.SceneReference, error) {
	body := searchRequest{
		Collections: []string{q.Collection},
		Intersects:  geometry.ToGeoJSON(q.Polygon),
		Datetime:    fmt.Sprintf("%s/%s", q.Start.UTC().Format(time.RFC3339), q.End.UTC().Format(time.RFC3339)),
		Limit:       q.Limit,
		Query: map[string]map[string]float64{
			"eo:cloud_cover": {"lt": q.CloudLT},
		},
		SortBy: []sortSpec{{Field: "properties.datetime", Direction: "desc"}},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: catalog search: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: catalog returned status %d: %s", domain.ErrTransient, resp.StatusCode, raw)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("%w: decode catalog response: %v", domain.ErrTransient, err)
	}

	scenes := make([]domain.SceneReference, 0, len(sr.Features))
	for _, f := range sr.Features {
		acquired, err := time.Parse(time.RFC3339, f.Properties.Datetime)
		if err != nil {
			c.logger.Warn("skipping scene with unparseable datetime", "scene_id", f.ID, "datetime", f.Properties.Datetime)
			continue
		}
		assets := make(map[string]string, 4)
		for key, a := range f.Assets {
			if canonical, ok := assetAliases[key]; ok && a.Href != "" {
				assets[canonical] = a.Href
			}
		}
		scenes = append(scenes, domain.SceneReference{
			ID:         f.ID,
			AcquiredAt: acquired,
			CloudCover: f.Properties.CloudCover,
			Assets:     assets,
		})
	}
	return scenes, nil
}

// STAC API request and response types.

type searchRequest struct {
	Collections []string                      `json:"collections"`
	Intersects  *geojson.Geometry             `json:"intersects"`
	Datetime    string                        `json:"datetime"`
	Limit       int                           `json:"limit,omitempty"`
	Query       map[string]map[string]float64 `json:"query,omitempty"`
	SortBy      []sortSpec                    `json:"sortby,omitempty"`
}

type sortSpec struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

type searchResponse struct {
	Features []featureItem `json:"features"`
}

type featureItem struct {
	ID         string           `json:"id"`
	Properties itemProperties   `json:"properties"`
	Assets     map[string]asset `json:"assets"`
}

type itemProperties struct {
	Datetime   string  `json:"datetime"`
	CloudCover float64 `json:"eo:cloud_cover"`
}

type asset struct {
	Href string `json:"href"`
}
