package stac

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldpulse/irrigation-advisory/internal/domain"
	"github.com/fieldpulse/irrigation-advisory/internal/observability"
)

var testQuery = domain.SceneQuery{
	Collection: "sentinel-2-l2a",
	Polygon:    domain.Ring{{74.3, 31.5}, {74.4, 31.5}, {74.4, 31.6}, {74.3, 31.5}},
	Start:      time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC),
	End:        time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
	CloudLT:    40,
	Limit:      5,
}

func testClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:    observability.NewMetricsForTesting(),
	}
}

func TestClient_Search_BuildsSTACRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"sentinel-2-l2a"}, req.Collections)
		assert.Equal(t, "2026-07-31T00:00:00Z/2026-08-30T00:00:00Z", req.Datetime)
		assert.Equal(t, 5, req.Limit)
		assert.Equal(t, 40.0, req.Query["eo:cloud_cover"]["lt"])
		require.Len(t, req.SortBy, 1)
		assert.Equal(t, "properties.datetime", req.SortBy[0].Field)
		assert.Equal(t, "desc", req.SortBy[0].Direction)
		require.NotNil(t, req.Intersects)
		assert.True(t, req.Intersects.IsPolygon())
		require.Len(t, req.Intersects.Polygon, 1)
		assert.Len(t, req.Intersects.Polygon[0], 4)

		require.NoError(t, json.NewEncoder(w).Encode(searchResponse{}))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Search(context.Background(), testQuery)
	require.NoError(t, err)
}

func TestClient_Search_MapsFeaturesAndAliases(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := searchResponse{Features: []featureItem{
			{
				ID: "S2B_43REQ_20260828",
				Properties: itemProperties{
					Datetime:   "2026-08-28T05:41:09Z",
					CloudCover: 12.4,
				},
				Assets: map[string]asset{
					"red":       {Href: "https://assets.example/red.tif"},
					"nir":       {Href: "https://assets.example/nir.tif"},
					"swir16":    {Href: "https://assets.example/swir.tif"},
					"scl":       {Href: "https://assets.example/scl.tif"},
					"thumbnail": {Href: "https://assets.example/thumb.jpg"},
				},
			},
		}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	scenes, err := testClient(srv.URL).Search(context.Background(), testQuery)
	require.NoError(t, err)
	require.Len(t, scenes, 1)

	s := scenes[0]
	assert.Equal(t, "S2B_43REQ_20260828", s.ID)
	assert.Equal(t, time.Date(2026, 8, 28, 5, 41, 9, 0, time.UTC), s.AcquiredAt)
	assert.Equal(t, 12.4, s.CloudCover)
	assert.Equal(t, map[string]string{
		"B04": "https://assets.example/red.tif",
		"B08": "https://assets.example/nir.tif",
		"B11": "https://assets.example/swir.tif",
		"SCL": "https://assets.example/scl.tif",
	}, s.Assets)
}

func TestClient_Search_SkipsUnparseableDatetime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := searchResponse{Features: []featureItem{
			{ID: "bad", Properties: itemProperties{Datetime: "yesterday-ish"}},
			{ID: "good", Properties: itemProperties{Datetime: "2026-08-27T05:41:09Z"}},
		}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	scenes, err := testClient(srv.URL).Search(context.Background(), testQuery)
	require.NoError(t, err)
	require.Len(t, scenes, 1)
	assert.Equal(t, "good", scenes[0].ID)
}

func TestClient_Search_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Search(context.Background(), testQuery)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_Search_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient.Timeout = 50 * time.Millisecond

	_, err := c.Search(context.Background(), testQuery)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransient)
}
