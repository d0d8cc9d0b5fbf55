package openweather

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldpulse/irrigation-advisory/internal/observability"
)

const testKey = "ow-test-key"

func testClient(baseURL string) *Client {
	return &Client{
		apiKey:     testKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:    observability.NewMetricsForTesting(),
	}
}

func TestClient_Forecast_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testKey, r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "31.550000", r.URL.Query().Get("lat"))
		assert.Equal(t, "74.350000", r.URL.Query().Get("lon"))

		_, _ = w.Write([]byte(`{
			"list": [
				{"dt": 1788163200, "main": {"temp": 33.4}, "rain": {"3h": 1.2}},
				{"dt": 1788174000, "main": {"temp": 29.1}}
			]
		}`))
	}))
	defer srv.Close()

	steps, err := testClient(srv.URL).Forecast(context.Background(), 31.55, 74.35)
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, time.Unix(1788163200, 0).UTC(), steps[0].Time)
	assert.Equal(t, 33.4, steps[0].TempC)
	assert.Equal(t, 1.2, steps[0].RainMM)

	// Dry step: the API omits the rain object, which reads as zero.
	assert.Equal(t, 29.1, steps[1].TempC)
	assert.Equal(t, 0.0, steps[1].RainMM)
}

func TestClient_Forecast_EmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"list": []}`))
	}))
	defer srv.Close()

	steps, err := testClient(srv.URL).Forecast(context.Background(), 31.55, 74.35)
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestClient_Forecast_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Forecast(context.Background(), 31.55, 74.35)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_Forecast_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient.Timeout = 50 * time.Millisecond

	_, err := c.Forecast(context.Background(), 31.55, 74.35)
	require.Error(t, err)
}
