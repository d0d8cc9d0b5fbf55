// Package openweather implements domain.ForecastProvider using the
// OpenWeather 5-day / 3-hour forecast API.
package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fieldpulse/irrigation-advisory/internal/domain"
	"github.com/fieldpulse/irrigation-advisory/internal/observability"
)

// Client fetches 3-hourly forecasts from OpenWeather.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an OpenWeather forecast client.
func NewClient(apiKey, baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metrics,
	}
}

// Forecast returns the upcoming 3-hour forecast steps for a point, in metric
// units, ordered by time. Steps with no rain field report zero rain.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) ([]domain.ForecastStep, error) {
	start := time.Now()
	steps, err := c.fetch(ctx, lat, lon)
	c.metrics.CollaboratorDuration.WithLabelValues("forecast").Observe(time.Since(start).Seconds())
	return steps, err
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) ([]domain.ForecastStep, error) {
	params := url.Values{
		"lat":   {strconv.FormatFloat(lat, 'f', 6, 64)},
		"lon":   {strconv.FormatFloat(lon, 'f', 6, 64)},
		"appid": {c.apiKey},
		"units": {"metric"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openweather API error: status %d: %s", resp.StatusCode, raw)
	}

	var fr forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return nil, fmt.Errorf("decode forecast response: %w", err)
	}

	steps := make([]domain.ForecastStep, 0, len(fr.List))
	for _, e := range fr.List {
		steps = append(steps, domain.ForecastStep{
			Time:   time.Unix(e.Dt, 0).UTC(),
			TempC:  e.Main.Temp,
			RainMM: e.Rain.ThreeHour,
		})
	}
	return steps, nil
}

// OpenWeather API response types.

type forecastResponse struct {
	List []forecastEntry `json:"list"`
}

type forecastEntry struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Rain rainVolume `json:"rain"`
}

// rainVolume carries the accumulated rain for the step. The API omits the
// object entirely for dry steps, which decodes to zero here.
type rainVolume struct {
	ThreeHour float64 `json:"3h"`
}
