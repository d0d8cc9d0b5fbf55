// Package power implements domain.SoilMoistureProvider using the NASA POWER
// daily point API.
package power

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fieldpulse/irrigation-advisory/internal/observability"
)

const (
	// soilParam is the POWER profile soil moisture parameter, reported in
	// kg/m^2 over the profile. Divided by 10 it approximates volumetric
	// percent for the root zone.
	soilParam = "SOILM_TOT"

	// lookbackDays bounds the daily window requested; POWER lags real time
	// by a few days, so a single day never suffices.
	lookbackDays = 7

	// missingValue is POWER's fill value for days with no data.
	missingValue = -999

	// Plausible volumetric percent range. Values outside it are treated as
	// no signal rather than clamped.
	minPlausiblePct = 0
	maxPlausiblePct = 60
)

// Client fetches soil moisture estimates from NASA POWER.
type Client struct {
	baseURL    string
	httpClient *http.Client
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a POWER client.
func NewClient(baseURL string, timeout time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// SoilMoisture returns the most recent plausible soil moisture percent at a
// point, or nil when POWER has no usable value in the lookback window. The
// nil is meaningful: callers fall back to their processing path, never to
// zero moisture.
func (c *Client) SoilMoisture(ctx context.Context, lat, lon float64) (*float64, error) {
	start := time.Now()
	pct, err := c.fetch(ctx, lat, lon)
	c.metrics.CollaboratorDuration.WithLabelValues("soil").Observe(time.Since(start).Seconds())
	return pct, err
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) (*float64, error) {
	now := c.clock.Now().UTC()
	params := url.Values{
		"parameters": {soilParam},
		"community":  {"AG"},
		"latitude":   {strconv.FormatFloat(lat, 'f', 4, 64)},
		"longitude":  {strconv.FormatFloat(lon, 'f', 4, 64)},
		"start":      {now.AddDate(0, 0, -lookbackDays).Format("20060102")},
		"end":        {now.Format("20060102")},
		"format":     {"JSON"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("soil moisture request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("power API error: status %d: %s", resp.StatusCode, raw)
	}

	var pr powerResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode power response: %w", err)
	}

	series := pr.Properties.Parameter[soilParam]
	if len(series) == 0 {
		return nil, nil
	}

	// Walk the daily series from the most recent day back to the first
	// plausible value.
	days := make([]string, 0, len(series))
	for day := range series {
		days = append(days, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	for _, day := range days {
		raw := series[day]
		if raw == missingValue {
			continue
		}
		pct := raw / 10
		if pct < minPlausiblePct || pct > maxPlausiblePct {
			c.logger.Debug("implausible soil moisture discarded", "day", day, "raw", raw)
			continue
		}
		return &pct, nil
	}
	return nil, nil
}

// POWER API response types.

type powerResponse struct {
	Properties struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
}
