// Package waterbalance turns evapotranspiration, rainfall, soil moisture,
// and irrigation history into an actionable recommendation.
package waterbalance

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Policy selects how a recommendation is computed. Both policies exist in
// the field deployments and are selected per installation, not per request.
type Policy string

const (
	// PolicyDeficitPeriod accumulates daily crop water use since the last
	// irrigation and nets out forecast rain, tiering the result.
	PolicyDeficitPeriod Policy = "deficit_period"

	// PolicySingleEvent sizes one irrigation event from a single day of
	// crop water use, scaled down when the soil is already moist.
	PolicySingleEvent Policy = "single_event"
)

// ValidPolicy reports whether p names a known policy.
func ValidPolicy(p Policy) bool {
	return p == PolicyDeficitPeriod || p == PolicySingleEvent
}

// Tier classifies a period deficit.
type Tier string

const (
	TierNormal   Tier = "normal"   // deficit < 10mm
	TierDrying   Tier = "drying"   // 10mm <= deficit < 25mm
	TierCritical Tier = "critical" // deficit >= 25mm
)

// defaultDaysSinceIrrigation is assumed when a field has no irrigation
// history. Absence of history is not "just irrigated".
const defaultDaysSinceIrrigation = 3

// WindowDays is the validity window attached to single-event recommendations.
const WindowDays = 3

// Message is one advisory message in a specific locale.
type Message struct {
	Locale string `json:"locale"`
	Text   string `json:"text"`
}

// cropCoefficients is the fixed Kc lookup table. Keys are lowercase trimmed
// crop names; anything else (including wheat) takes the default.
var cropCoefficients = map[string]float64{
	"rice":     1.1,
	"paddy":    1.1,
	"chickpea": 0.6,
	"gram":     0.6,
	"maize":    0.9,
	"corn":     0.9,
	"cotton":   1.0,
}

const defaultCropCoefficient = 0.7

// Coefficient returns the crop coefficient for a crop name, case-insensitive
// and trimmed, defaulting to 0.7 for wheat and unknown crops.
func Coefficient(crop string) float64 {
	if kc, ok := cropCoefficients[strings.ToLower(strings.TrimSpace(crop))]; ok {
		return kc
	}
	return defaultCropCoefficient
}

// DaysSince converts a nullable last-irrigation timestamp into whole elapsed
// days, clamped at zero. A nil timestamp yields the default assumption of 3.
func DaysSince(last *time.Time, now time.Time) int {
	if last == nil {
		return defaultDaysSinceIrrigation
	}
	days := int(now.Sub(*last).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// DeficitAdvice is the outcome of the deficit-over-period policy.
type DeficitAdvice struct {
	DaysSinceIrrigation int       `json:"since_last_irrigation_days"`
	NetDeficitMM        float64   `json:"net_deficit_mm"`
	Tier                Tier      `json:"tier"`
	Messages            []Message `json:"messages"`
}

// Deficit applies the deficit-over-period policy:
//
//	net_deficit = max(0, et0 * kc * days - rain)
//
// and tiers the result with bilingual messages interpolating the deficit
// rounded to one decimal. Rounding happens only here, at the boundary.
func Deficit(crop string, daysSinceIrrigation int, et0MM, rainMM float64) DeficitAdvice {
	kc := Coefficient(crop)
	net := et0MM*kc*float64(daysSinceIrrigation) - rainMM
	if net < 0 {
		net = 0
	}

	var tier Tier
	var en, ur string
	switch {
	case net < 10:
		tier = TierNormal
		en = "Conditions are normal. Monitor the next forecast."
		ur = "صورتحال معمول کی ہے۔ اگلی موسمی پیشن گوئی پر نظر رکھیں۔"
	case net < 25:
		tier = TierDrying
		en = fmt.Sprintf("Field is drying (deficit ≈ %.1f mm). Plan irrigation within 1-2 days.", net)
		ur = fmt.Sprintf("کھیت میں نمی کم ہو رہی ہے (کمی تقریباً %.1f ملی میٹر)۔ ۱-۲ دن میں آبپاشی کیجئے۔", net)
	default:
		tier = TierCritical
		en = fmt.Sprintf("Deficit high (≈ %.1f mm). Irrigate now if field is available.", net)
		ur = fmt.Sprintf("کمی زیادہ ہے (تقریباً %.1f ملی میٹر)۔ اگر ممکن ہو تو فوراً آبپاشی کریں۔", net)
	}

	return DeficitAdvice{
		DaysSinceIrrigation: daysSinceIrrigation,
		NetDeficitMM:        Round1(net),
		Tier:                tier,
		Messages: []Message{
			{Locale: "en", Text: en},
			{Locale: "ur", Text: ur},
		},
	}
}

// EventAdvice is the outcome of the single-event policy.
type EventAdvice struct {
	RecommendationMM float64 `json:"recommendation_mm"`
	WindowDays       int     `json:"window_days"`
}

// SingleEvent applies the single-event policy:
//
//	target = max(0, kc * et0 - rain)
//
// scaled by a soil sufficiency factor: x0.6 when soil moisture >= 40%,
// x0.8 when >= 30%. A nil soil moisture skips scaling entirely; it is a
// missing signal, not 0%.
func SingleEvent(crop string, et0MM, rainMM float64, soilMoisturePct *float64) EventAdvice {
	target := Coefficient(crop)*et0MM - rainMM
	if target < 0 {
		target = 0
	}

	if soilMoisturePct != nil {
		switch {
		case *soilMoisturePct >= 40:
			target *= 0.6
		case *soilMoisturePct >= 30:
			target *= 0.8
		}
	}

	return EventAdvice{RecommendationMM: Round1(target), WindowDays: WindowDays}
}

// Round1 rounds to one decimal place. Applied only to presentation values,
// never to intermediates, so rounding error does not compound across the
// dependent formulas.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
