// Package geometry holds the deterministic polygon math for field
// boundaries: ring closure, a local tangent-plane projection, and the
// shoelace centroid/area formula.
package geometry

import (
	"fmt"
	"math"

	geojson "github.com/paulmach/go.geojson"

	"github.com/fieldpulse/irrigation-advisory/internal/domain"
)

// Per-degree scale factors for the local-meters projection. The longitude
// factor shrinks with cos(lat) at the projection origin.
const (
	metersPerDegreeLat = 111132.0
	metersPerDegreeLon = 111320.0

	squareMetersPerHectare = 10000.0
	squareMetersPerAcre    = 4046.8564224
)

// Result pairs a centroid and area computed from the same projection.
// They must never be mixed with values from a different projection of the
// same boundary.
type Result struct {
	Centroid domain.Centroid
	Area     domain.AreaMeasure
	Closed   domain.Ring
}

// ParseBoundary decodes a GeoJSON geometry into the outer ring of a polygon.
// Anything other than a Polygon with at least three distinct vertices is
// rejected with domain.ErrInvalidBoundary.
func ParseBoundary(raw []byte) (domain.Ring, error) {
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidBoundary, err)
	}
	if !g.IsPolygon() || len(g.Polygon) == 0 {
		return nil, fmt.Errorf("%w: geometry must be a Polygon", domain.ErrInvalidBoundary)
	}
	ring := domain.Ring(g.Polygon[0])
	if err := Validate(ring); err != nil {
		return nil, err
	}
	return ring, nil
}

// Validate checks that a ring has at least three distinct vertices before
// closing. Self-intersection is not checked; boundaries are assumed
// caller-correct.
func Validate(ring domain.Ring) error {
	distinct := 0
	seen := make(map[[2]float64]struct{}, len(ring))
	for _, v := range ring {
		if len(v) < 2 {
			return fmt.Errorf("%w: vertex needs lon and lat", domain.ErrInvalidBoundary)
		}
		key := [2]float64{v[0], v[1]}
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			distinct++
		}
	}
	if distinct < 3 {
		return fmt.Errorf("%w: need at least 3 distinct vertices, got %d", domain.ErrInvalidBoundary, distinct)
	}
	return nil
}

// CloseRing appends a copy of the first vertex when the ring is not closed.
// Idempotent: an already-closed ring is returned unchanged.
func CloseRing(ring domain.Ring) domain.Ring {
	if len(ring) == 0 {
		return ring
	}
	first, last := ring[0], ring[len(ring)-1]
	if first[0] == last[0] && first[1] == last[1] {
		return ring
	}
	closed := make(domain.Ring, 0, len(ring)+1)
	closed = append(closed, ring...)
	closed = append(closed, []float64{first[0], first[1]})
	return closed
}

// CentroidAndArea projects a closed ring onto a local tangent plane anchored
// at the vertex mean, runs the signed shoelace formula in meters, and maps
// the centroid back to (lat, lon). Area magnitude is winding-invariant; the
// centroid follows the signed sum, so winding is deliberately not normalized.
func CentroidAndArea(ring domain.Ring) Result {
	closed := CloseRing(ring)

	// Projection origin: unweighted vertex mean.
	var sumLon, sumLat float64
	for _, v := range closed {
		sumLon += v[0]
		sumLat += v[1]
	}
	n := float64(len(closed))
	originLon := sumLon / n
	originLat := sumLat / n

	lonScale := metersPerDegreeLon * math.Cos(originLat*math.Pi/180)

	// Local meters relative to the origin.
	xs := make([]float64, len(closed))
	ys := make([]float64, len(closed))
	for i, v := range closed {
		xs[i] = (v[0] - originLon) * lonScale
		ys[i] = (v[1] - originLat) * metersPerDegreeLat
	}

	var signedArea, cx, cy float64
	for i := 0; i < len(closed)-1; i++ {
		cross := xs[i]*ys[i+1] - xs[i+1]*ys[i]
		signedArea += cross
		cx += (xs[i] + xs[i+1]) * cross
		cy += (ys[i] + ys[i+1]) * cross
	}
	signedArea /= 2

	var centroidLon, centroidLat float64
	if signedArea == 0 {
		// Degenerate (collinear or single-point) ring: fall back to the
		// projection origin instead of dividing by zero.
		centroidLon = originLon
		centroidLat = originLat
	} else {
		cx /= 6 * signedArea
		cy /= 6 * signedArea
		centroidLon = originLon + cx/lonScale
		centroidLat = originLat + cy/metersPerDegreeLat
	}

	areaM2 := math.Abs(signedArea)
	return Result{
		Centroid: domain.Centroid{Lat: centroidLat, Lon: centroidLon},
		Area: domain.AreaMeasure{
			Hectares: areaM2 / squareMetersPerHectare,
			Acres:    areaM2 / squareMetersPerAcre,
		},
		Closed: closed,
	}
}

// ToGeoJSON encodes a ring as a GeoJSON Polygon geometry.
func ToGeoJSON(ring domain.Ring) *geojson.Geometry {
	return geojson.NewPolygonGeometry([][][]float64{ring})
}
