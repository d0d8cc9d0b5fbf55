// Command seedfields loads a GeoJSON FeatureCollection of field boundaries
// into the advisory database. Each feature must be a Polygon; the properties
// "name", "crop", and optionally "last_irrigation_at" (RFC 3339) populate
// the field record. Centroids and areas are computed on insert, the same way
// the API computes them.
//
// Usage:
//
//	go run ./cmd/seedfields -file data/fixtures/fields.geojson -db advisory.db
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	geojson "github.com/paulmach/go.geojson"

	storeadapter "github.com/fieldpulse/irrigation-advisory/internal/adapter/store"
	"github.com/fieldpulse/irrigation-advisory/internal/domain"
	"github.com/fieldpulse/irrigation-advisory/internal/geometry"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	file := flag.String("file", "", "GeoJSON FeatureCollection of field polygons")
	dbPath := flag.String("db", "advisory.db", "SQLite database path")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -file")
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read %s: %w", *file, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return fmt.Errorf("parse feature collection: %w", err)
	}

	store, err := storeadapter.Open(*dbPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	seeded := 0
	for i, feature := range fc.Features {
		field, err := fieldFromFeature(feature)
		if err != nil {
			log.Printf("skipping feature %d: %v", i, err)
			continue
		}
		if err := store.CreateField(ctx, field); err != nil {
			return fmt.Errorf("insert field %q: %w", field.Name, err)
		}
		log.Printf("seeded %q (%s, %.2f ha)", field.Name, field.Crop, field.Area.Hectares)
		seeded++
	}

	log.Printf("done: %d of %d features seeded", seeded, len(fc.Features))
	return nil
}

func fieldFromFeature(feature *geojson.Feature) (*domain.FieldRecord, error) {
	if feature.Geometry == nil || !feature.Geometry.IsPolygon() {
		return nil, fmt.Errorf("geometry is not a Polygon")
	}
	raw, err := feature.Geometry.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode geometry: %w", err)
	}
	ring, err := geometry.ParseBoundary(raw)
	if err != nil {
		return nil, err
	}
	res := geometry.CentroidAndArea(ring)

	field := &domain.FieldRecord{
		Name:      feature.PropertyMustString("name", ""),
		Crop:      feature.PropertyMustString("crop", ""),
		Boundary:  res.Closed,
		Centroid:  res.Centroid,
		Area:      res.Area,
		CreatedAt: time.Now().UTC(),
	}
	if field.Name == "" {
		return nil, fmt.Errorf("missing name property")
	}
	if ts := feature.PropertyMustString("last_irrigation_at", ""); ts != "" {
		at, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("bad last_irrigation_at %q: %w", ts, err)
		}
		field.LastIrrigationAt = &at
	}
	return field, nil
}
