// Package domain models smallholder fields and the irrigation advisory
// pipeline built on top of them.
//
// # Data Flow
//
// A field boundary (GeoJSON polygon ring) is normalized and projected by the
// geometry package to produce a centroid and area. The centroid drives the
// weather sub-path; the full polygon drives the satellite sub-path:
//
//	boundary → centroid + area
//	polygon  → scene selection → band clip + mask → NDVI/NDWI means
//	centroid → 24h forecast → ET0 proxy
//	crop + ET0 + rain + soil moisture + days since irrigation → recommendation
//
// # Conventions
//
// Coordinates are WGS-84 with vertices stored (lon, lat), matching GeoJSON.
// Centroids are reported (lat, lon), matching the forecast providers.
//
// Spectral bands follow Sentinel-2 L2A asset keys: B04 (red), B08 (NIR),
// B11 (SWIR), SCL (scene classification). SCL classes 3 (cloud shadow),
// 8 (cloud medium probability), 9 (cloud high probability), and 10 (cirrus)
// are masked out before index aggregation.
//
// # Collaborators
//
// Remote dependencies are capability interfaces (Catalog, RasterAccessor,
// ForecastProvider, SoilMoistureProvider, FieldStore, AdvicePublisher) so the
// core can be exercised with in-memory fakes. Implementations live under
// internal/adapter.
package domain
