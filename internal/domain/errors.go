package domain

import "errors"

// Error kinds. Transient errors come from catalog, raster, or forecast I/O
// and may succeed on retry; retry policy belongs to the caller. Validation
// errors are rejected before any remote call is made. "No data" outcomes
// (no scene, no valid pixels, no soil moisture signal) are ordinary results,
// not errors.
var (
	// ErrTransient marks upstream I/O failures (unreachable, timeout, 5xx).
	ErrTransient = errors.New("transient upstream error")

	// ErrInvalidBoundary marks a malformed field boundary: wrong geometry
	// type or fewer than three distinct vertices.
	ErrInvalidBoundary = errors.New("invalid field boundary")

	// ErrFieldNotFound is returned by stores for unknown field IDs.
	ErrFieldNotFound = errors.New("field not found")
)
