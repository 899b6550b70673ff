package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidBounds signals an inverted or out-of-range bounding box.
	ErrInvalidBounds = errors.New("invalid bounds")
	// ErrInvalidCriteria signals an unusable filter set.
	ErrInvalidCriteria = errors.New("invalid filter criteria")
	// ErrSpatialUnavailable signals a total failure of the primary spatial
	// query; the caller should surface a single retryable error state.
	ErrSpatialUnavailable = errors.New("spatial backend unavailable")
	// ErrMalformedState signals an unreadable persisted viewport or filter
	// representation. Consumers fall back to documented defaults.
	ErrMalformedState = errors.New("malformed persisted state")
	// ErrStaleVersion signals a result belonging to a superseded request
	// version. It is discarded silently, never surfaced.
	ErrStaleVersion = errors.New("stale request version")
	// ErrCatalogUnavailable signals a failed long-tail catalog call. The
	// search pipeline degrades to the local tiers.
	ErrCatalogUnavailable = errors.New("catalog provider unavailable")
)
