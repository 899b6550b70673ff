package health

import "context"

// Pinger checks a backing store's availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CatalogChecker checks the external catalog provider's availability.
type CatalogChecker interface {
	HealthCheck(ctx context.Context) error
}
