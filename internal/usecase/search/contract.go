package search

import (
	"context"

	"github.com/plano-labs/mapsearch/internal/domain"
	"github.com/plano-labs/mapsearch/internal/domain/geo"
	"github.com/plano-labs/mapsearch/internal/domain/point"
	"github.com/plano-labs/mapsearch/internal/domain/search/criteria"
	"github.com/plano-labs/mapsearch/internal/domain/search/result"
)

// SpatialRepository defines the storage contract for spatial and ranked
// list queries. Tier 1 and tier 2 share a backend and are issued as one
// request.
type SpatialRepository interface {
	// QueryPoints returns clusters and single entities inside the
	// expanded bounds at the given zoom level.
	QueryPoints(
		ctx context.Context, bounds geo.Bounds, zoom int, c criteria.Criteria,
	) ([]point.Point, error)

	// SearchTiered returns tier-1 and tier-2 ranked results for the
	// criteria, already ordered by the backend's relevance.
	SearchTiered(
		ctx context.Context, c criteria.Criteria, limit, offset int,
	) ([]result.Result, error)
}

// MembershipRepository reads raw membership tuples.
type MembershipRepository interface {
	// Query returns tuples for the given actors, optionally restricted
	// by status and a minimum rating.
	Query(
		ctx context.Context, actorIDs []string,
		statuses []point.Status, minRating float64,
	) ([]domain.MembershipTuple, error)

	// QueryForEntities returns tuples for the given actors scoped to a
	// candidate entity set, used for post-filters and rating enrichment.
	QueryForEntities(
		ctx context.Context, entityIDs, actorIDs []string,
	) ([]domain.MembershipTuple, error)
}

// DiscoverFilters shape a catalog discover call.
type DiscoverFilters struct {
	GenreIDs    []string
	PersonIDs   []string
	Countries   []string
	DecadeFrom  []string // inclusive year starts, e.g. "1970"
	ProviderIDs []string
	WatchRegion string
	// PopularitySort requests popularity-descending server ordering,
	// used by the trending fallback.
	PopularitySort bool
}

// CatalogClient is the Tier-3 long-tail collaborator.
type CatalogClient interface {
	// Search runs a free-text catalog search. mediaTypes restricts the
	// sub-types returned; pages are derived from offset/pageSize.
	Search(
		ctx context.Context, query string, mediaTypes []string, page int,
	) ([]result.Result, error)

	// Discover runs a filter-based catalog query for one media type.
	Discover(
		ctx context.Context, mediaType string, f DiscoverFilters, page int,
	) ([]result.Result, error)
}

// AvailabilityReader looks up side-channel availability facts by region.
type AvailabilityReader interface {
	Lookup(
		ctx context.Context, entityIDs []string, regionCode string,
	) (map[string]domain.Availability, error)
}
