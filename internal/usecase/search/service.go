// Package search implements the tiered search pipeline: social-graph and
// community matches from the spatial backend, long-tail augmentation from
// the external catalog, deduplicated and ordered under tier precedence.
package search

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/plano-labs/mapsearch/internal/domain"
	"github.com/plano-labs/mapsearch/internal/domain/geo"
	"github.com/plano-labs/mapsearch/internal/domain/pin"
	"github.com/plano-labs/mapsearch/internal/domain/point"
	"github.com/plano-labs/mapsearch/internal/domain/search/criteria"
	"github.com/plano-labs/mapsearch/internal/domain/search/result"
	"github.com/plano-labs/mapsearch/internal/domain/search/sortmode"
)

const (
	// PageSize is the tier-1/2 page window.
	PageSize = 50
	// CatalogPageSize is the external catalog's fixed page size; catalog
	// pages are derived as offset/CatalogPageSize + 1.
	CatalogPageSize = 20
	// catalogFloor is the combined-result floor below which catalog
	// augmentation kicks in even without a free-text query. Tunable.
	catalogFloor = 20
)

// Media sub-types requested from the catalog.
const (
	MediaMovie = "movie"
	MediaTV    = "tv"
)

// Request describes one tiered search invocation.
type Request struct {
	Criteria   criteria.Criteria
	Sort       sortmode.Mode
	MediaTypes []string // empty means both sub-types
	Offset     int
	// SeenIDs carries identities from prior pages so pagination never
	// repeats a result.
	SeenIDs []string

	// Restrictive filters; any of these suppresses catalog augmentation
	// because long-tail results cannot be validated against them.
	WatchlistActorID string
	SeenByActorID    string
	RatedByActorIDs  []string
	Tags             []string

	// NotSeenByActorID post-filters catalog candidates the named actor
	// has already visited.
	NotSeenByActorID string

	Discover     DiscoverFilters
	Availability AvailabilityPrefs

	// Version tags the invocation for stale-result discarding; it is
	// echoed back unchanged in the response.
	Version uint64
}

// Response is one merged result page.
type Response struct {
	Results    []result.Result
	HasMore    bool
	NextOffset int
	Version    uint64
}

// StyledPoint is a spatial point with its resolved display precedence.
type StyledPoint struct {
	point.Point
	Style pin.Style `json:"style"`
}

// Service orchestrates the tiered search and map point pipelines.
type Service struct {
	spatial SpatialRepository
	members MembershipRepository
	catalog CatalogClient
	avail   AvailabilityReader
	logger  *zap.Logger
}

// New creates a search service.
func New(
	spatial SpatialRepository,
	members MembershipRepository,
	catalog CatalogClient,
	avail AvailabilityReader,
	logger *zap.Logger,
) *Service {
	return &Service{spatial: spatial, members: members, catalog: catalog, avail: avail, logger: logger}
}

// Search runs one page of the tiered pipeline. Tier failures degrade to
// empty batches; the page is built from whatever tiers responded.
func (s *Service) Search(ctx context.Context, req Request) (Response, error) {
	mediaTypes := req.MediaTypes
	if len(mediaTypes) == 0 {
		mediaTypes = []string{MediaMovie, MediaTV}
	}

	local, err := s.spatial.SearchTiered(ctx, req.Criteria, PageSize, req.Offset)
	if err != nil {
		s.logger.Warn("tiered spatial search failed, continuing with empty local tiers", zap.Error(err))
		local = nil
	}

	var tier3 []result.Result
	if s.wantCatalog(req, len(local)) {
		tier3 = s.fetchCatalog(ctx, req, mediaTypes, len(local) == 0)
		tier3 = s.dropSeenByActor(ctx, tier3, req.NotSeenByActorID)
	}

	seen := make(map[string]struct{}, len(req.SeenIDs))
	for _, id := range req.SeenIDs {
		seen[id] = struct{}{}
	}
	merged := mergeTiers(seen, local, tier3)

	merged = s.applyAvailability(ctx, merged, req.Availability)
	merged = s.enrichSocialRatings(ctx, merged, req.Criteria.ContactIDs())

	sortWithinTiers(merged, req.Sort)

	return Response{
		Results:    merged,
		HasMore:    len(local) == PageSize || len(merged) >= catalogFloor,
		NextOffset: req.Offset + PageSize,
		Version:    req.Version,
	}, nil
}

// MapPoints resolves the spatial points for a viewport: bounds are
// buffered and clamped, social filters applied, and every point styled
// and ordered for rendering.
func (s *Service) MapPoints(
	ctx context.Context, bounds geo.Bounds, zoom int, c criteria.Criteria,
) ([]StyledPoint, error) {
	if !bounds.Valid() {
		return nil, fmt.Errorf("%w: %+v", domain.ErrInvalidBounds, bounds)
	}

	pts, err := s.spatial.QueryPoints(ctx, bounds.FetchBox(), zoom, c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSpatialUnavailable, err)
	}

	if c.HasSocialFilter() {
		pts = s.applySocialFilter(ctx, pts, c)
	}

	styled := make([]StyledPoint, 0, len(pts))
	for _, p := range pts {
		styled = append(styled, StyledPoint{Point: p, Style: pin.Classify(p)})
	}
	sort.SliceStable(styled, func(i, j int) bool {
		return styled[i].Style.ZOrder < styled[j].Style.ZOrder
	})
	return styled, nil
}

// wantCatalog decides whether to pay for a long-tail catalog fetch.
func (s *Service) wantCatalog(req Request, localCount int) bool {
	restrictive := req.WatchlistActorID != "" || req.SeenByActorID != "" ||
		len(req.RatedByActorIDs) > 0 || len(req.Tags) > 0
	if restrictive {
		return false
	}
	if localCount >= PageSize {
		return false
	}
	hasQuery := req.Criteria.Query() != ""
	if !hasQuery && localCount >= catalogFloor {
		return false
	}
	// Catalog pagination only follows free-text queries; filter and
	// trending modes fetch a single augmentation page.
	return req.Offset == 0 || hasQuery
}

// fetchCatalog issues the tier-3 query: free-text search, filter-based
// discover, or the popularity trending fallback when nothing matched
// locally. Mixed sub-type discover calls run concurrently and interleave
// by popularity. Failures degrade to an empty batch.
func (s *Service) fetchCatalog(
	ctx context.Context, req Request, mediaTypes []string, localEmpty bool,
) []result.Result {
	page := req.Offset/CatalogPageSize + 1

	if q := req.Criteria.Query(); q != "" {
		batch, err := s.catalog.Search(ctx, q, mediaTypes, page)
		if err != nil {
			s.logger.Warn("catalog search failed", zap.Error(err))
			return nil
		}
		return batch
	}

	filters := req.Discover
	switch {
	case s.hasDiscoverFilters(req):
		// keep caller filters as-is
	case localEmpty && req.Offset == 0:
		filters = DiscoverFilters{PopularitySort: true}
	default:
		return nil
	}

	if len(mediaTypes) == 1 {
		batch, err := s.catalog.Discover(ctx, mediaTypes[0], filters, page)
		if err != nil {
			s.logger.Warn("catalog discover failed", zap.String("media_type", mediaTypes[0]), zap.Error(err))
			return nil
		}
		return batch
	}

	batches := make([][]result.Result, len(mediaTypes))
	g, gctx := errgroup.WithContext(ctx)
	for i, mt := range mediaTypes {
		g.Go(func() error {
			batch, err := s.catalog.Discover(gctx, mt, filters, page)
			if err != nil {
				s.logger.Warn("catalog discover failed", zap.String("media_type", mt), zap.Error(err))
				return nil
			}
			batches[i] = batch
			return nil
		})
	}
	_ = g.Wait() // fetch errors already downgraded to empty batches
	return interleaveByPopularity(CatalogPageSize, batches...)
}

func (s *Service) hasDiscoverFilters(req Request) bool {
	f := req.Discover
	return len(f.GenreIDs) > 0 || len(f.PersonIDs) > 0 || len(f.Countries) > 0 ||
		len(f.DecadeFrom) > 0 || len(f.ProviderIDs) > 0 ||
		len(req.Criteria.AttributeIDs()) > 0 || req.Criteria.MinRating() > 0 ||
		req.Availability.Active()
}

// dropSeenByActor removes catalog candidates the actor already visited.
// Lookup failures keep all candidates.
func (s *Service) dropSeenByActor(
	ctx context.Context, tier3 []result.Result, actorID string,
) []result.Result {
	if actorID == "" || len(tier3) == 0 {
		return tier3
	}
	tuples, err := s.members.QueryForEntities(ctx, resultIDs(tier3), []string{actorID})
	if err != nil {
		s.logger.Warn("not-seen-by lookup failed, keeping candidates", zap.Error(err))
		return tier3
	}
	visited := make(map[string]struct{})
	for _, t := range tuples {
		if t.Status == string(point.StatusVisited) {
			visited[t.EntityID] = struct{}{}
		}
	}
	kept := tier3[:0]
	for _, r := range tier3 {
		if _, ok := visited[r.ID()]; !ok {
			kept = append(kept, r)
		}
	}
	return kept
}

// applyAvailability filters tier-3 results against availability facts.
// Lookup failures skip the filter (optimistic).
func (s *Service) applyAvailability(
	ctx context.Context, merged []result.Result, prefs AvailabilityPrefs,
) []result.Result {
	if !prefs.Active() {
		return merged
	}
	tier3IDs := catalogIDs(merged)
	if len(tier3IDs) == 0 {
		return merged
	}
	facts, err := s.avail.Lookup(ctx, tier3IDs, prefs.Region)
	if err != nil {
		s.logger.Warn("availability lookup failed, keeping candidates", zap.Error(err))
		return merged
	}
	return filterByAvailability(merged, facts, prefs)
}

// enrichSocialRatings attaches the average contact rating to tier-3
// results so relevance and rating sorts see the social signal.
func (s *Service) enrichSocialRatings(
	ctx context.Context, merged []result.Result, contactIDs []string,
) []result.Result {
	if len(contactIDs) == 0 {
		return merged
	}
	tier3IDs := catalogIDs(merged)
	if len(tier3IDs) == 0 {
		return merged
	}
	tuples, err := s.members.QueryForEntities(ctx, tier3IDs, contactIDs)
	if err != nil {
		s.logger.Warn("social rating lookup failed", zap.Error(err))
		return merged
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, t := range tuples {
		if t.Rating <= 0 {
			continue
		}
		sums[t.EntityID] += t.Rating
		counts[t.EntityID]++
	}
	for i := range merged {
		if merged[i].TierOf() != result.TierCatalog {
			continue
		}
		if n := counts[merged[i].ID()]; n > 0 {
			merged[i] = merged[i].WithSocialRating(sums[merged[i].ID()] / float64(n))
		}
	}
	return merged
}

// applySocialFilter drops single entities outside the qualifying social
// set. Clusters pass through: their membership is aggregated server-side
// and cannot be resolved locally. Membership failures skip the filter.
func (s *Service) applySocialFilter(
	ctx context.Context, pts []point.Point, c criteria.Criteria,
) []point.Point {
	actorIDs := append([]string{}, c.ContactIDs()...)
	if c.ActorID() != "" {
		actorIDs = append(actorIDs, c.ActorID())
	}
	tuples, err := s.members.Query(ctx, actorIDs, c.Statuses(), c.ContactMinRating())
	if err != nil {
		s.logger.Warn("membership query failed, skipping social filter", zap.Error(err))
		return pts
	}

	actorActive := c.ActorID() != "" && len(c.Statuses()) > 0
	contactsActive := len(c.ContactIDs()) > 0
	qualified := ResolveSocialSet(tuples, c.ActorID(), c.ContactIDs(), actorActive, contactsActive)

	kept := pts[:0]
	for _, p := range pts {
		if p.IsCluster {
			kept = append(kept, p)
			continue
		}
		if _, ok := qualified[p.ID]; ok {
			kept = append(kept, p)
		}
	}
	return kept
}

func resultIDs(results []result.Result) []string {
	out := make([]string, 0, len(results))
	for i := range results {
		out = append(out, results[i].ID())
	}
	return out
}

func catalogIDs(results []result.Result) []string {
	var out []string
	for i := range results {
		if results[i].TierOf() == result.TierCatalog {
			out = append(out, results[i].ID())
		}
	}
	return out
}
