package result

import "time"

// Tier is the precedence bucket a result was sourced from. Lower is
// stronger; tier never changes for the lifetime of one search response.
type Tier int

// Result tiers.
const (
	// TierSocial holds matches from the acting user's social graph.
	TierSocial Tier = 1
	// TierCommunity holds community/aggregate matches.
	TierCommunity Tier = 2
	// TierCatalog holds long-tail matches from the external catalog.
	TierCatalog Tier = 3
)

// Result is a single ranked search hit.
type Result struct {
	id                string
	tier              Tier
	title             string
	mediaType         string
	socialRating      float64
	popularity        float64
	latestInteraction time.Time
	releaseDate       time.Time
	payload           map[string]string
}

// New creates a ranked result. Zero-valued sort keys compare as lowest.
func New(
	id string, tier Tier, title, mediaType string,
	socialRating, popularity float64,
	latestInteraction, releaseDate time.Time,
	payload map[string]string,
) Result {
	return Result{
		id: id, tier: tier, title: title, mediaType: mediaType,
		socialRating: socialRating, popularity: popularity,
		latestInteraction: latestInteraction, releaseDate: releaseDate,
		payload: payload,
	}
}

// ID returns the result identity used for deduplication.
func (r *Result) ID() string { return r.id }

// TierOf returns the precedence bucket.
func (r *Result) TierOf() Tier { return r.tier }

// Title returns the display title.
func (r *Result) Title() string { return r.title }

// MediaType returns the entity sub-type (e.g. "movie", "tv").
func (r *Result) MediaType() string { return r.mediaType }

// SocialRating returns the average contact rating, 0 when unknown.
func (r *Result) SocialRating() float64 { return r.socialRating }

// Popularity returns the community popularity signal, 0 when unknown.
func (r *Result) Popularity() float64 { return r.popularity }

// LatestInteraction returns when a contact last interacted, zero when unknown.
func (r *Result) LatestInteraction() time.Time { return r.latestInteraction }

// ReleaseDate returns the entity release date, zero when unknown.
func (r *Result) ReleaseDate() time.Time { return r.releaseDate }

// Payload returns opaque attributes carried through for the consumer.
func (r *Result) Payload() map[string]string { return r.payload }

// WithSocialRating returns a copy carrying an enriched social rating.
// The tier is preserved: enrichment never promotes a result.
func (r Result) WithSocialRating(rating float64) Result {
	r.socialRating = rating
	return r
}
