// Package criteria holds the immutable filter set passed to spatial and
// membership queries. Every optional field is named; nothing is carried in
// a dynamically-shaped bag.
package criteria

import (
	"fmt"

	"github.com/plano-labs/mapsearch/internal/domain/point"
)

// Ranking selects the rating signal used for ordering spatial rows.
type Ranking string

// Ranking preferences.
const (
	// RankingPersonal orders by the acting user's own ratings.
	RankingPersonal Ranking = "personal"
	// RankingGlobal orders by community percentile rank.
	RankingGlobal Ranking = "global"
)

// IsValid checks if the ranking is one of the supported values.
func (r Ranking) IsValid() bool {
	return r == RankingPersonal || r == RankingGlobal
}

// Rating bounds for the floor filter.
const (
	MinRatingFloor = 0.0
	MaxRatingFloor = 3.0
)

// Params is the caller-facing input for building Criteria.
type Params struct {
	Query        string
	CategoryID   string
	TypologyIDs  []string
	MaterialIDs  []string
	StyleIDs     []string
	ContextIDs   []string
	AttributeIDs []string
	ArchitectIDs []string
	Statuses     []point.Status

	MinRating        float64
	ActorID          string
	ContactIDs       []string
	ContactMinRating float64

	HideVisited       bool
	HideSaved         bool
	HideWithoutImages bool
	// ShowHidden is accepted and ignored: hidden entities are never
	// surfaced through this path (deliberate policy, see HideHidden).
	ShowHidden bool

	// RuntimeBuckets are named duration ranges (short, medium, long,
	// epic) folded into one min/max pair.
	RuntimeBuckets []string

	Ranking Ranking
}

// Criteria is a validated, immutable filter set.
type Criteria struct {
	query        string
	categoryID   string
	typologyIDs  []string
	attributeIDs []string
	architectIDs []string
	statuses     []point.Status

	minRating        float64
	actorID          string
	contactIDs       []string
	contactMinRating float64

	hideVisited       bool
	hideSaved         bool
	hideWithoutImages bool

	runtimeMin int
	runtimeMax int

	ranking Ranking
}

// New validates and normalizes filter parameters. Material, style, context
// and generic attribute ids are merged into one deduplicated attribute set.
// Rating floors are clamped to [0,3]. Ranking defaults to global.
func New(p Params) (Criteria, error) {
	if p.Ranking == "" {
		p.Ranking = RankingGlobal
	}
	if !p.Ranking.IsValid() {
		return Criteria{}, fmt.Errorf("invalid ranking preference: %q", p.Ranking)
	}

	merged := dedup(p.MaterialIDs, p.StyleIDs, p.ContextIDs, p.AttributeIDs)
	runtimeMin, runtimeMax := foldRuntimes(p.RuntimeBuckets)

	return Criteria{
		query:             p.Query,
		categoryID:        p.CategoryID,
		typologyIDs:       dedup(p.TypologyIDs),
		attributeIDs:      merged,
		architectIDs:      dedup(p.ArchitectIDs),
		statuses:          p.Statuses,
		minRating:         clampRating(p.MinRating),
		actorID:           p.ActorID,
		contactIDs:        dedup(p.ContactIDs),
		contactMinRating:  clampRating(p.ContactMinRating),
		hideVisited:       p.HideVisited,
		hideSaved:         p.HideSaved,
		hideWithoutImages: p.HideWithoutImages,
		runtimeMin:        runtimeMin,
		runtimeMax:        runtimeMax,
		ranking:           p.Ranking,
	}, nil
}

// Query returns the free-text query.
func (c *Criteria) Query() string { return c.query }

// CategoryID returns the selected category id, empty when unset.
func (c *Criteria) CategoryID() string { return c.categoryID }

// TypologyIDs returns the selected typology ids.
func (c *Criteria) TypologyIDs() []string { return c.typologyIDs }

// AttributeIDs returns the merged material/style/context/attribute id set.
func (c *Criteria) AttributeIDs() []string { return c.attributeIDs }

// ArchitectIDs returns the selected architect ids.
func (c *Criteria) ArchitectIDs() []string { return c.architectIDs }

// Statuses returns the status filter list.
func (c *Criteria) Statuses() []point.Status { return c.statuses }

// MinRating returns the personal rating floor, clamped to [0,3].
func (c *Criteria) MinRating() float64 { return c.minRating }

// ActorID returns the acting user id, empty for anonymous queries.
func (c *Criteria) ActorID() string { return c.actorID }

// ContactIDs returns the selected contact ids.
func (c *Criteria) ContactIDs() []string { return c.contactIDs }

// ContactMinRating returns the contact rating floor, clamped to [0,3].
func (c *Criteria) ContactMinRating() float64 { return c.contactMinRating }

// HideVisited reports whether visited entities are excluded.
func (c *Criteria) HideVisited() bool { return c.hideVisited }

// HideSaved reports whether saved entities are excluded.
func (c *Criteria) HideSaved() bool { return c.hideSaved }

// HideWithoutImages reports whether image-less entities are excluded.
func (c *Criteria) HideWithoutImages() bool { return c.hideWithoutImages }

// HideHidden always reports true: entities the acting user has hidden are
// never returned through this query path, regardless of caller intent.
func (c *Criteria) HideHidden() bool { return true }

// RuntimeMin returns the folded runtime floor in minutes, 0 when open.
func (c *Criteria) RuntimeMin() int { return c.runtimeMin }

// RuntimeMax returns the folded runtime ceiling in minutes, 0 when open.
func (c *Criteria) RuntimeMax() int { return c.runtimeMax }

// RankingOf returns the ranking preference.
func (c *Criteria) RankingOf() Ranking { return c.ranking }

// HasSocialFilter reports whether contact-scoped membership resolution is
// needed for this query.
func (c *Criteria) HasSocialFilter() bool {
	return len(c.contactIDs) > 0 || c.contactMinRating > 0
}

// runtimeBuckets maps bucket names to minute ranges. A zero high bound
// means unbounded.
var runtimeBuckets = map[string][2]int{
	"short":  {0, 90},
	"medium": {90, 120},
	"long":   {120, 180},
	"epic":   {180, 0},
}

// foldRuntimes collapses the selected buckets to one min/max pair.
// Unknown names are ignored; adjacent buckets widen the pair, and any
// unbounded bucket removes the ceiling.
func foldRuntimes(names []string) (int, int) {
	lo, hi := 0, 0
	unbounded := false
	first := true
	for _, name := range names {
		r, ok := runtimeBuckets[name]
		if !ok {
			continue
		}
		if first {
			lo, hi = r[0], r[1]
			first = false
		} else {
			lo = min(lo, r[0])
			hi = max(hi, r[1])
		}
		if r[1] == 0 {
			unbounded = true
		}
	}
	if unbounded {
		hi = 0
	}
	return lo, hi
}

func clampRating(v float64) float64 {
	if v < MinRatingFloor {
		return MinRatingFloor
	}
	if v > MaxRatingFloor {
		return MaxRatingFloor
	}
	return v
}

// dedup merges id lists preserving first-seen order.
func dedup(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, id := range list {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
