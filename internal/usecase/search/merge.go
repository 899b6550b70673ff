package search

import (
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/plano-labs/mapsearch/internal/domain/search/result"
	"github.com/plano-labs/mapsearch/internal/domain/search/sortmode"
)

// mergeTiers concatenates batches in tier order and deduplicates by
// identity: an id already present in seen (prior pages) or in an earlier
// batch wins, and later occurrences are dropped. seen is updated in place
// so callers can carry it across pages.
func mergeTiers(seen map[string]struct{}, batches ...[]result.Result) []result.Result {
	if seen == nil {
		seen = make(map[string]struct{})
	}
	var merged []result.Result
	for _, batch := range batches {
		for _, r := range batch {
			if _, dup := seen[r.ID()]; dup {
				continue
			}
			seen[r.ID()] = struct{}{}
			merged = append(merged, r)
		}
	}
	return merged
}

// sortWithinTiers orders results with tier as the primary key and the
// requested mode as the secondary key inside each tier. The sort is
// stable, so source order survives ties.
func sortWithinTiers(results []result.Result, mode sortmode.Mode) {
	var coll *collate.Collator
	if mode == sortmode.Title {
		coll = collate.New(language.Und, collate.IgnoreCase)
	}
	sort.SliceStable(results, func(i, j int) bool {
		a, b := &results[i], &results[j]
		if a.TierOf() != b.TierOf() {
			return a.TierOf() < b.TierOf()
		}
		return lessWithinTier(a, b, mode, coll)
	})
}

// lessWithinTier compares two results of the same tier. Missing sort
// fields (zero values) compare as lowest.
func lessWithinTier(a, b *result.Result, mode sortmode.Mode, coll *collate.Collator) bool {
	switch mode {
	case sortmode.RatingDesc:
		return a.SocialRating() > b.SocialRating()
	case sortmode.RatingAsc:
		return a.SocialRating() < b.SocialRating()
	case sortmode.Recency:
		return interactedAt(a).After(interactedAt(b))
	case sortmode.ReleaseDesc:
		return a.ReleaseDate().After(b.ReleaseDate())
	case sortmode.ReleaseAsc:
		return a.ReleaseDate().Before(b.ReleaseDate())
	case sortmode.Title:
		return coll.CompareString(a.Title(), b.Title()) < 0
	default:
		// Relevance: social rating for tier 1, popularity elsewhere.
		if a.TierOf() == result.TierSocial {
			return a.SocialRating() > b.SocialRating()
		}
		return a.Popularity() > b.Popularity()
	}
}

// interactedAt is the recency key: last contact interaction, falling back
// to the release date when no interaction exists.
func interactedAt(r *result.Result) time.Time {
	if !r.LatestInteraction().IsZero() {
		return r.LatestInteraction()
	}
	return r.ReleaseDate()
}

// interleaveByPopularity merges concurrent catalog batches into one
// popularity-descending list cut to limit, mimicking a single catalog page.
func interleaveByPopularity(limit int, batches ...[]result.Result) []result.Result {
	var combined []result.Result
	for _, b := range batches {
		combined = append(combined, b...)
	}
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Popularity() > combined[j].Popularity()
	})
	if len(combined) > limit {
		combined = combined[:limit]
	}
	return combined
}
