package search

import (
	"slices"

	"github.com/plano-labs/mapsearch/internal/domain"
	"github.com/plano-labs/mapsearch/internal/domain/search/result"
)

// AvailabilityPrefs are the caller's active availability predicates.
// Predicates are OR'd: a candidate survives if it satisfies any one.
type AvailabilityPrefs struct {
	// OnlyMyPlatforms keeps candidates streaming on one of UserPlatforms.
	OnlyMyPlatforms bool
	UserPlatforms   []string
	// RentOrBuy keeps candidates that can be rented or bought.
	RentOrBuy bool
	// SelectedProviders keeps candidates streaming on a named provider.
	SelectedProviders []string
	// Region is the availability region code; filtering is skipped
	// entirely without one.
	Region string
}

// Active reports whether any availability predicate applies.
func (p AvailabilityPrefs) Active() bool {
	return p.Region != "" && (p.OnlyMyPlatforms || p.RentOrBuy || len(p.SelectedProviders) > 0)
}

// filterByAvailability post-filters tier-3 candidates against availability
// facts. Candidates without a fact are kept (optimistic-keep-on-unknown);
// candidates from earlier tiers always pass untouched.
func filterByAvailability(
	results []result.Result,
	facts map[string]domain.Availability,
	prefs AvailabilityPrefs,
) []result.Result {
	if !prefs.Active() {
		return results
	}

	kept := results[:0]
	for _, r := range results {
		if r.TierOf() != result.TierCatalog {
			kept = append(kept, r)
			continue
		}
		fact, known := facts[r.ID()]
		if !known {
			kept = append(kept, r)
			continue
		}
		if availabilityMatches(fact, prefs) {
			kept = append(kept, r)
		}
	}
	return kept
}

func availabilityMatches(fact domain.Availability, prefs AvailabilityPrefs) bool {
	if prefs.OnlyMyPlatforms && streamsOnAny(fact.Stream, prefs.UserPlatforms) {
		return true
	}
	if prefs.RentOrBuy && (len(fact.Rent) > 0 || len(fact.Buy) > 0) {
		return true
	}
	if len(prefs.SelectedProviders) > 0 && streamsOnAny(fact.Stream, prefs.SelectedProviders) {
		return true
	}
	return false
}

func streamsOnAny(streams, wanted []string) bool {
	for _, s := range streams {
		if slices.Contains(wanted, s) {
			return true
		}
	}
	return false
}
