package search

import "github.com/plano-labs/mapsearch/internal/domain"

// ResolveSocialSet computes the entity-id set visible under the active
// social filter.
//
// When both the actor's own relationship and specific contacts are
// required (actorActive && contactsActive), tuples are grouped per entity
// and an entity qualifies only if its actor set contains the acting user
// AND at least one selected contact: "I have it AND a chosen friend has
// it". With several contacts the condition stays "actor AND (c1 OR c2
// OR ...)", never "actor AND every contact".
//
// In every other configuration the mode is union: any entity appearing in
// the supplied tuples qualifies, the caller having already scoped the
// tuples to the relevant actors.
func ResolveSocialSet(
	tuples []domain.MembershipTuple,
	actorID string,
	contactIDs []string,
	actorActive, contactsActive bool,
) map[string]struct{} {
	qualified := make(map[string]struct{})
	if len(tuples) == 0 {
		return qualified
	}

	if !(actorActive && contactsActive) {
		for _, t := range tuples {
			qualified[t.EntityID] = struct{}{}
		}
		return qualified
	}

	contacts := make(map[string]struct{}, len(contactIDs))
	for _, id := range contactIDs {
		contacts[id] = struct{}{}
	}

	actorsByEntity := make(map[string]map[string]struct{})
	for _, t := range tuples {
		set, ok := actorsByEntity[t.EntityID]
		if !ok {
			set = make(map[string]struct{})
			actorsByEntity[t.EntityID] = set
		}
		set[t.ActorID] = struct{}{}
	}

	for entityID, actors := range actorsByEntity {
		if _, ok := actors[actorID]; !ok {
			continue
		}
		for id := range actors {
			if _, ok := contacts[id]; ok {
				qualified[entityID] = struct{}{}
				break
			}
		}
	}
	return qualified
}
