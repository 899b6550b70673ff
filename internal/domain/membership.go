// Package domain holds shared value types and sentinel errors.
package domain

import "time"

// MembershipTuple is the raw fact "actor has a qualifying relationship to
// entity" (rated, visited, saved). Tuples are produced per-query and not
// retained; many tuples exist per entity, one per actor.
type MembershipTuple struct {
	EntityID string
	ActorID  string
	// Rating is the actor's rating of the entity, 0 when unrated.
	Rating float64
	// Status is the relationship kind ("visited", "saved", ...).
	Status string
	// At is when the relationship was last touched.
	At time.Time
}

// Availability is the side-channel eligibility fact for one entity in one
// region: which providers stream it and whether it can be rented or bought.
type Availability struct {
	Stream []string
	Rent   []string
	Buy    []string
}
