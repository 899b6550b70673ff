// Package point holds the spatial result row types returned by the
// map backend: either a pre-aggregated cluster or a single entity.
package point

// Status is the acting user's relationship to an entity.
type Status string

// Known entity statuses.
const (
	StatusNone    Status = ""
	StatusVisited Status = "visited"
	StatusSaved   Status = "saved"
)

// Point is one row of a spatial query: a cluster (Count > 1, entity
// fields empty) or a single entity (Count == 1, cluster fields empty).
type Point struct {
	ID        string  `json:"id"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	IsCluster bool    `json:"is_cluster"`
	Count     int     `json:"count"`

	// Cluster-only: highest result tier among members, 0 when unknown.
	MaxTier int `json:"max_tier,omitempty"`

	// Single-entity fields.
	Name          string  `json:"name,omitempty"`
	Slug          string  `json:"slug,omitempty"`
	Rating        float64 `json:"rating,omitempty"`
	Status        Status  `json:"status,omitempty"`
	TierRankLabel string  `json:"tier_rank_label,omitempty"`
	Approximate   bool    `json:"location_approximate,omitempty"`
}

// Cluster creates a cluster point.
func Cluster(id string, lat, lng float64, count, maxTier int) Point {
	return Point{ID: id, Lat: lat, Lng: lng, IsCluster: true, Count: count, MaxTier: maxTier}
}

// Single creates a single-entity point.
func Single(id string, lat, lng float64, name string) Point {
	return Point{ID: id, Lat: lat, Lng: lng, Count: 1, Name: name}
}

// Valid reports whether the row satisfies the cluster/entity exclusivity
// invariant: clusters carry no entity fields and count >= 1 everywhere.
func (p Point) Valid() bool {
	if p.Count < 1 {
		return false
	}
	if p.IsCluster {
		return p.Count > 1 && p.Name == "" && p.Status == StatusNone && p.Rating == 0
	}
	return p.Count == 1 && p.MaxTier == 0
}

// InLibrary reports whether the acting user has a personal signal for the
// entity: a nonzero rating or a visited/saved status.
func (p Point) InLibrary() bool {
	return p.Rating > 0 || p.Status == StatusVisited || p.Status == StatusSaved
}
