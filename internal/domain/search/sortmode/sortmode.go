package sortmode

// Mode is the secondary sort applied within a result tier. Tier precedence
// is always the primary key regardless of mode.
type Mode string

// Secondary sort modes.
const (
	// Relevance uses the tier-appropriate default: social rating for
	// tier 1, popularity for tiers 2 and 3.
	Relevance   Mode = "relevance"
	RatingDesc  Mode = "rating_desc"
	RatingAsc   Mode = "rating_asc"
	Recency     Mode = "recency"
	ReleaseDesc Mode = "release_desc"
	ReleaseAsc  Mode = "release_asc"
	Title       Mode = "title"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	switch m {
	case Relevance, RatingDesc, RatingAsc, Recency, ReleaseDesc, ReleaseAsc, Title:
		return true
	}
	return false
}
