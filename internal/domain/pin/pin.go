// Package pin maps spatial points to display tiers controlling marker
// precedence: sort order, z-order, and visual weight.
package pin

import "github.com/plano-labs/mapsearch/internal/domain/point"

// Tier is the display precedence bucket of a map marker.
type Tier string

// Marker tiers, highest precedence first. Cluster is a pseudo-tier for
// aggregated markers.
const (
	TierS       Tier = "S"
	TierA       Tier = "A"
	TierB       Tier = "B"
	TierC       Tier = "C"
	TierCluster Tier = "cluster"
)

// Z-order per tier. Clusters sit above B/C singles and below S/A singles;
// within a zoom level higher tier always wins regardless of cluster-vs-single.
const (
	zOrderS       = 100
	zOrderA       = 50
	zOrderCluster = 30
	zOrderB       = 20
	zOrderC       = 5
)

// Single-marker sizes in pixels.
const (
	sizeS = 44
	sizeA = 36
	sizeB = 28
	sizeC = 20
)

// Cluster size buckets, stepped by member count.
const (
	clusterSmall  = 32
	clusterMedium = 48
	clusterLarge  = 64
)

// Style is the resolved visual precedence of a marker.
type Style struct {
	Tier   Tier `json:"tier"`
	ZOrder int  `json:"z_order"`
	Size   int  `json:"size"`
}

// rankLabelTiers maps the percentile labels emitted by the query layer to
// display tiers. The label set is an external contract; anything not listed
// falls back to TierC rather than silently matching nothing.
var rankLabelTiers = map[string]Tier{
	"Top 1%":  TierS,
	"Top 5%":  TierA,
	"Top 10%": TierA,
	"Top 20%": TierB,
}

// TierForRankLabel resolves a percentile label to a display tier,
// defaulting unknown labels to TierC.
func TierForRankLabel(label string) Tier {
	if t, ok := rankLabelTiers[label]; ok {
		return t
	}
	return TierC
}

// Classify resolves the display style of a spatial point.
//
// Singles use the personal context when the acting user has a signal
// (rating, visited, saved) and the discovery percentile ladder otherwise.
func Classify(p point.Point) Style {
	if p.IsCluster {
		return Style{Tier: TierCluster, ZOrder: zOrderCluster, Size: clusterSize(p.Count)}
	}

	var tier Tier
	if p.InLibrary() {
		switch {
		case p.Rating >= 3:
			tier = TierS
		case p.Rating >= 2:
			tier = TierA
		case p.Rating >= 1:
			tier = TierB
		default:
			// Rating 0 with bare saved/visited status.
			tier = TierC
		}
	} else {
		tier = TierForRankLabel(p.TierRankLabel)
	}

	switch tier {
	case TierS:
		return Style{Tier: TierS, ZOrder: zOrderS, Size: sizeS}
	case TierA:
		return Style{Tier: TierA, ZOrder: zOrderA, Size: sizeA}
	case TierB:
		return Style{Tier: TierB, ZOrder: zOrderB, Size: sizeB}
	default:
		return Style{Tier: TierC, ZOrder: zOrderC, Size: sizeC}
	}
}

func clusterSize(count int) int {
	switch {
	case count > 1000:
		return clusterLarge
	case count > 100:
		return clusterMedium
	default:
		return clusterSmall
	}
}
