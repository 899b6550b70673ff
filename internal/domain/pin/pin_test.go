package pin

import (
	"testing"

	"github.com/plano-labs/mapsearch/internal/domain/point"
)

func TestClassify_PersonalContext(t *testing.T) {
	cases := []struct {
		name   string
		rating float64
		status point.Status
		want   Tier
	}{
		{"rating 3", 3, point.StatusNone, TierS},
		{"rating above 3", 3.5, point.StatusNone, TierS},
		{"rating 2", 2, point.StatusNone, TierA},
		{"rating 1", 1, point.StatusNone, TierB},
		{"bare saved", 0, point.StatusSaved, TierC},
		{"bare visited", 0, point.StatusVisited, TierC},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := point.Point{Count: 1, Rating: tc.rating, Status: tc.status}
			if got := Classify(p); got.Tier != tc.want {
				t.Errorf("Classify(rating=%v, status=%q).Tier = %s, want %s",
					tc.rating, tc.status, got.Tier, tc.want)
			}
		})
	}
}

func TestClassify_DiscoveryContext(t *testing.T) {
	cases := []struct {
		label string
		want  Tier
	}{
		{"Top 1%", TierS},
		{"Top 5%", TierA},
		{"Top 10%", TierA},
		{"Top 20%", TierB},
		{"", TierC},
		{"Top 50%", TierC},
		{"garbage", TierC},
	}
	for _, tc := range cases {
		p := point.Point{Count: 1, TierRankLabel: tc.label}
		if got := Classify(p); got.Tier != tc.want {
			t.Errorf("label %q: got tier %s, want %s", tc.label, got.Tier, tc.want)
		}
	}
}

func TestClassify_PersonalRatingBeatsRankLabel(t *testing.T) {
	// A personal signal always takes the library ladder, even when a
	// discovery label is present on the row.
	p := point.Point{Count: 1, Rating: 1, TierRankLabel: "Top 1%"}
	if got := Classify(p); got.Tier != TierB {
		t.Fatalf("expected personal-context TierB, got %s", got.Tier)
	}
}

func TestClassify_ClusterSizes(t *testing.T) {
	cases := []struct {
		count int
		want  int
	}{
		{2, clusterSmall},
		{100, clusterSmall},
		{101, clusterMedium},
		{1000, clusterMedium},
		{1001, clusterLarge},
	}
	for _, tc := range cases {
		p := point.Cluster("c", 0, 0, tc.count, 1)
		got := Classify(p)
		if got.Tier != TierCluster {
			t.Fatalf("count %d: expected cluster tier, got %s", tc.count, got.Tier)
		}
		if got.Size != tc.want {
			t.Errorf("count %d: size = %d, want %d", tc.count, got.Size, tc.want)
		}
	}
}

func TestClassify_ZOrderPrecedence(t *testing.T) {
	cluster := Classify(point.Cluster("c", 0, 0, 10, 1))
	tierS := Classify(point.Point{Count: 1, Rating: 3})
	tierA := Classify(point.Point{Count: 1, Rating: 2})
	tierB := Classify(point.Point{Count: 1, Rating: 1})
	tierC := Classify(point.Point{Count: 1, Status: point.StatusSaved})

	if !(tierS.ZOrder > tierA.ZOrder && tierA.ZOrder > cluster.ZOrder &&
		cluster.ZOrder > tierB.ZOrder && tierB.ZOrder > tierC.ZOrder) {
		t.Fatalf("z-order precedence violated: S=%d A=%d cluster=%d B=%d C=%d",
			tierS.ZOrder, tierA.ZOrder, cluster.ZOrder, tierB.ZOrder, tierC.ZOrder)
	}
}
