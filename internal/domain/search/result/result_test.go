package result

import (
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	release := time.Date(2001, 7, 20, 0, 0, 0, 0, time.UTC)
	seen := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	payload := map[string]string{"poster": "/p.jpg"}

	r := New("42", TierSocial, "Spirited Away", "movie", 2.5, 1200, seen, release, payload)

	if r.ID() != "42" {
		t.Errorf("ID() = %q", r.ID())
	}
	if r.TierOf() != TierSocial {
		t.Errorf("TierOf() = %d", r.TierOf())
	}
	if r.Title() != "Spirited Away" {
		t.Errorf("Title() = %q", r.Title())
	}
	if r.MediaType() != "movie" {
		t.Errorf("MediaType() = %q", r.MediaType())
	}
	if r.SocialRating() != 2.5 {
		t.Errorf("SocialRating() = %f", r.SocialRating())
	}
	if r.Popularity() != 1200 {
		t.Errorf("Popularity() = %f", r.Popularity())
	}
	if !r.LatestInteraction().Equal(seen) {
		t.Errorf("LatestInteraction() = %v", r.LatestInteraction())
	}
	if !r.ReleaseDate().Equal(release) {
		t.Errorf("ReleaseDate() = %v", r.ReleaseDate())
	}
	if r.Payload()["poster"] != "/p.jpg" {
		t.Errorf("Payload() = %v", r.Payload())
	}
}

func TestWithSocialRating_PreservesTier(t *testing.T) {
	r := New("7", TierCatalog, "Alien", "movie", 0, 500, time.Time{}, time.Time{}, nil)
	enriched := r.WithSocialRating(2.8)

	if enriched.SocialRating() != 2.8 {
		t.Errorf("SocialRating() = %f", enriched.SocialRating())
	}
	if enriched.TierOf() != TierCatalog {
		t.Error("enrichment must not change the tier")
	}
	if r.SocialRating() != 0 {
		t.Error("original result must be unchanged")
	}
}
