package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/plano-labs/mapsearch/internal/domain"
	"github.com/plano-labs/mapsearch/internal/domain/search/result"
	"github.com/plano-labs/mapsearch/internal/usecase/search"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&Config{
		BaseURL: srv.URL,
		APIKey:  "k",
		Region:  "ES",
		RPS:     1000,
		Burst:   1000,
		Logger:  zap.NewNop(),
	})
}

func TestSearch_DecodesPage(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("query"); got != "calatrava" {
			t.Errorf("query = %q", got)
		}
		if got := r.URL.Query().Get("types"); got != "movie,tv" {
			t.Errorf("types = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("auth = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"results":[
			{"id":"101","title":"X","media_type":"movie","popularity":9.5,"release_date":"2019-03-01"},
			{"id":"","title":"dropped"},
			{"id":"102","title":"Y","media_type":"tv","release_date":"not-a-date"}
		]}`))
	})

	got, err := c.Search(context.Background(), "calatrava", []string{"movie", "tv"}, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results (blank id dropped), got %d", len(got))
	}
	if got[0].TierOf() != result.TierCatalog {
		t.Error("catalog rows must be tier 3")
	}
	if got[0].ReleaseDate() != time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC) {
		t.Errorf("release date = %v", got[0].ReleaseDate())
	}
	if !got[1].ReleaseDate().IsZero() {
		t.Error("an unparseable release date must degrade to the zero time")
	}
}

func TestDiscover_EncodesFilters(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("type") != "movie" {
			t.Errorf("type = %q", q.Get("type"))
		}
		if q.Get("genres") != "18,53" {
			t.Errorf("genres = %q", q.Get("genres"))
		}
		if q.Get("watch_region") != "ES" {
			t.Errorf("watch_region = %q, want the client default", q.Get("watch_region"))
		}
		if q.Get("sort_by") != "popularity.desc" {
			t.Errorf("sort_by = %q", q.Get("sort_by"))
		}
		if q.Get("page") != "2" {
			t.Errorf("page = %q", q.Get("page"))
		}
		_, _ = w.Write([]byte(`{"page":2,"results":[]}`))
	})

	_, err := c.Discover(context.Background(), "movie", search.DiscoverFilters{
		GenreIDs:       []string{"18", "53"},
		PopularitySort: true,
	}, 2)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
}

func TestGet_NonOKWrapsCatalogUnavailable(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Search(context.Background(), "q", nil, 1)
	if !errors.Is(err, domain.ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestClient_RespectsContextCancellation(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Search(ctx, "q", nil, 1); err == nil {
		t.Fatal("expected a cancellation error")
	}
}
