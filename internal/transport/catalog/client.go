// Package catalog is the HTTP client for the external long-tail catalog
// (tier 3). Calls are rate limited so a burst of map movement cannot
// exhaust the provider quota.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/plano-labs/mapsearch/internal/domain"
	"github.com/plano-labs/mapsearch/internal/domain/search/result"
	"github.com/plano-labs/mapsearch/internal/metrics"
	"github.com/plano-labs/mapsearch/internal/usecase/search"
)

// Defaults for the provider connection.
const (
	DefaultTimeout = 10 * time.Second
	DefaultRPS     = 4
	DefaultBurst   = 8
)

// Config holds the catalog provider settings.
type Config struct {
	BaseURL string
	APIKey  string
	Region  string
	Timeout time.Duration
	// RPS and Burst bound the outbound request rate; zero values take
	// the defaults.
	RPS    float64
	Burst  int
	Logger *zap.Logger
}

// Client implements usecase/search.CatalogClient.
type Client struct {
	baseURL string
	apiKey  string
	region  string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates a rate-limited catalog client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = DefaultRPS
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		region:  cfg.Region,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  cfg.Logger,
	}
}

// itemDTO is one catalog row on the wire.
type itemDTO struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	MediaType   string  `json:"media_type"`
	Popularity  float64 `json:"popularity"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  string  `json:"poster_path"`
}

type pageDTO struct {
	Page    int       `json:"page"`
	Results []itemDTO `json:"results"`
}

// Search runs a free-text catalog search across the given media types.
func (c *Client) Search(
	ctx context.Context, query string, mediaTypes []string, page int,
) ([]result.Result, error) {
	q := url.Values{}
	q.Set("query", query)
	if len(mediaTypes) > 0 {
		q.Set("types", strings.Join(mediaTypes, ","))
	}
	q.Set("page", strconv.Itoa(page))
	return c.get(ctx, "/search", q)
}

// Discover runs a filter-based catalog query for one media type.
func (c *Client) Discover(
	ctx context.Context, mediaType string, f search.DiscoverFilters, page int,
) ([]result.Result, error) {
	q := url.Values{}
	q.Set("type", mediaType)
	q.Set("page", strconv.Itoa(page))
	setCSV(q, "genres", f.GenreIDs)
	setCSV(q, "people", f.PersonIDs)
	setCSV(q, "countries", f.Countries)
	setCSV(q, "decades", f.DecadeFrom)
	setCSV(q, "providers", f.ProviderIDs)
	if region := f.WatchRegion; region != "" {
		q.Set("watch_region", region)
	} else if c.region != "" {
		q.Set("watch_region", c.region)
	}
	if f.PopularitySort {
		q.Set("sort_by", "popularity.desc")
	}
	return c.get(ctx, "/discover", q)
}

// HealthCheck verifies provider availability via the configuration
// endpoint (free, uncounted).
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/configuration", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("catalog health status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]result.Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.CatalogRequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CatalogRequestsTotal.WithLabelValues(path, "error").Inc()
		return nil, fmt.Errorf("catalog request: %w: %w", domain.ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.CatalogRequestsTotal.WithLabelValues(path, "error").Inc()
		return nil, fmt.Errorf("catalog status %d: %w", resp.StatusCode, domain.ErrCatalogUnavailable)
	}
	metrics.CatalogRequestsTotal.WithLabelValues(path, "success").Inc()

	var page pageDTO
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}

	results := make([]result.Result, 0, len(page.Results))
	for _, item := range page.Results {
		if item.ID == "" {
			continue
		}
		results = append(results, toResult(item))
	}
	return results, nil
}

// toResult maps a wire row to a tier-3 domain result. Unparseable release
// dates degrade to the zero time, which sorts lowest.
func toResult(item itemDTO) result.Result {
	var released time.Time
	if item.ReleaseDate != "" {
		if t, err := time.Parse("2006-01-02", item.ReleaseDate); err == nil {
			released = t
		}
	}
	var payload map[string]string
	if item.PosterPath != "" {
		payload = map[string]string{"poster_path": item.PosterPath}
	}
	return result.New(
		item.ID, result.TierCatalog, item.Title, item.MediaType,
		0, item.Popularity, time.Time{}, released, payload,
	)
}

func setCSV(q url.Values, key string, values []string) {
	if len(values) > 0 {
		q.Set(key, strings.Join(values, ","))
	}
}
