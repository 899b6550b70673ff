// Package profilecache caches contact profile snapshots in Redis so the
// social filter UI does not refetch them on every query.
package profilecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/plano-labs/mapsearch/internal/db"
	"github.com/plano-labs/mapsearch/internal/domain"
)

// DefaultTTL bounds profile staleness.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "profile:"

// store is the consumer interface for profile caching (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Profile is the cached snapshot of one contact.
type Profile struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Cache implements profile snapshot caching over a KV store.
type Cache struct {
	store store
	ttl   time.Duration
}

// New creates a profile cache. A non-positive ttl falls back to
// DefaultTTL.
func New(s store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: s, ttl: ttl}
}

// Get returns the cached profile, or domain.ErrNotFound when the entry
// is missing or expired.
func (c *Cache) Get(ctx context.Context, id string) (Profile, error) {
	data, err := c.store.Get(ctx, keyPrefix+id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return Profile{}, domain.ErrNotFound
		}
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		// A corrupt entry behaves like a miss; it will be rewritten.
		return Profile{}, domain.ErrNotFound
	}
	return p, nil
}

// Put stores a profile snapshot under the cache TTL.
func (c *Cache) Put(ctx context.Context, p Profile) error {
	if p.ID == "" {
		return fmt.Errorf("profile id is required")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if err := c.store.SetWithTTL(ctx, keyPrefix+p.ID, data, c.ttl); err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

// Has reports whether a fresh snapshot exists without decoding it.
func (c *Cache) Has(ctx context.Context, id string) (bool, error) {
	ok, err := c.store.Exists(ctx, keyPrefix+id)
	if err != nil {
		return false, fmt.Errorf("check profile: %w", err)
	}
	return ok, nil
}
