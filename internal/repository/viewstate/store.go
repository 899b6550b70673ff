// Package viewstate persists per-session viewport state in Redis so a
// returning session resumes where the map was left.
package viewstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/plano-labs/mapsearch/internal/db"
	"github.com/plano-labs/mapsearch/internal/domain/viewport"
)

// DefaultTTL expires abandoned sessions.
const DefaultTTL = 30 * 24 * time.Hour

const keyPrefix = "viewport:"

// store is the consumer interface for viewport persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type record struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Zoom float64 `json:"zoom"`
	Mode string  `json:"mode"`
}

// Store implements viewport persistence over a KV store.
type Store struct {
	store store
	ttl   time.Duration
}

// New creates a viewport store. A non-positive ttl falls back to
// DefaultTTL.
func New(s store, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{store: s, ttl: ttl}
}

// Load returns the session's viewport. Missing or malformed entries fall
// back to the default viewport rather than failing.
func (s *Store) Load(ctx context.Context, session string) (viewport.State, error) {
	data, err := s.store.Get(ctx, keyPrefix+session)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return viewport.Default(), nil
		}
		return viewport.Default(), fmt.Errorf("load viewport: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return viewport.Default(), nil
	}
	state := viewport.State{Lat: rec.Lat, Lng: rec.Lng, Zoom: rec.Zoom, Mode: viewport.Mode(rec.Mode)}
	return state.Normalize(), nil
}

// Save persists the session's viewport under the store TTL.
func (s *Store) Save(ctx context.Context, session string, state viewport.State) error {
	data, err := json.Marshal(record{
		Lat: state.Lat, Lng: state.Lng, Zoom: state.Zoom, Mode: string(state.Mode),
	})
	if err != nil {
		return fmt.Errorf("marshal viewport: %w", err)
	}
	if err := s.store.SetWithTTL(ctx, keyPrefix+session, data, s.ttl); err != nil {
		return fmt.Errorf("save viewport: %w", err)
	}
	return nil
}

// Drop removes the session's viewport.
func (s *Store) Drop(ctx context.Context, session string) error {
	if err := s.store.Del(ctx, keyPrefix+session); err != nil {
		return fmt.Errorf("drop viewport: %w", err)
	}
	return nil
}

// SessionWriter adapts one session's Save into the debounced syncer's
// writer contract.
type SessionWriter struct {
	Store   *Store
	Session string
}

// Write persists the state for the bound session.
func (w SessionWriter) Write(ctx context.Context, state viewport.State) error {
	return w.Store.Save(ctx, w.Session, state)
}
