// Package availability reads per-region provider facts from Postgres.
package availability

import (
	"context"
	"fmt"

	"github.com/plano-labs/mapsearch/internal/db/postgres"
	"github.com/plano-labs/mapsearch/internal/domain"
)

// Offer kinds stored in the availability table.
const (
	kindStream = "stream"
	kindRent   = "rent"
	kindBuy    = "buy"
)

// Repo implements usecase/search.AvailabilityReader on pgx.
type Repo struct {
	pool postgres.Querier
}

// New creates an availability repository.
func New(pool postgres.Querier) *Repo {
	return &Repo{pool: pool}
}

// Lookup returns availability facts for the entities in one region.
// Entities without rows are simply absent from the map.
func (r *Repo) Lookup(
	ctx context.Context, entityIDs []string, regionCode string,
) (map[string]domain.Availability, error) {
	if len(entityIDs) == 0 {
		return map[string]domain.Availability{}, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT entity_id::text, kind, provider
		FROM availability
		WHERE entity_id = ANY($1) AND region = $2`,
		entityIDs, regionCode)
	if err != nil {
		return nil, fmt.Errorf("query availability: %w", err)
	}
	defer rows.Close()

	facts := make(map[string]domain.Availability)
	for rows.Next() {
		var entityID, kind, provider string
		if err := rows.Scan(&entityID, &kind, &provider); err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		fact := facts[entityID]
		switch kind {
		case kindStream:
			fact.Stream = append(fact.Stream, provider)
		case kindRent:
			fact.Rent = append(fact.Rent, provider)
		case kindBuy:
			fact.Buy = append(fact.Buy, provider)
		}
		facts[entityID] = fact
	}
	return facts, rows.Err()
}
