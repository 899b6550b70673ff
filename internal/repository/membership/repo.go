// Package membership reads raw relationship tuples from Postgres.
package membership

import (
	"context"
	"fmt"
	"time"

	"github.com/plano-labs/mapsearch/internal/db/postgres"
	"github.com/plano-labs/mapsearch/internal/domain"
	"github.com/plano-labs/mapsearch/internal/domain/point"
)

// Repo implements usecase/search.MembershipRepository on pgx.
type Repo struct {
	pool postgres.Querier
}

// New creates a membership repository.
func New(pool postgres.Querier) *Repo {
	return &Repo{pool: pool}
}

const baseSelect = `
	SELECT entity_id::text, actor_id::text,
	       coalesce(rating, 0), coalesce(status, ''), updated_at
	FROM memberships`

// Query returns tuples for the given actors, optionally restricted by
// status and a minimum rating.
func (r *Repo) Query(
	ctx context.Context, actorIDs []string,
	statuses []point.Status, minRating float64,
) ([]domain.MembershipTuple, error) {
	if len(actorIDs) == 0 {
		return nil, nil
	}

	sql := baseSelect + ` WHERE actor_id = ANY($1)`
	args := []any{actorIDs}
	if len(statuses) > 0 {
		args = append(args, statusStrings(statuses))
		sql += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}
	if minRating > 0 {
		args = append(args, minRating)
		sql += fmt.Sprintf(" AND rating >= $%d", len(args))
	}

	return r.query(ctx, sql, args...)
}

// QueryForEntities returns tuples for the given actors scoped to a
// candidate entity set.
func (r *Repo) QueryForEntities(
	ctx context.Context, entityIDs, actorIDs []string,
) ([]domain.MembershipTuple, error) {
	if len(entityIDs) == 0 || len(actorIDs) == 0 {
		return nil, nil
	}
	sql := baseSelect + ` WHERE entity_id = ANY($1) AND actor_id = ANY($2)`
	return r.query(ctx, sql, entityIDs, actorIDs)
}

func (r *Repo) query(ctx context.Context, sql string, args ...any) ([]domain.MembershipTuple, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query memberships: %w", err)
	}
	defer rows.Close()

	var tuples []domain.MembershipTuple
	for rows.Next() {
		var (
			tup domain.MembershipTuple
			at  *time.Time
		)
		if err := rows.Scan(&tup.EntityID, &tup.ActorID, &tup.Rating, &tup.Status, &at); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		if at != nil {
			tup.At = *at
		}
		tuples = append(tuples, tup)
	}
	return tuples, rows.Err()
}

func statusStrings(statuses []point.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
