// Package spatial implements the Postgres/PostGIS backend for viewport
// point queries and tier-1/2 ranked search.
package spatial

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/plano-labs/mapsearch/internal/db/postgres"
	"github.com/plano-labs/mapsearch/internal/domain/geo"
	"github.com/plano-labs/mapsearch/internal/domain/point"
	"github.com/plano-labs/mapsearch/internal/domain/search/criteria"
	"github.com/plano-labs/mapsearch/internal/domain/search/result"
)

const srid = 4326

// Repo implements usecase/search.SpatialRepository on pgx.
type Repo struct {
	pool postgres.Querier
}

// New creates a spatial repository.
func New(pool postgres.Querier) *Repo {
	return &Repo{pool: pool}
}

// QueryPoints runs the grid-clustered viewport query. Rows grouping more
// than one entity come back as clusters, the rest as single entities.
func (r *Repo) QueryPoints(
	ctx context.Context, bounds geo.Bounds, zoom int, c criteria.Criteria,
) ([]point.Point, error) {
	bbox, err := boundsEWKB(bounds)
	if err != nil {
		return nil, fmt.Errorf("encode bounds: %w", err)
	}

	clauses, filterArgs := criteriaFilters(c, 4, "$2")
	args := append([]any{bbox, c.ActorID(), cellSize(zoom)}, filterArgs...)

	rows, err := r.pool.Query(ctx, PointsSQL(clauses), args...)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	var points []point.Point
	for rows.Next() {
		var (
			id, name, slug, status, rankLabel string
			lat, lng, rating                  float64
			memberCount, maxTier              int
			approximate                       bool
		)
		if err := rows.Scan(
			&id, &lat, &lng, &memberCount, &maxTier,
			&name, &slug, &rating, &status, &rankLabel, &approximate,
		); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}

		if memberCount > 1 {
			points = append(points, point.Cluster("cluster-"+id, lat, lng, memberCount, maxTier))
			continue
		}
		p := point.Single(id, lat, lng, name)
		p.Slug = slug
		p.Rating = rating
		p.Status = point.Status(status)
		p.TierRankLabel = rankLabel
		p.Approximate = approximate
		points = append(points, p)
	}
	return points, rows.Err()
}

// SearchTiered runs the ranked tier-1/2 list query.
func (r *Repo) SearchTiered(
	ctx context.Context, c criteria.Criteria, limit, offset int,
) ([]result.Result, error) {
	clauses, filterArgs := criteriaFilters(c, 5, "$1")
	args := append([]any{c.ActorID(), c.ContactIDs(), limit, offset}, filterArgs...)

	rows, err := r.pool.Query(ctx, TieredSQL(clauses), args...)
	if err != nil {
		return nil, fmt.Errorf("query tiered: %w", err)
	}
	defer rows.Close()

	var results []result.Result
	for rows.Next() {
		var (
			id, name, mediaType     string
			tier                    int
			socialRating, pop       float64
			latestInter, releasedAt *time.Time
		)
		if err := rows.Scan(
			&id, &tier, &name, &mediaType, &socialRating, &pop, &latestInter, &releasedAt,
		); err != nil {
			return nil, fmt.Errorf("scan tiered row: %w", err)
		}
		results = append(results, result.New(
			id, result.Tier(tier), name, mediaType,
			socialRating, pop, deref(latestInter), deref(releasedAt), nil,
		))
	}
	return results, rows.Err()
}

// boundsEWKB encodes the bounds as an EWKB polygon with SRID 4326 for
// the ST_GeomFromEWKB bbox predicate.
func boundsEWKB(b geo.Bounds) ([]byte, error) {
	ring := []float64{
		b.West, b.South,
		b.East, b.South,
		b.East, b.North,
		b.West, b.North,
		b.West, b.South,
	}
	poly := geom.NewPolygonFlat(geom.XY, ring, []int{len(ring)}).SetSRID(srid)
	return ewkb.Marshal(poly, ewkb.NDR)
}

// cellSize maps a zoom level to the snap grid size in degrees. Each zoom
// step halves the cell, with a floor below which rows no longer cluster.
func cellSize(zoom int) float64 {
	if zoom < 0 {
		zoom = 0
	}
	size := 45.0 / math.Pow(2, float64(zoom))
	if size < 0.0005 {
		size = 0.0005
	}
	return size
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
