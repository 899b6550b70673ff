package spatial

import (
	"fmt"
	"strings"

	"github.com/plano-labs/mapsearch/internal/domain/search/criteria"
)

// PointsSQL returns the grid-clustered viewport query. Placeholders:
// $1 bbox EWKB, $2 actor id, $3 grid cell size in degrees; criteria
// filters continue from $4.
func PointsSQL(filterClauses []string) string {
	where := ""
	if len(filterClauses) > 0 {
		where = " AND " + strings.Join(filterClauses, " AND ")
	}
	return fmt.Sprintf(`
		SELECT
			min(e.id::text)                       AS id,
			avg(e.lat)                            AS lat,
			avg(e.lng)                            AS lng,
			count(*)::int                         AS member_count,
			max(e.search_tier)                    AS max_tier,
			min(e.name)                           AS name,
			min(e.slug)                           AS slug,
			coalesce(min(m.rating), 0)            AS rating,
			coalesce(min(m.status), '')           AS status,
			coalesce(min(e.rank_label), '')       AS rank_label,
			bool_or(e.location_approximate)       AS location_approximate
		FROM entities e
		LEFT JOIN memberships m ON m.entity_id = e.id AND m.actor_id = $2
		WHERE e.hidden_by IS DISTINCT FROM $2
		  AND ST_Intersects(e.geom, ST_GeomFromEWKB($1))%s
		GROUP BY ST_SnapToGrid(e.geom, $3, $3)`, where)
}

// TieredSQL returns the ranked list query. Tier 1 rows have at least one
// qualifying social tuple, tier 2 rows match on community signals alone.
// Placeholders: $1 actor id, $2 contact ids, $3 limit, $4 offset;
// criteria filters continue from $5.
func TieredSQL(filterClauses []string) string {
	where := ""
	if len(filterClauses) > 0 {
		where = " AND " + strings.Join(filterClauses, " AND ")
	}
	return fmt.Sprintf(`
		SELECT
			e.id::text,
			CASE WHEN s.social_hits > 0 THEN 1 ELSE 2 END AS tier,
			e.name,
			e.media_type,
			coalesce(s.social_rating, 0)    AS social_rating,
			e.popularity,
			s.latest_interaction,
			e.release_date
		FROM entities e
		LEFT JOIN LATERAL (
			SELECT
				count(*)                  AS social_hits,
				avg(m.rating)             AS social_rating,
				max(m.updated_at)         AS latest_interaction
			FROM memberships m
			WHERE m.entity_id = e.id
			  AND m.actor_id = ANY($2 || ARRAY[$1])
			  AND m.rating > 0
		) s ON true
		WHERE e.hidden_by IS DISTINCT FROM $1%s
		ORDER BY tier, social_rating DESC, e.popularity DESC
		LIMIT $3 OFFSET $4`, where)
}

// criteriaFilters renders criteria into SQL clauses with placeholders
// starting at firstArg, returning the clauses and their arguments in
// matching order. actorArg is the placeholder already bound to the acting
// user id in the enclosing query.
func criteriaFilters(c criteria.Criteria, firstArg int, actorArg string) ([]string, []any) {
	var clauses []string
	var args []any

	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", firstArg+len(args)-1)
	}

	if q := c.Query(); q != "" {
		p := next(q)
		clauses = append(clauses, fmt.Sprintf(
			"(e.name_vector @@ plainto_tsquery('simple', %s) OR e.name %%> %s)", p, p))
	}
	if id := c.CategoryID(); id != "" {
		clauses = append(clauses, fmt.Sprintf("e.category_id = %s", next(id)))
	}
	if ids := c.TypologyIDs(); len(ids) > 0 {
		clauses = append(clauses, fmt.Sprintf("e.typology_id = ANY(%s)", next(ids)))
	}
	if ids := c.AttributeIDs(); len(ids) > 0 {
		clauses = append(clauses, fmt.Sprintf("e.attribute_ids && %s", next(ids)))
	}
	if ids := c.ArchitectIDs(); len(ids) > 0 {
		clauses = append(clauses, fmt.Sprintf("e.architect_ids && %s", next(ids)))
	}
	if c.HideWithoutImages() {
		clauses = append(clauses, "e.image_count > 0")
	}
	if lo := c.RuntimeMin(); lo > 0 {
		clauses = append(clauses, fmt.Sprintf("e.runtime_minutes >= %s", next(lo)))
	}
	if hi := c.RuntimeMax(); hi > 0 {
		clauses = append(clauses, fmt.Sprintf("e.runtime_minutes <= %s", next(hi)))
	}
	if min := c.MinRating(); min > 0 {
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM memberships mr WHERE mr.entity_id = e.id AND mr.actor_id = %s AND mr.rating >= %s)",
			actorArg, next(min)))
	}
	if c.HideVisited() {
		clauses = append(clauses, statusExclusion(actorArg, "visited"))
	}
	if c.HideSaved() {
		clauses = append(clauses, statusExclusion(actorArg, "saved"))
	}
	return clauses, args
}

func statusExclusion(actorArg, status string) string {
	return fmt.Sprintf(
		"NOT EXISTS (SELECT 1 FROM memberships mx WHERE mx.entity_id = e.id AND mx.actor_id = %s AND mx.status = '%s')",
		actorArg, status)
}
