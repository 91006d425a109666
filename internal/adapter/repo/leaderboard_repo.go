package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"toptours-server/internal/domain"
)

// LeaderboardRepositoryPG implements domain.LeaderboardRepository backed by PostgreSQL.
type LeaderboardRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewLeaderboardRepository creates a new LeaderboardRepositoryPG.
func NewLeaderboardRepository(pool *pgxpool.Pool) *LeaderboardRepositoryPG {
	return &LeaderboardRepositoryPG{pool: pool}
}

// Rank aggregates spend events into a ranked page. Ordering is
// total_points DESC, then the instant the item reached its current total
// ASC (earlier achiever wins ties), then item_id ASC.
func (r *LeaderboardRepositoryPG) Rank(ctx context.Context, q domain.LeaderboardQuery) ([]domain.LeaderboardEntry, int64, error) {
	var since *time.Time
	if !q.Since.IsZero() {
		since = &q.Since
	}

	rows, err := r.pool.Query(ctx, `
SELECT item_id, item_type, SUM(points)::bigint AS total_points, MAX(created_at) AS last_event_at
FROM promotion_spend_events
WHERE ($1 = '' OR item_type = $1)
  AND ($2::timestamptz IS NULL OR created_at >= $2)
GROUP BY item_id, item_type
ORDER BY total_points DESC, last_event_at ASC, item_id ASC
LIMIT $3 OFFSET $4;
`, string(q.ItemType), since, q.Limit, q.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.ItemID, &e.ItemType, &e.TotalPoints, &e.LastEventAt); err != nil {
			return nil, 0, err
		}
		e.Rank = q.Offset + len(entries) + 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM (
    SELECT item_id
    FROM promotion_spend_events
    WHERE ($1 = '' OR item_type = $1)
      AND ($2::timestamptz IS NULL OR created_at >= $2)
    GROUP BY item_id, item_type
) ranked;
`, string(q.ItemType), since).Scan(&total); err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
