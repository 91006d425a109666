package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"toptours-server/internal/domain"
)

// AnalyticsRepositoryPG implements domain.AnalyticsRepository using PostgreSQL.
type AnalyticsRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository constructs the repository.
func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepositoryPG {
	return &AnalyticsRepositoryPG{pool: pool}
}

// IncrementCounters upserts promotion metrics for the provided day.
func (r *AnalyticsRepositoryPG) IncrementCounters(ctx context.Context, day string, counters map[string]int) error {
	query := `
INSERT INTO promo_analytics_daily (
    day, spend_attempts, spend_accepted, spend_rejected, points_spent, accounts_created, leaderboard_reads
) VALUES (
    $1, $2, $3, $4, $5, $6, $7
) ON CONFLICT (day) DO UPDATE SET
    spend_attempts = promo_analytics_daily.spend_attempts + EXCLUDED.spend_attempts,
    spend_accepted = promo_analytics_daily.spend_accepted + EXCLUDED.spend_accepted,
    spend_rejected = promo_analytics_daily.spend_rejected + EXCLUDED.spend_rejected,
    points_spent = promo_analytics_daily.points_spent + EXCLUDED.points_spent,
    accounts_created = promo_analytics_daily.accounts_created + EXCLUDED.accounts_created,
    leaderboard_reads = promo_analytics_daily.leaderboard_reads + EXCLUDED.leaderboard_reads,
    updated_at = NOW();
`
	_, err := r.pool.Exec(ctx, query,
		day,
		counters["spend_attempts"],
		counters["spend_accepted"],
		counters["spend_rejected"],
		counters["points_spent"],
		counters["accounts_created"],
		counters["leaderboard_reads"],
	)
	return err
}

// GetSummary returns the most recent daily counters.
func (r *AnalyticsRepositoryPG) GetSummary(ctx context.Context) (*domain.PromoAnalyticsDaily, error) {
	row := r.pool.QueryRow(ctx, `
SELECT day, spend_attempts, spend_accepted, spend_rejected, points_spent, accounts_created, leaderboard_reads, created_at, updated_at
FROM promo_analytics_daily
ORDER BY day DESC
LIMIT 1;
`)

	var summary domain.PromoAnalyticsDaily
	if err := row.Scan(
		&summary.Day,
		&summary.SpendAttempts,
		&summary.SpendAccepted,
		&summary.SpendRejected,
		&summary.PointsSpent,
		&summary.AccountsCreated,
		&summary.LeaderboardReads,
		&summary.CreatedAt,
		&summary.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &summary, nil
}
