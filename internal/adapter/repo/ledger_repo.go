package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"toptours-server/internal/domain"
)

// LedgerRepositoryPG implements domain.LedgerRepository backed by PostgreSQL.
type LedgerRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepositoryPG.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepositoryPG {
	return &LedgerRepositoryPG{pool: pool}
}

// RecordSpend decrements the account and appends the ledger row in one
// transaction. The decrement is conditional on sufficient balance, which
// closes the double-spend race: two concurrent spends serialize on the
// account row, and the loser of the race sees zero rows affected.
func (r *LedgerRepositoryPG) RecordSpend(ctx context.Context, event *domain.SpendEvent) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin spend tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
UPDATE promotion_accounts
SET points_available_today = points_available_today - $2,
    lifetime_spent = lifetime_spent + $2,
    updated_at = NOW()
WHERE user_id = $1
  AND points_available_today >= $2;
`, event.UserID, event.Points)
	if err != nil {
		return 0, fmt.Errorf("decrement balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, domain.ErrInsufficientBalance
	}

	row := tx.QueryRow(ctx, `
INSERT INTO promotion_spend_events (id, user_id, item_id, item_type, score_category, points)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
RETURNING id, created_at;
`,
		event.UserID,
		event.ItemID,
		event.ItemType,
		event.ScoreCategory,
		event.Points,
	)
	if err := row.Scan(&event.ID, &event.CreatedAt); err != nil {
		return 0, fmt.Errorf("append spend event: %w", err)
	}

	var remaining int
	if err := tx.QueryRow(ctx,
		`SELECT points_available_today FROM promotion_accounts WHERE user_id = $1`,
		event.UserID,
	).Scan(&remaining); err != nil {
		return 0, fmt.Errorf("read remaining balance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit spend tx: %w", err)
	}
	return remaining, nil
}

// SumPointsSince totals a user's recorded spends at or after since.
func (r *LedgerRepositoryPG) SumPointsSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	row := r.pool.QueryRow(ctx, `
SELECT COALESCE(SUM(points), 0)
FROM promotion_spend_events
WHERE user_id = $1
  AND created_at >= $2;
`, userID, since)

	var total int64
	if err := row.Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// ItemScore sums points attributed to an item. An empty category sums
// across all categories; otherwise only matching rows count.
func (r *LedgerRepositoryPG) ItemScore(ctx context.Context, itemID, category string) (int64, error) {
	row := r.pool.QueryRow(ctx, `
SELECT COALESCE(SUM(points), 0)
FROM promotion_spend_events
WHERE item_id = $1
  AND ($2 = '' OR score_category = $2);
`, itemID, category)

	var total int64
	if err := row.Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
