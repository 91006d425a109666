package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"toptours-server/internal/domain"
)

// AccountRepositoryPG implements domain.AccountRepository backed by PostgreSQL.
type AccountRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepositoryPG.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepositoryPG {
	return &AccountRepositoryPG{pool: pool}
}

const accountColumns = `user_id, tier, daily_allowance, points_available_today, last_reset_date, lifetime_spent, created_at, updated_at`

// Get fetches a promotion account by user id.
func (r *AccountRepositoryPG) Get(ctx context.Context, userID string) (*domain.PromotionAccount, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM promotion_accounts WHERE user_id = $1`, userID)
	return scanAccount(row)
}

// Create inserts a new account. A concurrent first-spend may race the
// insert; the conflict clause keeps the earlier row.
func (r *AccountRepositoryPG) Create(ctx context.Context, account *domain.PromotionAccount) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO promotion_accounts (user_id, tier, daily_allowance, points_available_today, last_reset_date, lifetime_spent)
VALUES ($1, $2, $3, $4, $5, 0)
ON CONFLICT (user_id) DO NOTHING;
`,
		account.UserID,
		account.Tier,
		account.DailyAllowance,
		account.PointsAvailableToday,
		account.LastResetDate,
	)
	return err
}

// ResetAllowance refills the balance to allowance and stamps day. The
// date guard makes concurrent resets for the same day a no-op after the
// first one.
func (r *AccountRepositoryPG) ResetAllowance(ctx context.Context, userID string, tier domain.Tier, allowance int, day time.Time) error {
	_, err := r.pool.Exec(ctx, `
UPDATE promotion_accounts
SET tier = $2,
    daily_allowance = $3,
    points_available_today = $3,
    last_reset_date = $4,
    updated_at = NOW()
WHERE user_id = $1
  AND last_reset_date < $4;
`, userID, tier, allowance, day)
	return err
}

// AdjustAllowance raises or lowers the ceiling mid-day, crediting delta
// when positive. The balance never drops below zero on a downgrade.
func (r *AccountRepositoryPG) AdjustAllowance(ctx context.Context, userID string, allowance, delta int) error {
	_, err := r.pool.Exec(ctx, `
UPDATE promotion_accounts
SET daily_allowance = $2,
    points_available_today = GREATEST(0, LEAST($2, points_available_today + $3)),
    updated_at = NOW()
WHERE user_id = $1;
`, userID, allowance, delta)
	return err
}

func scanAccount(row pgx.Row) (*domain.PromotionAccount, error) {
	var a domain.PromotionAccount
	if err := row.Scan(
		&a.UserID,
		&a.Tier,
		&a.DailyAllowance,
		&a.PointsAvailableToday,
		&a.LastResetDate,
		&a.LifetimeSpent,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
