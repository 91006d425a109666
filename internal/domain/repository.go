package domain

import (
	"context"
	"time"
)

// AccountRepository defines persistence for promotion accounts.
type AccountRepository interface {
	Get(ctx context.Context, userID string) (*PromotionAccount, error)
	Create(ctx context.Context, account *PromotionAccount) error
	// ResetAllowance refills the account to allowance, refreshes the
	// stored tier and stamps day as the reset date. Idempotent for a
	// given day.
	ResetAllowance(ctx context.Context, userID string, tier Tier, allowance int, day time.Time) error
	// AdjustAllowance changes the ceiling mid-day and credits delta
	// points when positive. Used only when tier changes apply immediately.
	AdjustAllowance(ctx context.Context, userID string, allowance, delta int) error
}

// LedgerRepository owns the append-only spend-event ledger.
type LedgerRepository interface {
	// RecordSpend atomically decrements the account balance and appends
	// the event; both happen in one transaction or not at all. Returns
	// the remaining balance, or ErrInsufficientBalance with no writes.
	RecordSpend(ctx context.Context, event *SpendEvent) (remaining int, err error)
	// SumPointsSince totals a user's spends at or after since.
	SumPointsSince(ctx context.Context, userID string, since time.Time) (int64, error)
	// ItemScore sums points attributed to an item, optionally restricted
	// to one score category. Empty category sums across all categories.
	ItemScore(ctx context.Context, itemID, category string) (int64, error)
}

// LeaderboardRepository ranks items by aggregated score.
type LeaderboardRepository interface {
	Rank(ctx context.Context, q LeaderboardQuery) ([]LeaderboardEntry, int64, error)
}

// SubscriptionRepository persists Stripe subscription mirrors.
type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub *Subscription) error
	GetByUserID(ctx context.Context, userID string) (*Subscription, error)
}

// AnalyticsRepository updates promotion metrics counters.
type AnalyticsRepository interface {
	IncrementCounters(ctx context.Context, day string, counters map[string]int) error
	GetSummary(ctx context.Context) (*PromoAnalyticsDaily, error)
}
