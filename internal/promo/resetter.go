package promo

import (
	"context"
	"fmt"
	"time"

	"toptours-server/internal/domain"
)

// Resetter refills an account's daily allowance when the calendar day has
// rolled over in the configured reference zone. It is invoked at the
// start of every spend attempt and is idempotent within a day.
type Resetter struct {
	Clock    domain.Clock
	Accounts domain.AccountRepository

	// ApplyTierChangeImmediately raises (or lowers) the ceiling as soon
	// as a tier change is observed instead of waiting for the next
	// reset. Off by default: an upgrade mid-day does not grant the
	// difference until tomorrow.
	ApplyTierChangeImmediately bool
}

// NeedsReset reports whether the account's last reset predates today.
func (r *Resetter) NeedsReset(account *domain.PromotionAccount) bool {
	return civilAfter(r.Clock.Now(), account.LastResetDate)
}

// Reset refills the account to the allowance of its current tier and
// stamps today as the reset date, mutating account to match.
func (r *Resetter) Reset(ctx context.Context, account *domain.PromotionAccount, tier domain.Tier, allowance int) error {
	today := domain.CivilDate(r.Clock.Now())
	if err := r.Accounts.ResetAllowance(ctx, account.UserID, tier, allowance, today); err != nil {
		return fmt.Errorf("reset allowance: %w", err)
	}
	account.Tier = tier
	account.DailyAllowance = allowance
	account.PointsAvailableToday = allowance
	account.LastResetDate = today
	return nil
}

// SyncTier applies a mid-day tier change when immediate application is
// enabled. A raised ceiling credits the difference; a lowered one caps
// the available balance.
func (r *Resetter) SyncTier(ctx context.Context, account *domain.PromotionAccount, tier domain.Tier, allowance int) error {
	if !r.ApplyTierChangeImmediately || allowance == account.DailyAllowance {
		return nil
	}
	delta := allowance - account.DailyAllowance
	if err := r.Accounts.AdjustAllowance(ctx, account.UserID, allowance, delta); err != nil {
		return fmt.Errorf("adjust allowance: %w", err)
	}
	account.Tier = tier
	account.DailyAllowance = allowance
	account.PointsAvailableToday = clamp(account.PointsAvailableToday+delta, 0, allowance)
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// civilAfter reports whether now falls on a strictly later calendar day
// than then. last_reset_date is stored as a bare date, so only the
// (year, month, day) triple matters.
func civilAfter(now, then time.Time) bool {
	ny, nm, nd := now.Date()
	ty, tm, td := then.Date()
	if ny != ty {
		return ny > ty
	}
	if nm != tm {
		return nm > tm
	}
	return nd > td
}
