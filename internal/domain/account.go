package domain

import "time"

// Tier enumerates subscription levels.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierProPlus    Tier = "pro_plus"
	TierEnterprise Tier = "enterprise"
)

// AllowanceForTier returns the daily point allowance granted by a tier.
// Unknown tiers fall back to the free allowance.
func AllowanceForTier(t Tier) int {
	switch t {
	case TierPro:
		return 200
	case TierProPlus:
		return 500
	case TierEnterprise:
		return 2000
	default:
		return 50
	}
}

// ValidTier reports whether t is one of the supported subscription tiers.
func ValidTier(t Tier) bool {
	switch t {
	case TierFree, TierPro, TierProPlus, TierEnterprise:
		return true
	}
	return false
}

// PromotionAccount is the per-user record of daily promotion points.
// Created lazily on the first promotion action and never deleted.
type PromotionAccount struct {
	UserID               string
	Tier                 Tier
	DailyAllowance       int
	PointsAvailableToday int
	LastResetDate        time.Time
	LifetimeSpent        int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
