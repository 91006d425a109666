package domain

import "time"

// PromoAnalyticsDaily stores aggregated promotion metrics for one day.
type PromoAnalyticsDaily struct {
	Day              time.Time
	SpendAttempts    int
	SpendAccepted    int
	SpendRejected    int
	PointsSpent      int64
	AccountsCreated  int
	LeaderboardReads int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
