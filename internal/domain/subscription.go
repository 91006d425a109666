package domain

import "time"

// Subscription mirrors the user's Stripe subscription state. Kept in
// sync by the billing webhook; the promotion service only reads the tier.
type Subscription struct {
	UserID               string
	StripeCustomerID     string
	StripeSubscriptionID string
	Tier                 Tier
	Status               string
	CurrentPeriodEnd     time.Time
	UpdatedAt            time.Time
}

// Active reports whether the subscription currently grants its tier.
func (s Subscription) Active() bool {
	return s.Status == "active" || s.Status == "trialing"
}
