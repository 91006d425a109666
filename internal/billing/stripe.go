package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"toptours-server/internal/domain"
)

// ErrIgnoredEvent marks webhook event types this service does not track.
var ErrIgnoredEvent = errors.New("billing: ignored event type")

// metadataUserIDKey is set on the subscription by the checkout flow and
// links Stripe state back to a TopTours user.
const metadataUserIDKey = "user_id"

// Service mirrors Stripe subscription state into the local store and
// answers tier lookups for the promotion ledger.
type Service struct {
	subs          domain.SubscriptionRepository
	priceTiers    map[string]domain.Tier
	webhookSecret string
	logger        zerolog.Logger
}

func NewService(subs domain.SubscriptionRepository, priceTiers map[string]domain.Tier, webhookSecret string, logger zerolog.Logger) *Service {
	return &Service{
		subs:          subs,
		priceTiers:    priceTiers,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// PriceTiers builds the price-id to tier map from configured price ids.
// Empty ids are skipped.
func PriceTiers(pro, proPlus, enterprise string) map[string]domain.Tier {
	m := make(map[string]domain.Tier, 3)
	for id, tier := range map[string]domain.Tier{
		pro:        domain.TierPro,
		proPlus:    domain.TierProPlus,
		enterprise: domain.TierEnterprise,
	} {
		if strings.TrimSpace(id) != "" {
			m[id] = tier
		}
	}
	return m
}

// TierForUser returns the user's current tier. Users without an active
// subscription are on the free tier.
func (s *Service) TierForUser(ctx context.Context, userID string) (domain.Tier, error) {
	sub, err := s.subs.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.TierFree, nil
		}
		return "", fmt.Errorf("billing: load subscription: %w", err)
	}
	if !sub.Active() {
		return domain.TierFree, nil
	}
	return sub.Tier, nil
}

// VerifyEvent checks the webhook signature and decodes the event.
func (s *Service) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, s.webhookSecret)
}

// HandleEvent applies one verified webhook event to the subscription
// mirror. Unknown event types return ErrIgnoredEvent so the caller can
// acknowledge them without side effects.
func (s *Service) HandleEvent(ctx context.Context, event stripe.Event) error {
	switch string(event.Type) {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
	default:
		return ErrIgnoredEvent
	}

	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("billing: decode subscription: %w", err)
	}
	return s.SyncSubscription(ctx, &sub)
}

// SyncSubscription upserts the local mirror of a Stripe subscription.
func (s *Service) SyncSubscription(ctx context.Context, sub *stripe.Subscription) error {
	userID := sub.Metadata[metadataUserIDKey]
	if userID == "" {
		s.logger.Warn().Str("subscription_id", sub.ID).Msg("subscription without user_id metadata")
		return fmt.Errorf("billing: subscription %s has no %s metadata", sub.ID, metadataUserIDKey)
	}

	mirror := &domain.Subscription{
		UserID:               userID,
		StripeSubscriptionID: sub.ID,
		Tier:                 s.tierForSubscription(sub),
		Status:               string(sub.Status),
		CurrentPeriodEnd:     time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
	}
	if sub.Customer != nil {
		mirror.StripeCustomerID = sub.Customer.ID
	}

	if err := s.subs.Upsert(ctx, mirror); err != nil {
		return fmt.Errorf("billing: upsert subscription: %w", err)
	}
	s.logger.Info().
		Str("user_id", userID).
		Str("tier", string(mirror.Tier)).
		Str("status", mirror.Status).
		Msg("subscription synced")
	return nil
}

func (s *Service) tierForSubscription(sub *stripe.Subscription) domain.Tier {
	if sub.Items == nil {
		return domain.TierFree
	}
	for _, item := range sub.Items.Data {
		if item == nil || item.Price == nil {
			continue
		}
		if tier, ok := s.priceTiers[item.Price.ID]; ok {
			return tier
		}
	}
	return domain.TierFree
}
