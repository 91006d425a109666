package promo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"toptours-server/internal/domain"
)

// TierSource reports the subscription tier for a user. Implemented by
// the billing service; ErrNotFound means the user never subscribed and
// is treated as the free tier.
type TierSource interface {
	TierForUser(ctx context.Context, userID string) (domain.Tier, error)
}

// ItemResolver validates that a spend target exists in the catalog.
type ItemResolver interface {
	Resolve(ctx context.Context, itemID string, itemType domain.ItemType) error
}

// SpendInput carries one promotion spend request.
type SpendInput struct {
	ItemID        string
	ItemType      domain.ItemType
	Points        int
	ScoreCategory string
}

// SpendResult reports a successful spend.
type SpendResult struct {
	PointsAvailableToday int
	Event                *domain.SpendEvent
}

// LeaderboardPage is one page of ranked items plus the total item count.
type LeaderboardPage struct {
	Entries []domain.LeaderboardEntry
	Total   int64
}

const (
	defaultLeaderboardLimit = 20
	maxLeaderboardLimit     = 100
)

// Service implements the promotion points ledger: account lifecycle,
// daily allowance reset, spend validation and the derived leaderboard
// views. All authoritative state lives in the store; the service holds
// no balances in memory.
type Service struct {
	accounts  domain.AccountRepository
	ledger    domain.LedgerRepository
	boards    domain.LeaderboardRepository
	tiers     TierSource
	catalog   ItemResolver
	resetter  *Resetter
	analytics domain.AnalyticsRepository
	logger    zerolog.Logger
}

func NewService(
	accounts domain.AccountRepository,
	ledger domain.LedgerRepository,
	boards domain.LeaderboardRepository,
	tiers TierSource,
	catalog ItemResolver,
	resetter *Resetter,
	analytics domain.AnalyticsRepository,
	logger zerolog.Logger,
) *Service {
	return &Service{
		accounts:  accounts,
		ledger:    ledger,
		boards:    boards,
		tiers:     tiers,
		catalog:   catalog,
		resetter:  resetter,
		analytics: analytics,
		logger:    logger,
	}
}

// Spend validates and records one promotion spend. On success the
// decrement and the ledger append have been committed together; on any
// failure nothing was written.
func (s *Service) Spend(ctx context.Context, userID string, in SpendInput) (*SpendResult, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	if in.Points <= 0 {
		return nil, domain.ErrInvalidPoints
	}
	if !domain.ValidItemType(in.ItemType) {
		return nil, domain.ErrInvalidItemType
	}
	if in.ScoreCategory == "" {
		in.ScoreCategory = domain.ScoreCategoryAll
	}

	if err := s.catalog.Resolve(ctx, in.ItemID, in.ItemType); err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			s.logger.Warn().
				Str("user_id", userID).
				Str("item_id", in.ItemID).
				Msg("spend target missing from catalog")
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("resolve item: %w", err)
	}

	account, err := s.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.resetter.NeedsReset(account) {
		tier := s.currentTier(ctx, account)
		if err := s.resetter.Reset(ctx, account, tier, domain.AllowanceForTier(tier)); err != nil {
			return nil, err
		}
	} else if s.resetter.ApplyTierChangeImmediately {
		tier := s.currentTier(ctx, account)
		if err := s.resetter.SyncTier(ctx, account, tier, domain.AllowanceForTier(tier)); err != nil {
			return nil, err
		}
	}

	if account.PointsAvailableToday < in.Points {
		return nil, domain.ErrInsufficientBalance
	}

	event := &domain.SpendEvent{
		UserID:        userID,
		ItemID:        in.ItemID,
		ItemType:      in.ItemType,
		ScoreCategory: in.ScoreCategory,
		Points:        in.Points,
	}
	remaining, err := s.ledger.RecordSpend(ctx, event)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			// Lost a race against a concurrent spend; the conditional
			// decrement rejected us and nothing was written.
			return nil, domain.ErrInsufficientBalance
		}
		return nil, fmt.Errorf("record spend: %w", err)
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("item_id", in.ItemID).
		Str("item_type", string(in.ItemType)).
		Int("points", in.Points).
		Int("remaining", remaining).
		Msg("promotion spend recorded")

	return &SpendResult{PointsAvailableToday: remaining, Event: event}, nil
}

// GetOrCreateAccount returns the user's account, lazily creating it with
// the allowance of the user's current tier on first promotion action.
func (s *Service) GetOrCreateAccount(ctx context.Context, userID string) (*domain.PromotionAccount, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	account, err := s.accounts.Get(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load account: %w", err)
	}

	tier, err := s.tiers.TierForUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("lookup tier: %w", err)
		}
		tier = domain.TierFree
	}
	allowance := domain.AllowanceForTier(tier)
	fresh := &domain.PromotionAccount{
		UserID:               userID,
		Tier:                 tier,
		DailyAllowance:       allowance,
		PointsAvailableToday: allowance,
		LastResetDate:        domain.CivilDate(s.resetter.Clock.Now()),
	}
	if err := s.accounts.Create(ctx, fresh); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	s.countAccountCreated(ctx)
	// Re-read in case a concurrent request created the row first.
	account, err = s.accounts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load account after create: %w", err)
	}
	return account, nil
}

// Account returns the stored account for a user, or ErrNotFound when the
// user never performed a promotion action.
func (s *Service) Account(ctx context.Context, userID string) (*domain.PromotionAccount, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.accounts.Get(ctx, userID)
}

// Score sums spend events for an item, optionally restricted to one
// score category. Recomputed from the ledger on every call.
func (s *Service) Score(ctx context.Context, itemID, category string) (int64, error) {
	if category == domain.ScoreCategoryAll {
		category = ""
	}
	return s.ledger.ItemScore(ctx, itemID, category)
}

// Leaderboard returns one page of the ranked board described by q, with
// limit and offset normalized to sane bounds.
func (s *Service) Leaderboard(ctx context.Context, q domain.LeaderboardQuery) (*LeaderboardPage, error) {
	if q.Limit <= 0 {
		q.Limit = defaultLeaderboardLimit
	}
	if q.Limit > maxLeaderboardLimit {
		q.Limit = maxLeaderboardLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	entries, total, err := s.boards.Rank(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("rank leaderboard: %w", err)
	}
	return &LeaderboardPage{Entries: entries, Total: total}, nil
}

// Trending returns the leaderboard restricted to a trailing window of
// days, ending now.
func (s *Service) Trending(ctx context.Context, q domain.LeaderboardQuery, days int) (*LeaderboardPage, error) {
	if days <= 0 {
		days = 7
	}
	q.Since = s.resetter.Clock.Now().Add(-time.Duration(days) * 24 * time.Hour)
	return s.Leaderboard(ctx, q)
}

// NextResetAt reports when the account's allowance next refills.
func (s *Service) NextResetAt() time.Time {
	return domain.CivilDate(s.resetter.Clock.Now()).AddDate(0, 0, 1)
}

// countAccountCreated bumps the daily creation counter. Best-effort, a
// failed write never fails the request.
func (s *Service) countAccountCreated(ctx context.Context) {
	if s.analytics == nil {
		return
	}
	day := domain.CivilDate(s.resetter.Clock.Now()).Format("2006-01-02")
	if err := s.analytics.IncrementCounters(ctx, day, map[string]int{"accounts_created": 1}); err != nil {
		s.logger.Warn().Err(err).Msg("account creation counter failed")
	}
}

func (s *Service) currentTier(ctx context.Context, account *domain.PromotionAccount) domain.Tier {
	tier, err := s.tiers.TierForUser(ctx, account.UserID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn().Err(err).Str("user_id", account.UserID).Msg("tier lookup failed, keeping stored tier")
			return account.Tier
		}
		return domain.TierFree
	}
	if !domain.ValidTier(tier) {
		return account.Tier
	}
	return tier
}
