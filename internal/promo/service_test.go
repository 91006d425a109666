package promo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"toptours-server/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[string]*domain.PromotionAccount
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{accounts: map[string]*domain.PromotionAccount{}}
}

func (f *fakeAccounts) Get(_ context.Context, userID string) (*domain.PromotionAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) Create(_ context.Context, account *domain.PromotionAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[account.UserID]; ok {
		return nil
	}
	cp := *account
	f.accounts[account.UserID] = &cp
	return nil
}

func (f *fakeAccounts) ResetAllowance(_ context.Context, userID string, tier domain.Tier, allowance int, day time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[userID]
	if !ok {
		return domain.ErrNotFound
	}
	if !day.After(a.LastResetDate) {
		return nil
	}
	a.Tier = tier
	a.DailyAllowance = allowance
	a.PointsAvailableToday = allowance
	a.LastResetDate = day
	return nil
}

func (f *fakeAccounts) AdjustAllowance(_ context.Context, userID string, allowance, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[userID]
	if !ok {
		return domain.ErrNotFound
	}
	a.DailyAllowance = allowance
	next := a.PointsAvailableToday + delta
	if next < 0 {
		next = 0
	}
	if next > allowance {
		next = allowance
	}
	a.PointsAvailableToday = next
	return nil
}

// decrementIf mirrors the conditional UPDATE the ledger repository runs
// inside its transaction.
func (f *fakeAccounts) decrementIf(userID string, points int) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[userID]
	if !ok || a.PointsAvailableToday < points {
		return 0, false
	}
	a.PointsAvailableToday -= points
	a.LifetimeSpent += int64(points)
	return a.PointsAvailableToday, true
}

type fakeLedger struct {
	mu       sync.Mutex
	accounts *fakeAccounts
	clock    *fakeClock
	events   []domain.SpendEvent
	seq      int
	failWith error
}

func (f *fakeLedger) RecordSpend(_ context.Context, event *domain.SpendEvent) (int, error) {
	f.mu.Lock()
	fail := f.failWith
	f.mu.Unlock()
	if fail != nil {
		return 0, fail
	}
	remaining, ok := f.accounts.decrementIf(event.UserID, event.Points)
	if !ok {
		return 0, domain.ErrInsufficientBalance
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	event.ID = fmt.Sprintf("evt-%d", f.seq)
	event.CreatedAt = f.clock.Now()
	f.events = append(f.events, *event)
	return remaining, nil
}

func (f *fakeLedger) SumPointsSince(_ context.Context, userID string, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, e := range f.events {
		if e.UserID == userID && !e.CreatedAt.Before(since) {
			sum += int64(e.Points)
		}
	}
	return sum, nil
}

func (f *fakeLedger) ItemScore(_ context.Context, itemID, category string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, e := range f.events {
		if e.ItemID != itemID {
			continue
		}
		if category != "" && e.ScoreCategory != category {
			continue
		}
		sum += int64(e.Points)
	}
	return sum, nil
}

func (f *fakeLedger) eventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fakeBoards struct {
	ledger *fakeLedger
}

func (f *fakeBoards) Rank(_ context.Context, q domain.LeaderboardQuery) ([]domain.LeaderboardEntry, int64, error) {
	f.ledger.mu.Lock()
	defer f.ledger.mu.Unlock()
	byItem := map[string]*domain.LeaderboardEntry{}
	for _, e := range f.ledger.events {
		if q.ItemType != "" && e.ItemType != q.ItemType {
			continue
		}
		if !q.Since.IsZero() && e.CreatedAt.Before(q.Since) {
			continue
		}
		entry, ok := byItem[e.ItemID]
		if !ok {
			entry = &domain.LeaderboardEntry{ItemID: e.ItemID, ItemType: e.ItemType}
			byItem[e.ItemID] = entry
		}
		entry.TotalPoints += int64(e.Points)
		if e.CreatedAt.After(entry.LastEventAt) {
			entry.LastEventAt = e.CreatedAt
		}
	}
	entries := make([]domain.LeaderboardEntry, 0, len(byItem))
	for _, e := range byItem {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return domain.EntryLess(entries[i], entries[j])
	})
	total := int64(len(entries))
	if q.Offset >= len(entries) {
		return nil, total, nil
	}
	entries = entries[q.Offset:]
	if q.Limit > 0 && len(entries) > q.Limit {
		entries = entries[:q.Limit]
	}
	for i := range entries {
		entries[i].Rank = q.Offset + i + 1
	}
	return entries, total, nil
}

type fakeTiers struct {
	mu    sync.Mutex
	tiers map[string]domain.Tier
	err   error
}

func (f *fakeTiers) TierForUser(_ context.Context, userID string) (domain.Tier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	tier, ok := f.tiers[userID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return tier, nil
}

func (f *fakeTiers) set(userID string, tier domain.Tier) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tiers[userID] = tier
}

type fakeAnalytics struct {
	mu       sync.Mutex
	counters map[string]int
}

func newFakeAnalytics() *fakeAnalytics {
	return &fakeAnalytics{counters: map[string]int{}}
}

func (f *fakeAnalytics) IncrementCounters(_ context.Context, _ string, counters map[string]int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, v := range counters {
		f.counters[k] += v
	}
	return nil
}

func (f *fakeAnalytics) GetSummary(context.Context) (*domain.PromoAnalyticsDaily, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeAnalytics) counter(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counters[name]
}

type fakeCatalog struct {
	missing map[string]bool
}

func (f *fakeCatalog) Resolve(_ context.Context, itemID string, _ domain.ItemType) error {
	if f.missing[itemID] {
		return domain.ErrItemNotFound
	}
	return nil
}

type harness struct {
	clock     *fakeClock
	accounts  *fakeAccounts
	ledger    *fakeLedger
	tiers     *fakeTiers
	catalog   *fakeCatalog
	analytics *fakeAnalytics
	service   *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	accounts := newFakeAccounts()
	ledger := &fakeLedger{accounts: accounts, clock: clock}
	tiers := &fakeTiers{tiers: map[string]domain.Tier{}}
	catalog := &fakeCatalog{missing: map[string]bool{}}
	analytics := newFakeAnalytics()
	resetter := &Resetter{Clock: clock, Accounts: accounts}
	svc := NewService(accounts, ledger, &fakeBoards{ledger: ledger}, tiers, catalog, resetter, analytics, zerolog.Nop())
	return &harness{clock: clock, accounts: accounts, ledger: ledger, tiers: tiers, catalog: catalog, analytics: analytics, service: svc}
}

func TestSpendLazyAccountCreation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.service.Spend(ctx, "u1", SpendInput{ItemID: "tour-1", ItemType: domain.ItemTypeTour, Points: 10})
	if err != nil {
		t.Fatalf("spend: %v", err)
	}
	if res.PointsAvailableToday != 40 {
		t.Fatalf("remaining = %d, want 40", res.PointsAvailableToday)
	}
	account, err := h.service.Account(ctx, "u1")
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if account.Tier != domain.TierFree || account.DailyAllowance != 50 {
		t.Fatalf("account = %+v, want free tier with allowance 50", account)
	}
}

func TestAccountCreationIsCounted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.service.GetOrCreateAccount(ctx, "u1"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if got := h.analytics.counter("accounts_created"); got != 1 {
		t.Fatalf("accounts_created = %d, want 1", got)
	}

	// Existing accounts are loaded, not re-created.
	if _, err := h.service.GetOrCreateAccount(ctx, "u1"); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if got := h.analytics.counter("accounts_created"); got != 1 {
		t.Fatalf("accounts_created = %d after reload, want 1", got)
	}
}

func TestSpendInsufficientBalance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.service.Spend(ctx, "u1", SpendInput{ItemID: "tour-1", ItemType: domain.ItemTypeTour, Points: 30}); err != nil {
		t.Fatalf("first spend: %v", err)
	}
	_, err := h.service.Spend(ctx, "u1", SpendInput{ItemID: "tour-1", ItemType: domain.ItemTypeTour, Points: 30})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("second spend err = %v, want ErrInsufficientBalance", err)
	}
	account, _ := h.service.Account(ctx, "u1")
	if account.PointsAvailableToday != 20 {
		t.Fatalf("balance = %d, want 20", account.PointsAvailableToday)
	}
	if got := h.ledger.eventCount(); got != 1 {
		t.Fatalf("ledger has %d events, want 1", got)
	}
}

func TestSpendValidation(t *testing.T) {
	h := newHarness(t)
	h.catalog.missing["ghost"] = true
	ctx := context.Background()

	tests := []struct {
		name   string
		userID string
		in     SpendInput
		want   error
	}{
		{"unauthenticated", "", SpendInput{ItemID: "tour-1", ItemType: domain.ItemTypeTour, Points: 5}, domain.ErrUnauthorized},
		{"zero points", "u1", SpendInput{ItemID: "tour-1", ItemType: domain.ItemTypeTour, Points: 0}, domain.ErrInvalidPoints},
		{"negative points", "u1", SpendInput{ItemID: "tour-1", ItemType: domain.ItemTypeTour, Points: -3}, domain.ErrInvalidPoints},
		{"bad item type", "u1", SpendInput{ItemID: "tour-1", ItemType: "hotel", Points: 5}, domain.ErrInvalidItemType},
		{"unknown item", "u1", SpendInput{ItemID: "ghost", ItemType: domain.ItemTypeTour, Points: 5}, domain.ErrItemNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.service.Spend(ctx, tt.userID, tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if got := h.ledger.eventCount(); got != 0 {
		t.Fatalf("ledger has %d events, want 0", got)
	}
}

func TestSpendDefaultsScoreCategory(t *testing.T) {
	h := newHarness(t)
	res, err := h.service.Spend(context.Background(), "u1", SpendInput{ItemID: "tour-1", ItemType: domain.ItemTypeTour, Points: 5})
	if err != nil {
		t.Fatalf("spend: %v", err)
	}
	if res.Event.ScoreCategory != domain.ScoreCategoryAll {
		t.Fatalf("score category = %q, want %q", res.Event.ScoreCategory, domain.ScoreCategoryAll)
	}
}

func TestSpendAtomicOnLedgerFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.service.Spend(ctx, "u1", SpendInput{ItemID: "tour-1", ItemType: domain.ItemTypeTour, Points: 10}); err != nil {
		t.Fatalf("seed spend: %v", err)
	}

	h.ledger.failWith = errors.New("db down")
	_, err := h.service.Spend(ctx, "u1", SpendInput{ItemID: "tour-1", ItemType: domain.ItemTypeTour, Points: 10})
	if err == nil {
		t.Fatal("expected error from failing ledger")
	}
	account, _ := h.service.Account(ctx, "u1")
	if account.PointsAvailableToday != 40 {
		t.Fatalf("balance = %d, want 40 (unchanged)", account.PointsAvailableToday)
	}
	if got := h.ledger.eventCount(); got != 1 {
		t.Fatalf("ledger has %d events, want 1", got)
	}
}

func TestSpendResetsAllowanceOnNewDay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.service.Spend(ctx, "u1", SpendInput{ItemID: "tour-1", ItemType: domain.ItemTypeTour, Points: 45}); err != nil {
		t.Fatalf("day one spend: %v", err)
	}
	// Balance is 5 now; the same spend must succeed after midnight.
	h.clock.advance(24 * time.Hour)
	res, err := h.service.Spend(ctx, "u1", SpendInput{ItemID: "tour-1", ItemType: domain.ItemTypeTour, Points: 45})
	if err != nil {
		t.Fatalf("day two spend: %v", err)
	}
	if res.PointsAvailableToday != 5 {
		t.Fatalf("remaining = %d, want 5", res.PointsAvailableToday)
	}
}

func TestSpendSameDayResetIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.service.Spend(ctx, "u1", SpendInput{ItemID: "tour-1", ItemType: domain.ItemTypeTour, Points: 30}); err != nil {
		t.Fatalf("first spend: %v", err)
	}
	h.clock.advance(6 * time.Hour)
	res, err := h.service.Spend(ctx, "u1", SpendInput{ItemID: "tour-1", ItemType: domain.ItemTypeTour, Points: 10})
	if err != nil {
		t.Fatalf("second spend: %v", err)
	}
	if res.PointsAvailableToday != 10 {
		t.Fatalf("remaining = %d, want 10 (no intra-day refill)", res.PointsAvailableToday)
	}
}

func TestTierUpgradeAppliesAtNextReset(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.service.Spend(ctx, "u1", SpendInput{ItemID: "tour-1", ItemType: domain.ItemTypeTour, Points: 40}); err != nil {
		t.Fatalf("free tier spend: %v", err)
	}
	h.tiers.set("u1", domain.TierPro)

	// Still the same day: the upgrade does not refill anything.
	if _, err := h.service.Spend(ctx, "u1", SpendInput{ItemID: "tour-1", ItemType: domain.ItemTypeTour, Points: 60}); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("same day spend err = %v, want ErrInsufficientBalance", err)
	}

	h.clock.advance(24 * time.Hour)
	res, err := h.service.Spend(ctx, "u1", SpendInput{ItemID: "tour-1", ItemType: domain.ItemTypeTour, Points: 150})
	if err != nil {
		t.Fatalf("next day spend: %v", err)
	}
	if res.PointsAvailableToday != 50 {
		t.Fatalf("remaining = %d, want 50 (200 allowance minus 150)", res.PointsAvailableToday)
	}
	account, _ := h.service.Account(ctx, "u1")
	if account.Tier != domain.TierPro {
		t.Fatalf("tier = %q, want pro", account.Tier)
	}
}

func TestTierUpgradeImmediateMode(t *testing.T) {
	h := newHarness(t)
	h.service.resetter.ApplyTierChangeImmediately = true
	ctx := context.Background()

	if _, err := h.service.Spend(ctx, "u1", SpendInput{ItemID: "tour-1", ItemType: domain.ItemTypeTour, Points: 40}); err != nil {
		t.Fatalf("free tier spend: %v", err)
	}
	h.tiers.set("u1", domain.TierPro)

	// The upgrade credits the allowance difference right away: 10 left
	// plus 150 new headroom.
	res, err := h.service.Spend(ctx, "u1", SpendInput{ItemID: "tour-1", ItemType: domain.ItemTypeTour, Points: 100})
	if err != nil {
		t.Fatalf("post upgrade spend: %v", err)
	}
	if res.PointsAvailableToday != 60 {
		t.Fatalf("remaining = %d, want 60", res.PointsAvailableToday)
	}
}

func TestConcurrentSpendsNeverOverdraw(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Warm the account so every goroutine races only on the balance.
	if _, err := h.service.GetOrCreateAccount(ctx, "u1"); err != nil {
		t.Fatalf("create account: %v", err)
	}

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.service.Spend(ctx, "u1", SpendInput{ItemID: "tour-1", ItemType: domain.ItemTypeTour, Points: 7})
		}()
	}
	wg.Wait()

	spent, err := h.ledger.SumPointsSince(ctx, "u1", time.Time{})
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if spent > 50 {
		t.Fatalf("ledger total %d exceeds the daily allowance", spent)
	}
	account, _ := h.service.Account(ctx, "u1")
	if int64(account.PointsAvailableToday)+spent != 50 {
		t.Fatalf("balance %d + spent %d != 50", account.PointsAvailableToday, spent)
	}
}

func TestScoreAggregation(t *testing.T) {
	h := newHarness(t)
	h.tiers.set("u1", domain.TierPro)
	ctx := context.Background()

	spends := []SpendInput{
		{ItemID: "tour-1", ItemType: domain.ItemTypeTour, Points: 10},
		{ItemID: "tour-1", ItemType: domain.ItemTypeTour, Points: 20, ScoreCategory: "family"},
		{ItemID: "tour-1", ItemType: domain.ItemTypeTour, Points: 5},
		{ItemID: "tour-2", ItemType: domain.ItemTypeTour, Points: 99},
	}
	for _, in := range spends {
		if _, err := h.service.Spend(ctx, "u1", in); err != nil {
			t.Fatalf("spend %+v: %v", in, err)
		}
	}

	total, err := h.service.Score(ctx, "tour-1", domain.ScoreCategoryAll)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if total != 35 {
		t.Fatalf("total score = %d, want 35", total)
	}
	family, err := h.service.Score(ctx, "tour-1", "family")
	if err != nil {
		t.Fatalf("score family: %v", err)
	}
	if family != 20 {
		t.Fatalf("family score = %d, want 20", family)
	}
}

func TestLeaderboardOrderingIsDeterministic(t *testing.T) {
	h := newHarness(t)
	h.tiers.set("u1", domain.TierEnterprise)
	ctx := context.Background()

	// Two items end with equal totals; the one that reached the total
	// earlier ranks first.
	mustSpend := func(itemID string, points int) {
		t.Helper()
		if _, err := h.service.Spend(ctx, "u1", SpendInput{ItemID: itemID, ItemType: domain.ItemTypeTour, Points: points}); err != nil {
			t.Fatalf("spend %s: %v", itemID, err)
		}
	}
	mustSpend("tour-b", 30)
	h.clock.advance(time.Minute)
	mustSpend("tour-a", 30)
	h.clock.advance(time.Minute)
	mustSpend("tour-c", 40)

	var first []string
	for i := 0; i < 5; i++ {
		page, err := h.service.Leaderboard(ctx, domain.LeaderboardQuery{})
		if err != nil {
			t.Fatalf("leaderboard: %v", err)
		}
		ids := make([]string, len(page.Entries))
		for j, e := range page.Entries {
			ids[j] = e.ItemID
		}
		if first == nil {
			first = ids
			continue
		}
		for j := range ids {
			if ids[j] != first[j] {
				t.Fatalf("ordering changed between calls: %v vs %v", first, ids)
			}
		}
	}
	want := []string{"tour-c", "tour-b", "tour-a"}
	for i, id := range want {
		if first[i] != id {
			t.Fatalf("order = %v, want %v", first, want)
		}
	}
	page, _ := h.service.Leaderboard(ctx, domain.LeaderboardQuery{})
	if page.Entries[0].Rank != 1 || page.Entries[2].Rank != 3 {
		t.Fatalf("ranks = %d..%d, want 1..3", page.Entries[0].Rank, page.Entries[2].Rank)
	}
}

func TestTrendingWindowExcludesOldEvents(t *testing.T) {
	h := newHarness(t)
	h.tiers.set("u1", domain.TierEnterprise)
	ctx := context.Background()

	if _, err := h.service.Spend(ctx, "u1", SpendInput{ItemID: "tour-old", ItemType: domain.ItemTypeTour, Points: 500}); err != nil {
		t.Fatalf("old spend: %v", err)
	}
	h.clock.advance(10 * 24 * time.Hour)
	if _, err := h.service.Spend(ctx, "u1", SpendInput{ItemID: "tour-new", ItemType: domain.ItemTypeTour, Points: 5}); err != nil {
		t.Fatalf("new spend: %v", err)
	}

	page, err := h.service.Trending(ctx, domain.LeaderboardQuery{}, 7)
	if err != nil {
		t.Fatalf("trending: %v", err)
	}
	if len(page.Entries) != 1 || page.Entries[0].ItemID != "tour-new" {
		t.Fatalf("trending entries = %+v, want only tour-new", page.Entries)
	}

	all, err := h.service.Leaderboard(ctx, domain.LeaderboardQuery{})
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(all.Entries) != 2 || all.Entries[0].ItemID != "tour-old" {
		t.Fatalf("all time entries = %+v, want tour-old first", all.Entries)
	}
}

func TestLeaderboardLimitNormalization(t *testing.T) {
	h := newHarness(t)
	h.tiers.set("u1", domain.TierEnterprise)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		in := SpendInput{ItemID: fmt.Sprintf("tour-%02d", i), ItemType: domain.ItemTypeTour, Points: i + 1}
		if _, err := h.service.Spend(ctx, "u1", in); err != nil {
			t.Fatalf("spend: %v", err)
		}
	}
	page, err := h.service.Leaderboard(ctx, domain.LeaderboardQuery{})
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(page.Entries) != 20 {
		t.Fatalf("default page size = %d, want 20", len(page.Entries))
	}
	if page.Total != 25 {
		t.Fatalf("total = %d, want 25", page.Total)
	}
	page, err = h.service.Leaderboard(ctx, domain.LeaderboardQuery{Limit: 1000})
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(page.Entries) != 25 {
		t.Fatalf("capped page size = %d, want 25", len(page.Entries))
	}
}
