package promo

import (
	"context"
	"testing"
	"time"

	"toptours-server/internal/domain"
)

func TestNeedsReset(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 10, 1, 0, 0, 0, time.UTC)}
	r := &Resetter{Clock: clock, Accounts: newFakeAccounts()}

	tests := []struct {
		name      string
		lastReset time.Time
		want      bool
	}{
		{"same day", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), false},
		{"previous day", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), true},
		{"previous month", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), true},
		{"previous year", time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), true},
		{"future date", time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := &domain.PromotionAccount{UserID: "u1", LastResetDate: tt.lastReset}
			if got := r.NeedsReset(account); got != tt.want {
				t.Fatalf("NeedsReset = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResetRefillsAndStampsToday(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	accounts := newFakeAccounts()
	r := &Resetter{Clock: clock, Accounts: accounts}

	account := &domain.PromotionAccount{
		UserID:               "u1",
		Tier:                 domain.TierFree,
		DailyAllowance:       50,
		PointsAvailableToday: 3,
		LastResetDate:        time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
	}
	if err := accounts.Create(context.Background(), account); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := r.Reset(context.Background(), account, domain.TierPro, 200); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if account.PointsAvailableToday != 200 || account.DailyAllowance != 200 || account.Tier != domain.TierPro {
		t.Fatalf("account = %+v, want pro/200 refilled", account)
	}
	if !account.LastResetDate.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("last reset = %v, want today", account.LastResetDate)
	}

	stored, err := accounts.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.PointsAvailableToday != 200 {
		t.Fatalf("stored balance = %d, want 200", stored.PointsAvailableToday)
	}
}

func TestSyncTierDowngradeClampsBalance(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	accounts := newFakeAccounts()
	r := &Resetter{Clock: clock, Accounts: accounts, ApplyTierChangeImmediately: true}

	account := &domain.PromotionAccount{
		UserID:               "u1",
		Tier:                 domain.TierPro,
		DailyAllowance:       200,
		PointsAvailableToday: 180,
		LastResetDate:        time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	if err := accounts.Create(context.Background(), account); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := r.SyncTier(context.Background(), account, domain.TierFree, 50); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if account.DailyAllowance != 50 {
		t.Fatalf("allowance = %d, want 50", account.DailyAllowance)
	}
	if account.PointsAvailableToday != 30 {
		t.Fatalf("balance = %d, want 30 (180 minus the 150 ceiling drop)", account.PointsAvailableToday)
	}
}

func TestSyncTierNoopWhenDisabled(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	r := &Resetter{Clock: clock, Accounts: newFakeAccounts()}

	account := &domain.PromotionAccount{UserID: "u1", Tier: domain.TierFree, DailyAllowance: 50, PointsAvailableToday: 50}
	if err := r.SyncTier(context.Background(), account, domain.TierPro, 200); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if account.DailyAllowance != 50 || account.Tier != domain.TierFree {
		t.Fatalf("account changed while immediate mode is off: %+v", account)
	}
}
