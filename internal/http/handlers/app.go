package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	stripe "github.com/stripe/stripe-go/v76"

	"toptours-server/internal/domain"
	"toptours-server/internal/infra"
	"toptours-server/internal/middleware"
	"toptours-server/internal/promo"
)

// PromotionService is the slice of the promotion core the handlers use.
type PromotionService interface {
	Spend(ctx context.Context, userID string, in promo.SpendInput) (*promo.SpendResult, error)
	Account(ctx context.Context, userID string) (*domain.PromotionAccount, error)
	Score(ctx context.Context, itemID, category string) (int64, error)
	Leaderboard(ctx context.Context, q domain.LeaderboardQuery) (*promo.LeaderboardPage, error)
	Trending(ctx context.Context, q domain.LeaderboardQuery, days int) (*promo.LeaderboardPage, error)
	NextResetAt() time.Time
}

// BillingService verifies and applies Stripe webhook events.
type BillingService interface {
	VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error)
	HandleEvent(ctx context.Context, event stripe.Event) error
}

// App is the handler container wiring services, the inline-SQL executor
// and request-scoped helpers together.
type App struct {
	Promo        PromotionService
	Billing      BillingService
	SQL          infra.SQLExecutor
	Analytics    domain.AnalyticsRepository
	Logger       infra.Logger
	JWTSecret    string
	TrendingDays int
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{"code": errCode, "message": message},
	})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
