package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"toptours-server/internal/domain"
	"toptours-server/internal/middleware"
	"toptours-server/internal/promo"
	"toptours-server/internal/sqlinline"
)

type spendRequest struct {
	ItemID        string `json:"item_id"`
	ItemType      string `json:"item_type"`
	Points        int    `json:"points"`
	ScoreCategory string `json:"score_category"`
}

type spendEventDTO struct {
	ID            string    `json:"id"`
	ItemID        string    `json:"item_id"`
	ItemType      string    `json:"item_type"`
	ScoreCategory string    `json:"score_category"`
	Points        int       `json:"points"`
	CreatedAt     time.Time `json:"created_at"`
}

type spendResponse struct {
	PointsAvailableToday int           `json:"points_available_today"`
	NextResetAt          time.Time     `json:"next_reset_at"`
	SpendEvent           spendEventDTO `json:"spend_event"`
}

type accountDTO struct {
	UserID               string    `json:"user_id"`
	Tier                 string    `json:"tier"`
	DailyAllowance       int       `json:"daily_allowance"`
	PointsAvailableToday int       `json:"points_available_today"`
	LastResetDate        string    `json:"last_reset_date"`
	LifetimeSpent        int64     `json:"lifetime_spent"`
	NextResetAt          time.Time `json:"next_reset_at"`
}

// PromotionsSpend allocates points from the caller's daily balance to a
// tour or restaurant. Every attempt, accepted or not, leaves an audit row.
func (a *App) PromotionsSpend(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	var req spendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	in := promo.SpendInput{
		ItemID:        req.ItemID,
		ItemType:      domain.ItemType(req.ItemType),
		Points:        req.Points,
		ScoreCategory: req.ScoreCategory,
	}
	result, err := a.Promo.Spend(r.Context(), userID, in)
	a.auditSpend(r, userID, req, outcomeFor(err))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidPoints):
			a.error(w, http.StatusBadRequest, "bad_request", "points must be a positive integer")
		case errors.Is(err, domain.ErrInvalidItemType):
			a.error(w, http.StatusBadRequest, "bad_request", "item_type must be tour or restaurant")
		case errors.Is(err, domain.ErrItemNotFound):
			a.error(w, http.StatusNotFound, "item_not_found", "the promoted item no longer exists")
		case errors.Is(err, domain.ErrInsufficientBalance):
			a.insufficientBalance(w, r, userID)
		case errors.Is(err, domain.ErrUnauthorized):
			a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		default:
			a.Logger.Error().Err(err).Str("user_id", userID).Str("item_id", req.ItemID).Int("points", req.Points).Msg("spend failed")
			a.error(w, http.StatusServiceUnavailable, "transient", "please try again")
		}
		return
	}

	a.json(w, http.StatusCreated, spendResponse{
		PointsAvailableToday: result.PointsAvailableToday,
		NextResetAt:          a.Promo.NextResetAt(),
		SpendEvent: spendEventDTO{
			ID:            result.Event.ID,
			ItemID:        result.Event.ItemID,
			ItemType:      string(result.Event.ItemType),
			ScoreCategory: result.Event.ScoreCategory,
			Points:        result.Event.Points,
			CreatedAt:     result.Event.CreatedAt,
		},
	})
}

// PromotionsAccount returns the caller's promotion account.
func (a *App) PromotionsAccount(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	account, err := a.Promo.Account(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "no promotion account yet")
			return
		}
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("account load failed")
		a.error(w, http.StatusServiceUnavailable, "transient", "please try again")
		return
	}
	a.json(w, http.StatusOK, toAccountDTO(account, a.Promo.NextResetAt()))
}

// Me mirrors PromotionsAccount but creates nothing and tolerates a
// missing account, so the frontend can render a profile either way.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	payload := map[string]any{"user_id": userID}
	account, err := a.Promo.Account(r.Context(), userID)
	if err == nil {
		payload["promotion_account"] = toAccountDTO(account, a.Promo.NextResetAt())
	} else if !errors.Is(err, domain.ErrNotFound) {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("account load failed")
		a.error(w, http.StatusServiceUnavailable, "transient", "please try again")
		return
	}
	a.json(w, http.StatusOK, payload)
}

func toAccountDTO(account *domain.PromotionAccount, nextReset time.Time) accountDTO {
	return accountDTO{
		UserID:               account.UserID,
		Tier:                 string(account.Tier),
		DailyAllowance:       account.DailyAllowance,
		PointsAvailableToday: account.PointsAvailableToday,
		LastResetDate:        account.LastResetDate.Format("2006-01-02"),
		LifetimeSpent:        account.LifetimeSpent,
		NextResetAt:          nextReset,
	}
}

// insufficientBalance extends the standard error envelope with the
// caller's remaining balance and the next refill time, so clients can
// render "you have N points left until T" without a second request.
func (a *App) insufficientBalance(w http.ResponseWriter, r *http.Request, userID string) {
	payload := map[string]any{
		"code":          "insufficient_balance",
		"message":       "not enough points available today",
		"next_reset_at": a.Promo.NextResetAt(),
	}
	if account, err := a.Promo.Account(r.Context(), userID); err == nil {
		payload["points_available_today"] = account.PointsAvailableToday
	}
	a.json(w, http.StatusConflict, map[string]any{"error": payload})
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, domain.ErrItemNotFound):
		return "item_not_found"
	case errors.Is(err, domain.ErrInvalidPoints), errors.Is(err, domain.ErrInvalidItemType):
		return "invalid"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	default:
		return "error"
	}
}

// auditSpend is best-effort: a failed audit write never fails the spend.
func (a *App) auditSpend(r *http.Request, userID string, req spendRequest, outcome string) {
	if a.SQL == nil {
		return
	}
	country := middleware.CountryFromContext(r.Context())
	category := req.ScoreCategory
	if category == "" {
		category = domain.ScoreCategoryAll
	}
	if _, err := a.SQL.Exec(r.Context(), sqlinline.QInsertAuditEvent,
		userID, req.ItemID, req.ItemType, req.Points, category, outcome, country,
	); err != nil {
		a.Logger.Warn().Err(err).Str("user_id", userID).Msg("audit write failed")
	}
}
