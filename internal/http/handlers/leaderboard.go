package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"toptours-server/internal/domain"
	"toptours-server/internal/promo"
)

type leaderboardEntryDTO struct {
	Rank        int       `json:"rank"`
	ItemID      string    `json:"item_id"`
	ItemType    string    `json:"item_type"`
	TotalPoints int64     `json:"total_points"`
	LastEventAt time.Time `json:"last_event_at"`
}

type leaderboardResponse struct {
	Entries []leaderboardEntryDTO `json:"entries"`
	Total   int64                 `json:"total"`
}

// Leaderboard serves the all-time board, or a windowed one when the
// window query parameter (days) is present.
func (a *App) Leaderboard(w http.ResponseWriter, r *http.Request) {
	q, windowDays, ok := a.parseLeaderboardQuery(w, r)
	if !ok {
		return
	}

	var (
		page *promo.LeaderboardPage
		err  error
	)
	if windowDays > 0 {
		page, err = a.Promo.Trending(r.Context(), q, windowDays)
	} else {
		page, err = a.Promo.Leaderboard(r.Context(), q)
	}
	a.writeLeaderboard(w, r, page, err)
}

// Trending serves the "Trending Now" board: the same ranking over a
// trailing window, defaulting to the configured number of days.
func (a *App) Trending(w http.ResponseWriter, r *http.Request) {
	q, windowDays, ok := a.parseLeaderboardQuery(w, r)
	if !ok {
		return
	}
	if windowDays <= 0 {
		windowDays = a.TrendingDays
	}
	page, err := a.Promo.Trending(r.Context(), q, windowDays)
	a.writeLeaderboard(w, r, page, err)
}

// ItemScore returns the aggregated promotion score for one item.
func (a *App) ItemScore(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")
	category := r.URL.Query().Get("category")
	total, err := a.Promo.Score(r.Context(), itemID, category)
	if err != nil {
		a.Logger.Error().Err(err).Str("item_id", itemID).Msg("score read failed")
		a.error(w, http.StatusServiceUnavailable, "transient", "please try again")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"item_id":      itemID,
		"total_points": total,
	})
}

func (a *App) parseLeaderboardQuery(w http.ResponseWriter, r *http.Request) (domain.LeaderboardQuery, int, bool) {
	var q domain.LeaderboardQuery

	if raw := r.URL.Query().Get("item_type"); raw != "" {
		t := domain.ItemType(raw)
		if !domain.ValidItemType(t) {
			a.error(w, http.StatusBadRequest, "bad_request", "item_type must be tour or restaurant")
			return q, 0, false
		}
		q.ItemType = t
	}
	q.Limit = queryInt(r, "limit", 0)
	q.Offset = queryInt(r, "offset", 0)

	windowDays := queryInt(r, "window", 0)
	if windowDays < 0 || windowDays > 90 {
		a.error(w, http.StatusBadRequest, "bad_request", "window must be between 1 and 90 days")
		return q, 0, false
	}
	return q, windowDays, true
}

func (a *App) writeLeaderboard(w http.ResponseWriter, r *http.Request, page *promo.LeaderboardPage, err error) {
	if err != nil {
		a.Logger.Error().Err(err).Msg("leaderboard read failed")
		a.error(w, http.StatusServiceUnavailable, "transient", "please try again")
		return
	}
	a.countLeaderboardRead(r)
	entries := make([]leaderboardEntryDTO, 0, len(page.Entries))
	for _, e := range page.Entries {
		entries = append(entries, leaderboardEntryDTO{
			Rank:        e.Rank,
			ItemID:      e.ItemID,
			ItemType:    string(e.ItemType),
			TotalPoints: e.TotalPoints,
			LastEventAt: e.LastEventAt,
		})
	}
	a.json(w, http.StatusOK, leaderboardResponse{Entries: entries, Total: page.Total})
}

// countLeaderboardRead bumps the daily read counter. Best-effort only,
// a failed write never fails the read.
func (a *App) countLeaderboardRead(r *http.Request) {
	if a.Analytics == nil {
		return
	}
	day := time.Now().UTC().Format("2006-01-02")
	if err := a.Analytics.IncrementCounters(r.Context(), day, map[string]int{"leaderboard_reads": 1}); err != nil {
		a.Logger.Warn().Err(err).Msg("leaderboard read counter failed")
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
