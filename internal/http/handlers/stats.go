package handlers

import (
	"net/http"

	"toptours-server/internal/infra"
	"toptours-server/internal/sqlinline"
)

func (a *App) StatsSummary(w http.ResponseWriter, r *http.Request) {
	row := a.SQL.QueryRow(r.Context(), sqlinline.QPromoStatsSummary)
	var totalAccounts, totalSpendEvents, totalPointsSpent, promotedItems, spends24, points24 int64
	if err := row.Scan(&totalAccounts, &totalSpendEvents, &totalPointsSpent, &promotedItems, &spends24, &points24); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"total_accounts":     totalAccounts,
		"total_spend_events": totalSpendEvents,
		"total_points_spent": totalPointsSpent,
		"promoted_items":     promotedItems,
		"spends_last_24h":    spends24,
		"points_last_24h":    points24,
	})
}

// StatsDaily returns the most recent daily rollup row.
func (a *App) StatsDaily(w http.ResponseWriter, r *http.Request) {
	summary, err := a.Analytics.GetSummary(r.Context())
	if err != nil {
		if infra.IsNoRows(err) {
			a.error(w, http.StatusNotFound, "not_found", "no rollup yet")
			return
		}
		a.Logger.Error().Err(err).Msg("daily stats read failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"day":               summary.Day.Format("2006-01-02"),
		"spend_attempts":    summary.SpendAttempts,
		"spend_accepted":    summary.SpendAccepted,
		"spend_rejected":    summary.SpendRejected,
		"points_spent":      summary.PointsSpent,
		"accounts_created":  summary.AccountsCreated,
		"leaderboard_reads": summary.LeaderboardReads,
	})
}
