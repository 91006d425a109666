package handlers

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"toptours-server/internal/sqlinline"
	"toptours-server/pkg/zip"
)

// LedgerExport streams a zip containing a CSV of spend events since the
// optional `since` date (default: last 90 days). Admin only.
func (a *App) LedgerExport(w http.ResponseWriter, r *http.Request) {
	since := time.Now().AddDate(0, 0, -90)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "since must be YYYY-MM-DD")
			return
		}
		since = parsed
	}

	rows, err := a.SQL.Query(r.Context(), sqlinline.QExportSpendEvents, since)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load ledger")
		return
	}
	defer rows.Close()

	buf := &bytes.Buffer{}
	cw := csv.NewWriter(buf)
	_ = cw.Write([]string{"id", "user_id", "item_id", "item_type", "score_category", "points", "created_at"})
	for rows.Next() {
		var id, userID, itemID, itemType, category string
		var points int
		var createdAt time.Time
		if err := rows.Scan(&id, &userID, &itemID, &itemType, &category, &points, &createdAt); err != nil {
			a.error(w, http.StatusInternalServerError, "internal", "failed to read ledger")
			return
		}
		_ = cw.Write([]string{id, userID, itemID, itemType, category, strconv.Itoa(points), createdAt.UTC().Format(time.RFC3339)})
	}
	cw.Flush()
	if err := rows.Err(); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to read ledger")
		return
	}

	archive := zip.ArchiveAssets([]zip.Asset{{
		Filename: "spend_events.csv",
		MIME:     "text/csv",
		Data:     buf.Bytes(),
	}})
	if archive == nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="ledger_export.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
