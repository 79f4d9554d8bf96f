package api

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/hlog"

	"reddot-watch/issuefeed/internal/models"
)

var exportHeader = []string{
	"id", "kind", "occurred_at", "actor_login", "repository_full_name",
	"activity_url", "parent_number", "parent_title", "lifecycle_action", "is_own",
}

// ExportCSV handles GET /api/feed.csv. It applies the same date filter and
// ordering as GetFeed and streams the result as a CSV attachment.
func (h *FeedHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	log.Debug().Msg("Export feed request received")

	var date *string
	if d := r.URL.Query().Get("date"); d != "" {
		date = &d
	}

	records, err := h.repo.Query(r.Context(), date)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query feed records for export")
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=feed.csv")

	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(exportHeader); err != nil {
		log.Error().Err(err).Msg("Failed to write CSV header")
		return
	}
	for _, rec := range records {
		if err := csvWriter.Write(exportRow(rec)); err != nil {
			log.Error().Err(err).Int64("record_id", rec.ID).Msg("Failed to write CSV record")
			return
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		log.Error().Err(err).Msg("Error flushing CSV data")
		return
	}
	log.Info().Int("record_count", len(records)).Msg("Exported feed records as CSV")
}

func exportRow(rec models.FeedRecord) []string {
	action := ""
	if rec.LifecycleAction != nil {
		action = string(*rec.LifecycleAction)
	}
	return []string{
		strconv.FormatInt(rec.ID, 10),
		string(rec.Kind),
		rec.OccurredAt,
		rec.ActorLogin,
		rec.RepositoryFullName,
		rec.ActivityURL,
		strconv.Itoa(rec.ParentNumber),
		nullableValue(rec.ParentTitle),
		action,
		strconv.FormatBool(rec.IsOwn),
	}
}

// nullableValue returns the pointed-to string or an empty string.
func nullableValue(s *string) string {
	if s != nil {
		return *s
	}
	return ""
}
