package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"reddot-watch/issuefeed/internal/auth"
	"reddot-watch/issuefeed/internal/metrics"
	"reddot-watch/issuefeed/internal/server/storage"
)

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	TotalRecords int64 `json:"total_records"`
}

// FeedHandler serves stored feed records.
type FeedHandler struct {
	repo    storage.FeedRecordRepository
	metrics *metrics.Metrics
}

// NewFeedHandler creates a new handler instance.
func NewFeedHandler(repo storage.FeedRecordRepository, m *metrics.Metrics) *FeedHandler {
	return &FeedHandler{repo: repo, metrics: m}
}

// GetFeed handles GET /api/feed and its authenticated twin. The optional
// date parameter is passed to the store as-is; a malformed date matches nothing.
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	start := time.Now()

	if r.Method != http.MethodGet {
		log.Warn().Str("method", r.Method).Msg("Method not allowed")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var date *string
	if d := r.URL.Query().Get("date"); d != "" {
		date = &d
	}

	logEvent := log.Debug()
	if date != nil {
		logEvent = logEvent.Str("date", *date)
	}
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		logEvent = logEvent.Str("identity", identity)
	}
	logEvent.Msg("Processing feed request")

	records, err := h.repo.Query(r.Context(), date)
	if err != nil {
		log.Error().Err(err).Msg("Error fetching feed records from repository")
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	if h.metrics != nil {
		h.metrics.QueryDuration.WithLabelValues(r.URL.Path).Observe(time.Since(start).Seconds())
	}
	writeJSON(w, r, http.StatusOK, records)
}

// GetStats handles GET /api/stats.
func (h *FeedHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	count, err := h.repo.Count(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Error counting feed records")
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, r, http.StatusOK, StatsResponse{TotalRecords: count})
}
