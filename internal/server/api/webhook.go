package api

import (
	"io"
	"net/http"

	"github.com/google/go-github/v66/github"
	"github.com/rs/zerolog/hlog"

	"reddot-watch/issuefeed/internal/metrics"
	"reddot-watch/issuefeed/internal/models"
	"reddot-watch/issuefeed/internal/server/storage"
	"reddot-watch/issuefeed/internal/webhook"
)

const defaultMaxBodyBytes = 25 << 20

// WebhookResponse acknowledges a delivery.
type WebhookResponse struct {
	Success bool `json:"success"`
	Ignored bool `json:"ignored,omitempty"`
}

// RecordNormalizer maps a delivery to at most one feed record.
type RecordNormalizer interface {
	Normalize(eventType string, payload []byte) (models.FeedRecord, bool, error)
}

// WebhookHandler verifies, normalizes and stores webhook deliveries.
type WebhookHandler struct {
	secret       string
	normalizer   RecordNormalizer
	repo         storage.FeedRecordRepository
	metrics      *metrics.Metrics
	maxBodyBytes int64
}

// NewWebhookHandler creates a handler. An empty secret disables signature checks.
func NewWebhookHandler(secret string, normalizer RecordNormalizer, repo storage.FeedRecordRepository, m *metrics.Metrics, maxBodyBytes int64) *WebhookHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &WebhookHandler{
		secret:       secret,
		normalizer:   normalizer,
		repo:         repo,
		metrics:      m,
		maxBodyBytes: maxBodyBytes,
	}
}

// HandleWebhook handles POST /webhook.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	if r.Method != http.MethodPost {
		log.Warn().Str("method", r.Method).Msg("Method not allowed")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	eventType := r.Header.Get(github.EventTypeHeader)
	deliveryID := r.Header.Get(github.DeliveryIDHeader)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("Failed to read request body")
		h.count(eventType, metrics.OutcomeError)
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer r.Body.Close()

	if h.secret == "" {
		log.Warn().Str("event", eventType).Msg("No webhook secret configured, accepting unsigned delivery")
		h.count(eventType, metrics.OutcomeInsecure)
	} else {
		signature := r.Header.Get(github.SHA256SignatureHeader)
		if signature == "" {
			log.Info().Str("event", eventType).Str("delivery", deliveryID).Msg("Missing webhook signature")
			h.count(eventType, metrics.OutcomeUnauthorized)
			writeError(w, r, http.StatusUnauthorized, "Missing signature")
			return
		}
		if !webhook.ValidateSignature(payload, signature, h.secret) {
			log.Info().Str("event", eventType).Str("delivery", deliveryID).Msg("Invalid webhook signature")
			h.count(eventType, metrics.OutcomeUnauthorized)
			writeError(w, r, http.StatusUnauthorized, "Invalid signature")
			return
		}
	}

	record, ok, err := h.normalizer.Normalize(eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("event", eventType).Str("delivery", deliveryID).Msg("Failed to parse webhook payload")
		h.count(eventType, metrics.OutcomeError)
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !ok {
		log.Debug().Str("event", eventType).Str("delivery", deliveryID).Msg("Delivery not applicable, ignoring")
		h.count(eventType, metrics.OutcomeIgnored)
		writeJSON(w, r, http.StatusOK, WebhookResponse{Success: true, Ignored: true})
		return
	}

	if err := h.repo.Upsert(r.Context(), record); err != nil {
		log.Error().Err(err).Int64("record_id", record.ID).Str("event", eventType).Msg("Failed to store feed record")
		h.count(eventType, metrics.OutcomeError)
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	if h.metrics != nil {
		h.metrics.RecordsUpserted.WithLabelValues(string(record.Kind)).Inc()
	}
	h.count(eventType, metrics.OutcomeStored)
	log.Info().
		Int64("record_id", record.ID).
		Str("kind", string(record.Kind)).
		Str("repository", record.RepositoryFullName).
		Str("actor", record.ActorLogin).
		Msg("Stored feed record")
	writeJSON(w, r, http.StatusOK, WebhookResponse{Success: true})
}

func (h *WebhookHandler) count(eventType, outcome string) {
	if h.metrics == nil {
		return
	}
	h.metrics.WebhookDeliveries.WithLabelValues(eventType, outcome).Inc()
}
