package importer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"reddot-watch/issuefeed/internal/models"
	"reddot-watch/issuefeed/internal/server/storage"
)

// maxLineBytes bounds a single recorded delivery, matching the webhook body limit.
const maxLineBytes = 25 << 20

// Delivery is one line of a recorded-deliveries file.
type Delivery struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Stats summarizes an import run.
type Stats struct {
	Total   int
	Stored  int
	Ignored int
	Failed  int
}

// Normalizer maps a delivery to at most one feed record.
type Normalizer interface {
	Normalize(eventType string, payload []byte) (models.FeedRecord, bool, error)
}

// Importer replays recorded webhook deliveries into the feed store.
type Importer struct {
	normalizer Normalizer
	repo       storage.FeedRecordRepository
	client     *http.Client
}

// NewImporter creates a new delivery importer
func NewImporter(normalizer Normalizer, repo storage.FeedRecordRepository) *Importer {
	return &Importer{normalizer: normalizer, repo: repo, client: http.DefaultClient}
}

// ImportDeliveries imports deliveries from a JSON-lines file or an http(s) URL.
func (i *Importer) ImportDeliveries(ctx context.Context, source string) (Stats, error) {
	log.Info().Str("source", source).Msg("Starting delivery import")

	r, err := i.open(ctx, source)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to open deliveries: %w", err)
	}
	defer r.Close()

	stats, err := i.Import(ctx, r)
	if err != nil {
		return stats, fmt.Errorf("failed to import deliveries: %w", err)
	}

	log.Info().
		Int("total", stats.Total).
		Int("stored", stats.Stored).
		Int("ignored", stats.Ignored).
		Int("failed", stats.Failed).
		Msg("Import summary")
	return stats, nil
}

// Import reads deliveries from r. Malformed lines are counted and skipped;
// a storage failure aborts the run.
func (i *Importer) Import(ctx context.Context, r io.Reader) (Stats, error) {
	var stats Stats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineCount := 0
	for scanner.Scan() {
		lineCount++
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			log.Debug().Int("line", lineCount).Msg("Skipping empty line")
			continue
		}
		stats.Total++

		logger := log.With().Int("line", lineCount).Logger()

		var d Delivery
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			logger.Warn().Err(err).Msg("Skipping malformed delivery line")
			stats.Failed++
			continue
		}
		if d.Event == "" || len(d.Payload) == 0 {
			logger.Warn().Msg("Skipping delivery without event or payload")
			stats.Failed++
			continue
		}

		record, ok, err := i.normalizer.Normalize(d.Event, d.Payload)
		if err != nil {
			logger.Warn().Err(err).Str("event", d.Event).Msg("Skipping unparsable delivery")
			stats.Failed++
			continue
		}
		if !ok {
			logger.Debug().Str("event", d.Event).Msg("Delivery not applicable")
			stats.Ignored++
			continue
		}

		if err := i.repo.Upsert(ctx, record); err != nil {
			return stats, fmt.Errorf("line %d: %w", lineCount, err)
		}
		stats.Stored++
		logger.Debug().Int64("record_id", record.ID).Msg("Delivery stored")
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed reading line %d: %w", lineCount+1, err)
	}
	return stats, nil
}

func (i *Importer) open(ctx context.Context, source string) (io.ReadCloser, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		log.Debug().Str("path", source).Msg("Using local deliveries file")
		return os.Open(source)
	}

	log.Debug().Str("url", source).Msg("Downloading deliveries file")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download file: HTTP status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
