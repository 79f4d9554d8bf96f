package api

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"reddot-watch/issuefeed/internal/database"
	"reddot-watch/issuefeed/internal/models"
	"reddot-watch/issuefeed/internal/server/storage"
)

const testSecret = "test-webhook-secret"

func newTestRepo(t *testing.T) storage.FeedRecordRepository {
	t.Helper()

	db, err := database.NewDB(database.NewConfig(filepath.Join(t.TempDir(), "feed.db")))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return storage.NewRepository(db)
}

var errStoreDown = errors.New("store unavailable")

// failingRepo fails every operation.
type failingRepo struct{}

func (failingRepo) Upsert(context.Context, models.FeedRecord) error { return errStoreDown }

func (failingRepo) Query(context.Context, *string) ([]models.FeedRecord, error) {
	return nil, errStoreDown
}

func (failingRepo) Count(context.Context) (int64, error) { return 0, errStoreDown }
