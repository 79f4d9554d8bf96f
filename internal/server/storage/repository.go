package storage

import (
	"context"
	"fmt"
	"time"

	"reddot-watch/issuefeed/internal/database"
	"reddot-watch/issuefeed/internal/models"
)

// FeedRecordRepository defines operations for storing and reading feed records.
type FeedRecordRepository interface {
	// Upsert inserts the record or fully replaces an existing record with the same id.
	Upsert(ctx context.Context, record models.FeedRecord) error
	// Query returns records ordered by occurred_at descending, optionally
	// restricted to a single derived date. Ties are broken by id descending.
	Query(ctx context.Context, date *string) ([]models.FeedRecord, error)
	// Count returns the total number of stored records.
	Count(ctx context.Context) (int64, error)
}

// sqlxRepository implements FeedRecordRepository using sqlx.
type sqlxRepository struct {
	db *database.DB
}

// NewRepository creates a new repository instance.
func NewRepository(db *database.DB) FeedRecordRepository {
	return &sqlxRepository{db: db}
}

// A single statement keeps the write atomic: readers see either the old row
// or the new one. created_at survives redelivery, everything else is overwritten.
const upsertQuery = `
	INSERT INTO feed_records (
		id, kind, occurred_at, actor_login, actor_avatar_url, repository_full_name,
		activity_url, parent_url, parent_number, parent_title, body, lifecycle_action,
		is_own, derived_date, source_id, created_at, updated_at
	) VALUES (
		:id, :kind, :occurred_at, :actor_login, :actor_avatar_url, :repository_full_name,
		:activity_url, :parent_url, :parent_number, :parent_title, :body, :lifecycle_action,
		:is_own, :derived_date, :source_id, :created_at, :updated_at
	)
	ON CONFLICT(id) DO UPDATE SET
		kind = excluded.kind,
		occurred_at = excluded.occurred_at,
		actor_login = excluded.actor_login,
		actor_avatar_url = excluded.actor_avatar_url,
		repository_full_name = excluded.repository_full_name,
		activity_url = excluded.activity_url,
		parent_url = excluded.parent_url,
		parent_number = excluded.parent_number,
		parent_title = excluded.parent_title,
		body = excluded.body,
		lifecycle_action = excluded.lifecycle_action,
		is_own = excluded.is_own,
		derived_date = excluded.derived_date,
		source_id = excluded.source_id,
		updated_at = excluded.updated_at`

// Upsert stores the record, recomputing derived_date from occurred_at.
func (r *sqlxRepository) Upsert(ctx context.Context, record models.FeedRecord) error {
	now := time.Now().UTC()
	record.DerivedDate = models.DerivedDate(record.OccurredAt)
	record.CreatedAt = now
	record.UpdatedAt = now

	if _, err := r.db.NamedExecContext(ctx, upsertQuery, record); err != nil {
		return fmt.Errorf("failed to upsert feed record %d: %w", record.ID, err)
	}
	return nil
}

// Query retrieves records for a date, or all records when date is nil.
func (r *sqlxRepository) Query(ctx context.Context, date *string) ([]models.FeedRecord, error) {
	const baseQuery = `SELECT * FROM feed_records `
	const orderBy = ` ORDER BY occurred_at DESC, id DESC`

	query := baseQuery + orderBy
	var args []any
	if date != nil {
		query = baseQuery + `WHERE derived_date = ?` + orderBy
		args = append(args, *date)
	}

	records := []models.FeedRecord{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return records, nil
}

// Count returns the number of rows in feed_records.
func (r *sqlxRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM feed_records`); err != nil {
		return 0, fmt.Errorf("failed to count feed records: %w", err)
	}
	return count, nil
}
