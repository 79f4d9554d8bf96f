package models

import "time"

// Kind discriminates how the optional fields of a FeedRecord are interpreted.
type Kind string

const (
	KindComment Kind = "comment"
	KindEvent   Kind = "event"
)

// LifecycleAction is set only on records of KindEvent.
type LifecycleAction string

const (
	ActionOpened   LifecycleAction = "opened"
	ActionClosed   LifecycleAction = "closed"
	ActionReopened LifecycleAction = "reopened"
)

// FeedRecord represents a row in the feed_records table
type FeedRecord struct {
	ID                 int64            `db:"id" json:"id"`
	Kind               Kind             `db:"kind" json:"kind"`
	OccurredAt         string           `db:"occurred_at" json:"occurred_at"` // ISO-8601, UTC
	ActorLogin         string           `db:"actor_login" json:"actor_login"`
	ActorAvatarURL     string           `db:"actor_avatar_url" json:"actor_avatar_url"`
	RepositoryFullName string           `db:"repository_full_name" json:"repository_full_name"`
	ActivityURL        string           `db:"activity_url" json:"activity_url"`
	ParentURL          string           `db:"parent_url" json:"parent_url"`
	ParentNumber       int              `db:"parent_number" json:"parent_number"`
	ParentTitle        *string          `db:"parent_title" json:"parent_title"`
	Body               *string          `db:"body" json:"body"`
	LifecycleAction    *LifecycleAction `db:"lifecycle_action" json:"lifecycle_action"`
	IsOwn              bool             `db:"is_own" json:"is_own"`
	DerivedDate        string           `db:"derived_date" json:"derived_date"`

	// Raw upstream issue or comment id, kept for debugging only.
	SourceID  int64     `db:"source_id" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

// DerivedDate truncates an ISO-8601 timestamp to its YYYY-MM-DD calendar date.
func DerivedDate(occurredAt string) string {
	if len(occurredAt) < 10 {
		return occurredAt
	}
	return occurredAt[:10]
}

// FormatTimestamp renders t the way occurred_at is stored. The value is
// converted to UTC first, so derived_date is always the UTC calendar day.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
