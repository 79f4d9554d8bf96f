package webhook

import "errors"

// EventType is the value of the X-GitHub-Event header.
type EventType string

const (
	EventTypeIssues       EventType = "issues"
	EventTypeIssueComment EventType = "issue_comment"
)

// Actions accepted on issue_comment deliveries.
const commentActionCreated = "created"

var (
	// ErrUnsupportedEvent is returned by ParseEvent for event types the
	// normalizer does not map.
	ErrUnsupportedEvent = errors.New("unsupported webhook event type")
	// ErrIDOverflow is returned by DeriveEventID when the concatenated id
	// does not fit in a signed 64-bit integer.
	ErrIDOverflow = errors.New("derived event id overflows int64")
)
