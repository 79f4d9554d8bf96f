package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/rs/zerolog/log"

	"reddot-watch/issuefeed/internal/models"
)

// Normalizer maps webhook deliveries to feed records.
type Normalizer struct {
	// OwnLogin is the login whose activity is flagged with IsOwn.
	OwnLogin string
}

// NewNormalizer creates a Normalizer flagging activity by ownLogin.
func NewNormalizer(ownLogin string) *Normalizer {
	return &Normalizer{OwnLogin: ownLogin}
}

// ParseEvent decodes payload into the go-github type for eventType.
func ParseEvent(eventType string, payload []byte) (any, error) {
	switch EventType(eventType) {
	case EventTypeIssues, EventTypeIssueComment:
		event, err := github.ParseWebHook(eventType, payload)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s payload: %w", eventType, err)
		}
		return event, nil
	default:
		if !json.Valid(payload) {
			return nil, fmt.Errorf("failed to parse %s payload: invalid JSON", eventType)
		}
		return nil, ErrUnsupportedEvent
	}
}

// Normalize returns the record for a delivery. ok is false when the delivery
// is not applicable: another event type, a filtered action, or missing
// nested data. err is reserved for bodies that cannot be parsed at all.
func (n *Normalizer) Normalize(eventType string, payload []byte) (record models.FeedRecord, ok bool, err error) {
	event, err := ParseEvent(eventType, payload)
	if errors.Is(err, ErrUnsupportedEvent) {
		return models.FeedRecord{}, false, nil
	}
	if err != nil {
		return models.FeedRecord{}, false, err
	}

	switch e := event.(type) {
	case *github.IssuesEvent:
		record, ok = n.fromIssuesEvent(e)
	case *github.IssueCommentEvent:
		record, ok = n.fromIssueCommentEvent(e)
	}
	return record, ok, nil
}

func (n *Normalizer) fromIssuesEvent(e *github.IssuesEvent) (models.FeedRecord, bool) {
	action, accepted := lifecycleAction(e.GetAction())
	if !accepted {
		log.Debug().Str("action", e.GetAction()).Msg("Ignoring issues action")
		return models.FeedRecord{}, false
	}

	issue := e.GetIssue()
	if issue == nil || issue.ID == nil {
		log.Debug().Str("action", e.GetAction()).Msg("Ignoring issues delivery without issue")
		return models.FeedRecord{}, false
	}

	ts := issue.UpdatedAt
	if action == models.ActionOpened {
		ts = issue.CreatedAt
	}
	if ts == nil {
		log.Debug().Int64("issue_id", issue.GetID()).Msg("Ignoring issues delivery without timestamp")
		return models.FeedRecord{}, false
	}

	id, err := DeriveEventID(issue.GetID(), action, ts.Time)
	if err != nil {
		log.Warn().Err(err).
			Int64("issue_id", issue.GetID()).
			Str("action", string(action)).
			Msg("Cannot derive record id, ignoring delivery")
		return models.FeedRecord{}, false
	}

	actor := e.GetSender()
	if actor == nil {
		actor = issue.GetUser()
	}

	record := models.FeedRecord{
		ID:                 id,
		Kind:               models.KindEvent,
		OccurredAt:         models.FormatTimestamp(ts.Time),
		ActorLogin:         actor.GetLogin(),
		ActorAvatarURL:     actor.GetAvatarURL(),
		RepositoryFullName: e.GetRepo().GetFullName(),
		ActivityURL:        issue.GetHTMLURL(),
		ParentURL:          issue.GetHTMLURL(),
		ParentNumber:       issue.GetNumber(),
		ParentTitle:        issue.Title,
		LifecycleAction:    &action,
		IsOwn:              n.isOwn(actor.GetLogin()),
		SourceID:           issue.GetID(),
	}
	if action == models.ActionOpened {
		body := issue.GetBody()
		record.Body = &body
	}
	record.DerivedDate = models.DerivedDate(record.OccurredAt)
	return record, true
}

func (n *Normalizer) fromIssueCommentEvent(e *github.IssueCommentEvent) (models.FeedRecord, bool) {
	if e.GetAction() != commentActionCreated {
		log.Debug().Str("action", e.GetAction()).Msg("Ignoring issue_comment action")
		return models.FeedRecord{}, false
	}

	comment := e.GetComment()
	issue := e.GetIssue()
	if comment == nil || comment.ID == nil || comment.CreatedAt == nil || issue == nil {
		log.Debug().Msg("Ignoring issue_comment delivery without comment or issue")
		return models.FeedRecord{}, false
	}

	author := comment.GetUser()
	body := comment.GetBody()
	record := models.FeedRecord{
		ID:                 comment.GetID(),
		Kind:               models.KindComment,
		OccurredAt:         models.FormatTimestamp(comment.CreatedAt.Time),
		ActorLogin:         author.GetLogin(),
		ActorAvatarURL:     author.GetAvatarURL(),
		RepositoryFullName: e.GetRepo().GetFullName(),
		ActivityURL:        comment.GetHTMLURL(),
		ParentURL:          issue.GetHTMLURL(),
		ParentNumber:       issue.GetNumber(),
		ParentTitle:        issue.Title,
		Body:               &body,
		IsOwn:              n.isOwn(author.GetLogin()),
		SourceID:           comment.GetID(),
	}
	record.DerivedDate = models.DerivedDate(record.OccurredAt)
	return record, true
}

func (n *Normalizer) isOwn(login string) bool {
	return n.OwnLogin != "" && login == n.OwnLogin
}

func lifecycleAction(action string) (models.LifecycleAction, bool) {
	switch models.LifecycleAction(action) {
	case models.ActionOpened, models.ActionClosed, models.ActionReopened:
		return models.LifecycleAction(action), true
	}
	return "", false
}

// actionDigit encodes a lifecycle action as the middle digit of a derived id.
func actionDigit(action models.LifecycleAction) string {
	switch action {
	case models.ActionOpened:
		return "1"
	case models.ActionClosed:
		return "2"
	default:
		return "3"
	}
}

// DeriveEventID builds the record id of an issue lifecycle action by
// concatenating the issue id, the action digit and the Unix seconds of ts.
//
// The scheme is not collision-free: different (issue id, timestamp) pairs
// can concatenate to the same digits.
//
// With a 10-digit epoch the action digit and timestamp take 11 digits, so
// only issue ids up to 92233720 fit in an int64. Larger ids, which includes
// current GitHub issue ids, return ErrIDOverflow.
func DeriveEventID(issueID int64, action models.LifecycleAction, ts time.Time) (int64, error) {
	if issueID < 0 || ts.Unix() < 0 {
		return 0, fmt.Errorf("cannot derive id from issue %d at %d", issueID, ts.Unix())
	}

	digits := strconv.FormatInt(issueID, 10) + actionDigit(action) + strconv.FormatInt(ts.Unix(), 10)
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %s", ErrIDOverflow, digits)
		}
		return 0, fmt.Errorf("failed to parse derived id %q: %w", digits, err)
	}
	return id, nil
}
