// Package webhook turns GitHub webhook deliveries into feed records.
//
// Two pieces live here:
//   - ValidateSignature checks the X-Hub-Signature-256 header (HMAC-SHA256
//     over the raw body, "sha256=" prefix, constant-time comparison).
//   - Normalizer maps an "issues" or "issue_comment" delivery to at most one
//     models.FeedRecord. Deliveries of other types, filtered actions, and
//     payloads missing the nested objects a record needs are reported as not
//     applicable rather than as errors.
//
// Record identity:
//
// Comments keep GitHub's comment id. Issue lifecycle records get an id built
// by concatenating the issue id, an action digit (1 opened, 2 closed,
// 3 reopened) and the Unix seconds of the event timestamp, so redelivery of
// the same action maps onto the same row.
package webhook
