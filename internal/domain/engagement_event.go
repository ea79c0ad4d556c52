package domain

import "time"

// EngagementAction is the kind of engagement a visitor performed.
type EngagementAction string

// Known engagement actions.
const (
	ActionBookmarkAdd    EngagementAction = "bookmark_add"
	ActionBookmarkRemove EngagementAction = "bookmark_remove"
)

// EngagementEvent records a single bookmark add or remove for archival.
// The live counter lives in Redis; events are batch-written to PostgreSQL
// for later analysis.
type EngagementEvent struct {
	ID            string           `json:"id"`
	ContentType   ContentType      `json:"content_type"`
	Slug          string           `json:"slug"`
	Action        EngagementAction `json:"action"`
	UserAgentHash string           `json:"user_agent_hash,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}
