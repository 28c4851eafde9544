package audit

import "time"

// Actions recorded in the audit trail.
const (
	ActionVisitCreated   = "visit.created"
	ActionVisitUpdated   = "visit.updated"
	ActionVisitDeparted  = "visit.departed"
	ActionVisitDeleted   = "visit.deleted"
	ActionUserLogin      = "user.login"
	ActionTokenRefreshed = "token.refreshed"
	ActionTokenRevoked   = "token.revoked"
)

// Event is one append-only audit record. Subject identifies the affected
// entity (visit or user ID); ActorID is the authenticated caller when known.
type Event struct {
	Action    string    `json:"action"`
	Subject   string    `json:"subject"`
	ActorID   string    `json:"actor_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
