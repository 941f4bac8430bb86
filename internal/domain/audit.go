package domain

import (
	"context"
	"time"
)

// EventAuditEntry is one append-only record of a status change. Reschedules
// append an entry with OldStatus == NewStatus. Entries are never mutated or
// deleted; the read path belongs to reporting, outside this core.
type EventAuditEntry struct {
	ID        string      `json:"id"`
	EventID   string      `json:"event_id"`
	OldStatus EventStatus `json:"old_status"`
	NewStatus EventStatus `json:"new_status"`
	Reason    string      `json:"reason"`
	ActorID   string      `json:"actor_id"`
	CreatedAt time.Time   `json:"created_at"`
}

// AuditLogRepository is the write-only audit sink. Transition and reschedule
// writes append through EventRepository in the same transaction as the event
// mutation; Append serves capacity-relevant membership changes (removals,
// waitlist promotions) that are not tied to an event row write. Those entries
// carry OldStatus == NewStatus, like reschedules.
type AuditLogRepository interface {
	Append(ctx context.Context, entry *EventAuditEntry) error
}
