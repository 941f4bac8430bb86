package domain

import (
	"context"
	"time"
)

// ParticipantStatus tracks a user's response to an event invitation.
// Participants are never hard-deleted; removal is a status.
type ParticipantStatus string

const (
	ParticipantInvited  ParticipantStatus = "invited"
	ParticipantAccepted ParticipantStatus = "accepted"
	ParticipantDeclined ParticipantStatus = "declined"
	ParticipantRemoved  ParticipantStatus = "removed"
)

// EventParticipant is the (event, user) membership row.
// swagger:model EventParticipant
type EventParticipant struct {
	ID          string            `json:"id"`
	EventID     string            `json:"event_id"`
	UserID      string            `json:"user_id"`
	Status      ParticipantStatus `json:"status"`
	InvitedBy   string            `json:"invited_by"`
	RespondedAt *time.Time        `json:"responded_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewParticipant returns an invited participant. ID is set by the repository.
func NewParticipant(eventID, userID, invitedBy string, createdAt time.Time) *EventParticipant {
	return &EventParticipant{
		EventID:   eventID,
		UserID:    userID,
		Status:    ParticipantInvited,
		InvitedBy: invitedBy,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// WaitlistEntry is a user queued for a capacity-full event. Lower priority
// means earlier in line.
// swagger:model WaitlistEntry
type WaitlistEntry struct {
	ID       string    `json:"id"`
	EventID  string    `json:"event_id"`
	UserID   string    `json:"user_id"`
	Priority int       `json:"priority"`
	Notes    *string   `json:"notes,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

// ParticipantRepository defines storage operations for event participants.
// Capacity-sensitive writes carry the capacity predicate inside the SQL so
// the accepted count can never exceed max_attendees, regardless of what the
// caller checked beforehand.
type ParticipantRepository interface {
	Create(ctx context.Context, p *EventParticipant) error
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*EventParticipant, error)
	ListByEventID(ctx context.Context, eventID string, params PaginationParams) ([]*EventParticipant, int, error)
	ListByEventAndStatuses(ctx context.Context, eventID string, statuses []ParticipantStatus) ([]*EventParticipant, error)
	CountAccepted(ctx context.Context, eventID string) (int, error)

	// UpdateStatus moves the participant from `from` to `to`; returns
	// ErrConflict when the stored status no longer equals `from`.
	UpdateStatus(ctx context.Context, eventID, userID string, from, to ParticipantStatus, at time.Time) error

	// AcceptIfCapacity moves an invited participant to accepted only while
	// the accepted count is below max_attendees. Returns ErrCapacityExceeded
	// when the event is full.
	AcceptIfCapacity(ctx context.Context, eventID, userID string, at time.Time) error

	// InsertAcceptedIfCapacity admits an uninvited self-serve join directly
	// as accepted, subject to the same capacity predicate.
	InsertAcceptedIfCapacity(ctx context.Context, p *EventParticipant) error
}

// WaitlistRepository defines storage operations for the per-event waitlist.
type WaitlistRepository interface {
	// Add appends the user with the next available priority unless an
	// explicit priority is set on the entry.
	Add(ctx context.Context, w *WaitlistEntry) error
	ListByEventID(ctx context.Context, eventID string) ([]*WaitlistEntry, error)
	NextInLine(ctx context.Context, eventID string) (*WaitlistEntry, error)

	// Promote converts the waitlist entry into an accepted participant and
	// deletes the waitlist row in one transaction. The capacity predicate is
	// re-evaluated inside the transaction; ErrCapacityExceeded means the
	// freed slot was taken by a concurrent promotion.
	Promote(ctx context.Context, eventID, userID string, at time.Time) (*EventParticipant, error)
}

// InviteResult reports the outcome of a batch invite. Skipped carries the
// user ids and email addresses that did not produce an invitation.
type InviteResult struct {
	Invited []*EventParticipant `json:"invited"`
	Skipped []string            `json:"skipped"`
}

// JoinResult is the outcome of a self-serve join: either an accepted
// participant or a waitlist entry, never both.
type JoinResult struct {
	Participant *EventParticipant `json:"participant,omitempty"`
	Waitlisted  *WaitlistEntry    `json:"waitlisted,omitempty"`
}

// ParticipantService defines invitation, response, and waitlist operations.
type ParticipantService interface {
	// Invite invites users by id or by email address. Emails that resolve to
	// no account, the organizer, and already-invited users are reported in
	// InviteResult.Skipped, not as errors.
	Invite(ctx context.Context, eventID, organizerID string, userIDs, emails []string) (*InviteResult, error)

	Respond(ctx context.Context, eventID, userID string, accept bool) (*EventParticipant, error)
	RequestToJoin(ctx context.Context, eventID, userID string) (*JoinResult, error)

	// JoinByCode is RequestToJoin against the event owning the join code that
	// invitation emails carry.
	JoinByCode(ctx context.Context, joinCode, userID string) (*JoinResult, error)

	// Remove marks the participant removed and, if that freed a slot on a
	// capacity-bound event, promotes the next waitlisted user.
	Remove(ctx context.Context, eventID, userID, organizerID string) (promoted *EventParticipant, err error)

	// Promote admits a waitlisted user. With userID nil the next in line is
	// promoted; an explicit userID that is not next in line is rejected
	// unless the organizer overrides.
	Promote(ctx context.Context, eventID string, userID *string, actorID string) (*EventParticipant, error)

	ListParticipants(ctx context.Context, eventID, callerID string, params PaginationParams) ([]*EventParticipant, int, error)
	ListWaitlist(ctx context.Context, eventID, organizerID string) ([]*WaitlistEntry, error)
}
