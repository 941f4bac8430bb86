package domain

import (
	"context"
	"time"
)

// EventStatus is the lifecycle state of an event. Transitions between
// statuses are validated by the state machine in the services layer; nothing
// else may write Event.Status.
type EventStatus string

const (
	StatusDraft     EventStatus = "draft"
	StatusPlanning  EventStatus = "planning"
	StatusInviting  EventStatus = "inviting"
	StatusVoting    EventStatus = "voting"
	StatusConfirmed EventStatus = "confirmed"
	StatusCompleted EventStatus = "completed"
	StatusCancelled EventStatus = "cancelled"
)

// ValidStatus reports whether s is one of the known event statuses.
func ValidStatus(s EventStatus) bool {
	switch s {
	case StatusDraft, StatusPlanning, StatusInviting, StatusVoting,
		StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func Terminal(s EventStatus) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Event represents an organizer-created gathering that converges on a venue.
// swagger:model Event
type Event struct {
	ID                string      `json:"id"`
	OrganizerID       string      `json:"organizer_id"`
	Title             string      `json:"title"`
	Description       *string     `json:"description,omitempty"`
	JoinCode          string      `json:"join_code"`
	Status            EventStatus `json:"status"`
	ScheduledAt       *time.Time  `json:"scheduled_at,omitempty"`
	Timezone          string      `json:"timezone"`
	MaxAttendees      *int        `json:"max_attendees,omitempty"`
	ExpectedAttendees int         `json:"expected_attendees"`
	FinalOptionID     *string     `json:"final_option_id,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// NewEvent returns a new draft Event. ID is set by the repository on create.
func NewEvent(organizerID, title, joinCode, timezone string, createdAt time.Time) *Event {
	return &Event{
		OrganizerID: organizerID,
		Title:       title,
		JoinCode:    joinCode,
		Status:      StatusDraft,
		Timezone:    timezone,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// EventRepository defines storage operations for events. Status mutations go
// through compare-and-swap style methods that also append the audit row in
// the same transaction, so a transition either fully happens or not at all.
type EventRepository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	GetByJoinCode(ctx context.Context, joinCode string) (*Event, error)
	ListByOrganizerID(ctx context.Context, organizerID string) ([]*Event, error)

	// TransitionStatus updates status from `from` to `to` only if the stored
	// status still equals `from`, and appends the audit entry atomically.
	// Returns ErrConflict when the row was concurrently moved off `from`.
	TransitionStatus(ctx context.Context, eventID string, from, to EventStatus, entry *EventAuditEntry) error

	// Finalize is TransitionStatus into StatusConfirmed that additionally
	// records the winning option in the same conditional update.
	Finalize(ctx context.Context, eventID, optionID string, from EventStatus, entry *EventAuditEntry) error

	// UpdateSchedule changes the scheduled time and timezone without touching
	// status, appending the audit entry atomically (reschedule semantics).
	UpdateSchedule(ctx context.Context, eventID string, scheduledAt time.Time, timezone string, entry *EventAuditEntry) (*Event, error)
}

// EventDetails bundles an event with its participants and venue options.
type EventDetails struct {
	Event        *Event              `json:"event"`
	Participants []*EventParticipant `json:"participants"`
	Options      []*EventPlaceOption `json:"options"`
}

// EventService defines organizer-facing lifecycle operations.
type EventService interface {
	CreateEvent(ctx context.Context, e *Event) error
	GetEvent(ctx context.Context, eventID, callerID string) (*EventDetails, error)
	ListMyEvents(ctx context.Context, organizerID string) ([]*Event, error)

	// Advance moves the event to the target status after guard validation.
	// Only the organizer may advance; reason is recorded in the audit log.
	Advance(ctx context.Context, eventID, organizerID string, to EventStatus, reason string) (*Event, error)

	// FinalizeEvent commits the winning option and confirms the event.
	// When optionID is nil the vote tally's winner is used.
	FinalizeEvent(ctx context.Context, eventID, organizerID string, optionID *string) (*Event, error)

	// RescheduleEvent keeps the status, updates date/time and timezone, and
	// notifies participants.
	RescheduleEvent(ctx context.Context, eventID, organizerID string, scheduledAt time.Time, timezone, reason string) (*Event, error)
}
