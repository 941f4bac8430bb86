package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"meetspot/internal/domain"
)

type eventService struct {
	eventRepo       domain.EventRepository
	participantRepo domain.ParticipantRepository
	optionRepo      domain.PlaceOptionRepository
	voteRepo        domain.VoteRepository
	userRepo        domain.UserRepository
	notifier        domain.Notifier
	votePolicy      domain.VotePolicy
	contextTimeout  time.Duration
}

func NewEventService(
	eventRepo domain.EventRepository,
	participantRepo domain.ParticipantRepository,
	optionRepo domain.PlaceOptionRepository,
	voteRepo domain.VoteRepository,
	userRepo domain.UserRepository,
	notifier domain.Notifier,
	votePolicy domain.VotePolicy,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:       eventRepo,
		participantRepo: participantRepo,
		optionRepo:      optionRepo,
		voteRepo:        voteRepo,
		userRepo:        userRepo,
		notifier:        notifier,
		votePolicy:      votePolicy,
		contextTimeout:  timeout,
	}
}

const joinCodeLength = 6

var joinCodeAlphabet = []rune("abcdefghijklmnopqrstuvwxyz0123456789")

func generateJoinCode() (string, error) {
	b := make([]rune, joinCodeLength)
	max := big.NewInt(int64(len(joinCodeAlphabet)))
	for i := 0; i < joinCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = joinCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if event.OrganizerID == "" {
		return fmt.Errorf("event organizer is required: %w", domain.ErrInvalidInput)
	}
	if event.Title == "" {
		return fmt.Errorf("event title is required: %w", domain.ErrInvalidInput)
	}
	if event.MaxAttendees != nil && *event.MaxAttendees < 1 {
		return fmt.Errorf("max attendees must be positive: %w", domain.ErrInvalidInput)
	}

	event.Status = domain.StatusDraft
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt

	if event.JoinCode == "" {
		code, err := generateJoinCode()
		if err != nil {
			return fmt.Errorf("generate join code: %w", err)
		}
		event.JoinCode = code
	}

	return s.eventRepo.Create(ctx, event)
}

func (s *eventService) GetEvent(ctx context.Context, eventID, callerID string) (*domain.EventDetails, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	// Organizer and participants may view; everyone else sees nothing.
	if event.OrganizerID != callerID {
		if _, err := s.participantRepo.GetByEventAndUser(ctx, eventID, callerID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrForbidden
			}
			return nil, fmt.Errorf("get participant: %w", err)
		}
	}

	participants, err := s.participantRepo.ListByEventAndStatuses(ctx, eventID, []domain.ParticipantStatus{
		domain.ParticipantInvited, domain.ParticipantAccepted, domain.ParticipantDeclined,
	})
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	options, err := s.optionRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	if participants == nil {
		participants = []*domain.EventParticipant{}
	}
	if options == nil {
		options = []*domain.EventPlaceOption{}
	}
	return &domain.EventDetails{Event: event, Participants: participants, Options: options}, nil
}

func (s *eventService) ListMyEvents(ctx context.Context, organizerID string) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.eventRepo.ListByOrganizerID(ctx, organizerID)
}

// gatherFacts collects the guard inputs for a transition of the given event.
func (s *eventService) gatherFacts(ctx context.Context, event *domain.Event) (TransitionFacts, error) {
	accepted, err := s.participantRepo.CountAccepted(ctx, event.ID)
	if err != nil {
		return TransitionFacts{}, fmt.Errorf("count accepted participants: %w", err)
	}
	options, err := s.optionRepo.ListByEventID(ctx, event.ID)
	if err != nil {
		return TransitionFacts{}, fmt.Errorf("list options: %w", err)
	}
	return TransitionFacts{
		AcceptedParticipants: accepted,
		Options:              len(options),
		FinalOptionChosen:    event.FinalOptionID != nil,
	}, nil
}

func (s *eventService) Advance(ctx context.Context, eventID, organizerID string, to domain.EventStatus, reason string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.OrganizerID != organizerID {
		return nil, domain.ErrForbidden
	}

	facts, err := s.gatherFacts(ctx, event)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(event, to, facts); err != nil {
		return nil, err
	}

	entry := &domain.EventAuditEntry{
		EventID:   eventID,
		OldStatus: event.Status,
		NewStatus: to,
		Reason:    reason,
		ActorID:   organizerID,
		CreatedAt: time.Now(),
	}
	// The repository re-checks the old status; a concurrent transition
	// surfaces as ErrConflict and nothing is written.
	if err := s.eventRepo.TransitionStatus(ctx, eventID, event.Status, to, entry); err != nil {
		return nil, err
	}
	event.Status = to
	event.UpdatedAt = entry.CreatedAt

	if to == domain.StatusCancelled {
		emails := s.participantEmails(ctx, eventID)
		s.notifier.EventCancelled(ctx, emails, s.notification(ctx, event, "", reason))
	}
	return event, nil
}

func (s *eventService) FinalizeEvent(ctx context.Context, eventID, organizerID string, optionID *string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.OrganizerID != organizerID {
		return nil, domain.ErrForbidden
	}

	var winner *domain.EventPlaceOption
	if optionID != nil {
		winner, err = s.optionRepo.GetByEventAndID(ctx, eventID, *optionID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrNotFound
			}
			return nil, fmt.Errorf("get option: %w", err)
		}
	} else {
		options, err := s.optionRepo.ListByEventID(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("list options: %w", err)
		}
		tallies, err := s.voteRepo.TallyByEventID(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("tally votes: %w", err)
		}
		result, err := pickWinner(options, tallies, s.votePolicy)
		if err != nil {
			return nil, err
		}
		winner = result.Option
	}

	facts, err := s.gatherFacts(ctx, event)
	if err != nil {
		return nil, err
	}
	facts.FinalOptionChosen = true
	if err := ValidateTransition(event, domain.StatusConfirmed, facts); err != nil {
		return nil, err
	}

	entry := &domain.EventAuditEntry{
		EventID:   eventID,
		OldStatus: event.Status,
		NewStatus: domain.StatusConfirmed,
		Reason:    fmt.Sprintf("finalized with venue %s", winner.Name),
		ActorID:   organizerID,
		CreatedAt: time.Now(),
	}
	if err := s.eventRepo.Finalize(ctx, eventID, winner.ID, event.Status, entry); err != nil {
		return nil, err
	}
	event.Status = domain.StatusConfirmed
	event.FinalOptionID = &winner.ID
	event.UpdatedAt = entry.CreatedAt

	emails := s.participantEmails(ctx, eventID)
	s.notifier.EventFinalized(ctx, emails, s.notification(ctx, event, winner.Name, ""))
	return event, nil
}

func (s *eventService) RescheduleEvent(ctx context.Context, eventID, organizerID string, scheduledAt time.Time, timezone, reason string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.OrganizerID != organizerID {
		return nil, domain.ErrForbidden
	}
	if domain.Terminal(event.Status) {
		return nil, &domain.InvalidTransitionError{From: event.Status, To: event.Status, Guard: "event is in a terminal status"}
	}
	if timezone == "" {
		timezone = event.Timezone
	}

	entry := &domain.EventAuditEntry{
		EventID:   eventID,
		OldStatus: event.Status,
		NewStatus: event.Status,
		Reason:    reason,
		ActorID:   organizerID,
		CreatedAt: time.Now(),
	}
	updated, err := s.eventRepo.UpdateSchedule(ctx, eventID, scheduledAt, timezone, entry)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update schedule: %w", err)
	}

	emails := s.participantEmails(ctx, eventID)
	s.notifier.EventRescheduled(ctx, emails, s.notification(ctx, updated, "", reason))
	return updated, nil
}

// participantEmails resolves notification addresses for invited and accepted
// participants. Lookup failures degrade to an empty list; notifications are
// best effort and never block the domain write that triggered them.
func (s *eventService) participantEmails(ctx context.Context, eventID string) []string {
	participants, err := s.participantRepo.ListByEventAndStatuses(ctx, eventID, []domain.ParticipantStatus{
		domain.ParticipantInvited, domain.ParticipantAccepted,
	})
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	if len(ids) == 0 {
		return nil
	}
	users, err := s.userRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil
	}
	emails := make([]string, 0, len(users))
	for _, u := range users {
		if u.Email != "" {
			emails = append(emails, u.Email)
		}
	}
	return emails
}

func (s *eventService) notification(ctx context.Context, event *domain.Event, venueName, reason string) domain.EventNotification {
	n := domain.EventNotification{
		EventTitle: event.Title,
		VenueName:  venueName,
		Reason:     reason,
		JoinCode:   event.JoinCode,
	}
	if event.ScheduledAt != nil {
		n.ScheduledAt = event.ScheduledAt.Format(time.RFC1123)
	}
	if organizer, err := s.userRepo.GetByID(ctx, event.OrganizerID); err == nil && organizer != nil {
		n.OrganizerName = organizer.DisplayName()
	}
	return n
}
