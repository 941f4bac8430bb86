package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meetspot/internal/domain"
)

type participantService struct {
	eventRepo       domain.EventRepository
	participantRepo domain.ParticipantRepository
	waitlistRepo    domain.WaitlistRepository
	userRepo        domain.UserRepository
	auditRepo       domain.AuditLogRepository
	notifier        domain.Notifier
	contextTimeout  time.Duration
}

func NewParticipantService(
	eventRepo domain.EventRepository,
	participantRepo domain.ParticipantRepository,
	waitlistRepo domain.WaitlistRepository,
	userRepo domain.UserRepository,
	auditRepo domain.AuditLogRepository,
	notifier domain.Notifier,
	timeout time.Duration,
) domain.ParticipantService {
	return &participantService{
		eventRepo:       eventRepo,
		participantRepo: participantRepo,
		waitlistRepo:    waitlistRepo,
		userRepo:        userRepo,
		auditRepo:       auditRepo,
		notifier:        notifier,
		contextTimeout:  timeout,
	}
}

// invitable statuses: invitations may be sent while the event is gathering
// people, not after voting has started or the event is settled.
func invitationsOpen(status domain.EventStatus) bool {
	switch status {
	case domain.StatusPlanning, domain.StatusInviting:
		return true
	}
	return false
}

func (s *participantService) Invite(ctx context.Context, eventID, organizerID string, userIDs, emails []string) (*domain.InviteResult, error) {
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
	if !invitationsOpen(event.Status) {
		return nil, &domain.InvalidTransitionError{From: event.Status, To: event.Status, Guard: "invitations are closed in this status"}
	}

	result := &domain.InviteResult{Invited: []*domain.EventParticipant{}, Skipped: []string{}}

	// Email invitees are resolved to accounts first; an address without an
	// account is skipped and reported, same as an already-invited user.
	targets := append([]string{}, userIDs...)
	for _, email := range emails {
		user, err := s.userRepo.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				result.Skipped = append(result.Skipped, email)
				continue
			}
			return nil, fmt.Errorf("resolve email: %w", err)
		}
		targets = append(targets, user.ID)
	}

	var invitedIDs []string
	for _, userID := range targets {
		if userID == "" || userID == organizerID {
			result.Skipped = append(result.Skipped, userID)
			continue
		}
		p := domain.NewParticipant(eventID, userID, organizerID, time.Now())
		if err := s.participantRepo.Create(ctx, p); err != nil {
			// Re-inviting an existing participant is an idempotent no-op.
			if errors.Is(err, domain.ErrAlreadyInvited) {
				result.Skipped = append(result.Skipped, userID)
				continue
			}
			return nil, fmt.Errorf("create participant: %w", err)
		}
		result.Invited = append(result.Invited, p)
		invitedIDs = append(invitedIDs, userID)
	}

	if len(invitedIDs) > 0 {
		emails := s.emailsFor(ctx, invitedIDs)
		s.notifier.EventInvited(ctx, emails, s.notification(ctx, event, ""))
	}
	return result, nil
}

func (s *participantService) Respond(ctx context.Context, eventID, userID string, accept bool) (*domain.EventParticipant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	switch event.Status {
	case domain.StatusPlanning, domain.StatusInviting, domain.StatusVoting:
	default:
		return nil, &domain.InvalidTransitionError{From: event.Status, To: event.Status, Guard: "invitation responses are closed in this status"}
	}

	p, err := s.participantRepo.GetByEventAndUser(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get participant: %w", err)
	}
	if p.Status != domain.ParticipantInvited {
		return nil, fmt.Errorf("participant has already responded: %w", domain.ErrInvalidInput)
	}

	now := time.Now()
	if accept {
		// The capacity predicate lives in the SQL; a full event surfaces as
		// ErrCapacityExceeded and the caller is redirected to the waitlist.
		if err := s.participantRepo.AcceptIfCapacity(ctx, eventID, userID, now); err != nil {
			return nil, err
		}
		p.Status = domain.ParticipantAccepted
	} else {
		if err := s.participantRepo.UpdateStatus(ctx, eventID, userID, domain.ParticipantInvited, domain.ParticipantDeclined, now); err != nil {
			return nil, err
		}
		p.Status = domain.ParticipantDeclined
	}
	p.RespondedAt = &now
	p.UpdatedAt = now
	return p, nil
}

func (s *participantService) RequestToJoin(ctx context.Context, eventID, userID string) (*domain.JoinResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return s.join(ctx, event, userID)
}

func (s *participantService) JoinByCode(ctx context.Context, joinCode, userID string) (*domain.JoinResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if joinCode == "" {
		return nil, fmt.Errorf("join code is required: %w", domain.ErrInvalidInput)
	}
	event, err := s.eventRepo.GetByJoinCode(ctx, joinCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event by join code: %w", err)
	}
	return s.join(ctx, event, userID)
}

func (s *participantService) join(ctx context.Context, event *domain.Event, userID string) (*domain.JoinResult, error) {
	if !invitationsOpen(event.Status) {
		return nil, &domain.InvalidTransitionError{From: event.Status, To: event.Status, Guard: "event is not accepting joins in this status"}
	}

	// Invited users respond through Respond; self-serve join is for the rest.
	if existing, err := s.participantRepo.GetByEventAndUser(ctx, event.ID, userID); err == nil {
		if existing.Status == domain.ParticipantAccepted {
			return &domain.JoinResult{Participant: existing}, nil
		}
		return nil, fmt.Errorf("user already has an invitation: %w", domain.ErrAlreadyInvited)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get participant: %w", err)
	}

	now := time.Now()
	p := domain.NewParticipant(event.ID, userID, userID, now)
	p.Status = domain.ParticipantAccepted
	p.RespondedAt = &now
	err := s.participantRepo.InsertAcceptedIfCapacity(ctx, p)
	if err == nil {
		return &domain.JoinResult{Participant: p}, nil
	}
	if !errors.Is(err, domain.ErrCapacityExceeded) {
		return nil, fmt.Errorf("join event: %w", err)
	}

	// Full: queue on the waitlist with the next priority.
	w := &domain.WaitlistEntry{EventID: event.ID, UserID: userID, JoinedAt: now}
	if err := s.waitlistRepo.Add(ctx, w); err != nil {
		if errors.Is(err, domain.ErrAlreadyWaitlisted) {
			return nil, domain.ErrAlreadyWaitlisted
		}
		return nil, fmt.Errorf("add waitlist entry: %w", err)
	}
	return &domain.JoinResult{Waitlisted: w}, nil
}

func (s *participantService) Remove(ctx context.Context, eventID, userID, organizerID string) (*domain.EventParticipant, error) {
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

	p, err := s.participantRepo.GetByEventAndUser(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get participant: %w", err)
	}
	if p.Status == domain.ParticipantRemoved {
		return nil, fmt.Errorf("participant already removed: %w", domain.ErrInvalidInput)
	}

	wasAccepted := p.Status == domain.ParticipantAccepted
	now := time.Now()
	if err := s.participantRepo.UpdateStatus(ctx, eventID, userID, p.Status, domain.ParticipantRemoved, now); err != nil {
		return nil, err
	}
	if err := s.appendMembershipAudit(ctx, event, organizerID, fmt.Sprintf("removed participant %s", userID)); err != nil {
		return nil, err
	}

	// Removing an accepted participant frees a slot: run the promotion
	// check. The promotion itself is atomic; losing the race to another
	// removal's promotion is fine and not an error here.
	if !wasAccepted || event.MaxAttendees == nil {
		return nil, nil
	}
	promoted, err := s.promoteNext(ctx, event)
	if err != nil {
		if errors.Is(err, domain.ErrWaitlistEmpty) || errors.Is(err, domain.ErrCapacityExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("promote from waitlist: %w", err)
	}
	return promoted, nil
}

func (s *participantService) Promote(ctx context.Context, eventID string, userID *string, actorID string) (*domain.EventParticipant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	next, err := s.waitlistRepo.NextInLine(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrWaitlistEmpty
		}
		return nil, fmt.Errorf("next in line: %w", err)
	}

	target := next.UserID
	if userID != nil && *userID != next.UserID {
		// Skipping the queue is an organizer-only override.
		if actorID != event.OrganizerID {
			return nil, domain.ErrNotNextInLine
		}
		target = *userID
	}
	if actorID != event.OrganizerID && actorID != target {
		return nil, domain.ErrForbidden
	}

	promoted, err := s.waitlistRepo.Promote(ctx, eventID, target, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.appendMembershipAudit(ctx, event, actorID, fmt.Sprintf("promoted %s from waitlist", target)); err != nil {
		return nil, err
	}

	if user, uerr := s.userRepo.GetByID(ctx, target); uerr == nil && user.Email != "" {
		s.notifier.WaitlistPromoted(ctx, user.Email, s.notification(ctx, event, ""))
	}
	return promoted, nil
}

// promoteNext admits the lowest-priority waiting user after a slot frees.
func (s *participantService) promoteNext(ctx context.Context, event *domain.Event) (*domain.EventParticipant, error) {
	next, err := s.waitlistRepo.NextInLine(ctx, event.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrWaitlistEmpty
		}
		return nil, fmt.Errorf("next in line: %w", err)
	}
	promoted, err := s.waitlistRepo.Promote(ctx, event.ID, next.UserID, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.appendMembershipAudit(ctx, event, event.OrganizerID, fmt.Sprintf("promoted %s from waitlist", next.UserID)); err != nil {
		return nil, err
	}
	if user, uerr := s.userRepo.GetByID(ctx, next.UserID); uerr == nil && user.Email != "" {
		s.notifier.WaitlistPromoted(ctx, user.Email, s.notification(ctx, event, ""))
	}
	return promoted, nil
}

// appendMembershipAudit records a capacity-relevant membership change. The
// entry keeps OldStatus == NewStatus; only status transitions move it.
func (s *participantService) appendMembershipAudit(ctx context.Context, event *domain.Event, actorID, reason string) error {
	entry := &domain.EventAuditEntry{
		EventID:   event.ID,
		OldStatus: event.Status,
		NewStatus: event.Status,
		Reason:    reason,
		ActorID:   actorID,
		CreatedAt: time.Now(),
	}
	if err := s.auditRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *participantService) ListParticipants(ctx context.Context, eventID, callerID string, params domain.PaginationParams) ([]*domain.EventParticipant, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, 0, domain.ErrNotFound
		}
		return nil, 0, fmt.Errorf("get event: %w", err)
	}
	if event.OrganizerID != callerID {
		if _, err := s.participantRepo.GetByEventAndUser(ctx, eventID, callerID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, 0, domain.ErrForbidden
			}
			return nil, 0, fmt.Errorf("get participant: %w", err)
		}
	}
	participants, total, err := s.participantRepo.ListByEventID(ctx, eventID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list participants: %w", err)
	}
	if participants == nil {
		participants = []*domain.EventParticipant{}
	}
	return participants, total, nil
}

func (s *participantService) ListWaitlist(ctx context.Context, eventID, organizerID string) ([]*domain.WaitlistEntry, error) {
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
	entries, err := s.waitlistRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list waitlist: %w", err)
	}
	if entries == nil {
		entries = []*domain.WaitlistEntry{}
	}
	return entries, nil
}

func (s *participantService) emailsFor(ctx context.Context, userIDs []string) []string {
	users, err := s.userRepo.ListByIDs(ctx, userIDs)
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

func (s *participantService) notification(ctx context.Context, event *domain.Event, reason string) domain.EventNotification {
	n := domain.EventNotification{
		EventTitle: event.Title,
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
