package services

import (
	"meetspot/internal/domain"
)

// transitions is the allowed old → new status table. Completed and
// cancelled are terminal and have no entries.
var transitions = map[domain.EventStatus][]domain.EventStatus{
	domain.StatusDraft:     {domain.StatusPlanning, domain.StatusCancelled},
	domain.StatusPlanning:  {domain.StatusInviting, domain.StatusCancelled},
	domain.StatusInviting:  {domain.StatusVoting, domain.StatusConfirmed, domain.StatusCancelled},
	domain.StatusVoting:    {domain.StatusConfirmed, domain.StatusCancelled},
	domain.StatusConfirmed: {domain.StatusCompleted, domain.StatusCancelled},
}

// TransitionFacts are the data-dependent inputs the guards consult. Callers
// gather them immediately before validation; the conditional update in the
// repository guards the status itself against races.
type TransitionFacts struct {
	AcceptedParticipants int
	Options              int
	FinalOptionChosen    bool
}

// tableAllows reports whether the transition table permits from → to.
func tableAllows(from, to domain.EventStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition checks the transition table and the domain guards
// without mutating anything. It returns nil when the transition is allowed,
// otherwise an *domain.InvalidTransitionError naming the failed guard.
func ValidateTransition(e *domain.Event, to domain.EventStatus, facts TransitionFacts) error {
	if !domain.ValidStatus(to) {
		return &domain.InvalidTransitionError{From: e.Status, To: to, Guard: "unknown target status"}
	}
	if domain.Terminal(e.Status) {
		return &domain.InvalidTransitionError{From: e.Status, To: to, Guard: "event is in a terminal status"}
	}
	if !tableAllows(e.Status, to) {
		return &domain.InvalidTransitionError{From: e.Status, To: to}
	}

	switch {
	case e.Status == domain.StatusPlanning && to == domain.StatusInviting:
		if e.ScheduledAt == nil {
			return &domain.InvalidTransitionError{From: e.Status, To: to, Guard: "event has no scheduled date"}
		}
	case e.Status == domain.StatusInviting && to == domain.StatusVoting:
		if facts.Options < 2 {
			return &domain.InvalidTransitionError{From: e.Status, To: to, Guard: "voting needs at least two venue options"}
		}
		if facts.AcceptedParticipants < 1 {
			return &domain.InvalidTransitionError{From: e.Status, To: to, Guard: "no participant has accepted"}
		}
	case e.Status == domain.StatusInviting && to == domain.StatusConfirmed:
		if facts.AcceptedParticipants < 1 {
			return &domain.InvalidTransitionError{From: e.Status, To: to, Guard: "no participant has accepted"}
		}
		if !facts.FinalOptionChosen {
			return &domain.InvalidTransitionError{From: e.Status, To: to, Guard: "no venue option selected"}
		}
	case e.Status == domain.StatusVoting && to == domain.StatusConfirmed:
		if !facts.FinalOptionChosen {
			return &domain.InvalidTransitionError{From: e.Status, To: to, Guard: "no winning option selected"}
		}
	}
	return nil
}

// CanTransition reports whether the transition would be allowed. Read-only.
func CanTransition(e *domain.Event, to domain.EventStatus, facts TransitionFacts) bool {
	return ValidateTransition(e, to, facts) == nil
}
