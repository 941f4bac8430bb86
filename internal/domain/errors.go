package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services and repositories. Repositories map
// driver-level conditions (sql.ErrNoRows, unique violations, zero rows
// affected) onto these; controllers map them onto HTTP status codes.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUserNotFound      = errors.New("user not found")
	ErrCapacityExceeded  = errors.New("event capacity exceeded")
	ErrAlreadyInvited    = errors.New("user already invited to event")
	ErrAlreadyWaitlisted = errors.New("user already on the waitlist")
	ErrNotNextInLine     = errors.New("user is not next in line on the waitlist")
	ErrWaitlistEmpty     = errors.New("waitlist is empty")
	ErrVotingClosed      = errors.New("event is not accepting votes")
	ErrDuplicateOption   = errors.New("venue already proposed for this event")
	ErrWinnerTie         = errors.New("winner is tied; organizer must pick manually")
	ErrNoVotesCast       = errors.New("no votes cast for this event")

	// ErrInvalidCredentials covers both unknown email and wrong password, so
	// login responses never reveal which one failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrConflict signals a lost compare-and-swap race (status transition,
	// capacity-bounded write). The operation did not happen; callers may retry
	// once against fresh state.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrProviderUnavailable wraps venue-search provider failures and timeouts.
	ErrProviderUnavailable = errors.New("venue provider unavailable")
)

// InvalidTransitionError reports a rejected event status transition together
// with the guard that failed, so callers can surface a precise message.
type InvalidTransitionError struct {
	From  EventStatus
	To    EventStatus
	Guard string
}

func (e *InvalidTransitionError) Error() string {
	if e.Guard == "" {
		return fmt.Sprintf("cannot transition event from %s to %s", e.From, e.To)
	}
	return fmt.Sprintf("cannot transition event from %s to %s: %s", e.From, e.To, e.Guard)
}
