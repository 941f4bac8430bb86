package domain

import (
	"context"
	"time"
)

// Vote is one participant's weighted endorsement of one candidate option.
// A voter has at most one active vote per event; a later cast for a
// different option replaces the earlier one.
// swagger:model Vote
type Vote struct {
	ID       string    `json:"id"`
	EventID  string    `json:"event_id"`
	OptionID string    `json:"option_id"`
	VoterID  string    `json:"voter_id"`
	Value    int       `json:"value"`
	Comment  *string   `json:"comment,omitempty"`
	CastAt   time.Time `json:"cast_at"`
}

// OptionTally aggregates votes for one option.
type OptionTally struct {
	OptionID string `json:"option_id"`
	Votes    int    `json:"votes"`
	Sum      int    `json:"sum"`
	Positive int    `json:"positive"`
}

// VotePolicy selects how the winning option is ranked.
type VotePolicy string

const (
	// PolicySum ranks by the sum of signed vote values.
	PolicySum VotePolicy = "sum"
	// PolicyPositive ranks by the count of strictly positive votes.
	PolicyPositive VotePolicy = "positive"
)

// VoteRepository defines storage operations for votes. Upsert is keyed by
// (event_id, voter_id) so concurrent casts by the same voter serialize to a
// single surviving row with the later value.
type VoteRepository interface {
	// Upsert inserts or replaces the voter's vote. The write is gated in SQL
	// on the event being in voting status, the voter being an accepted
	// participant, and the option belonging to the event; zero rows means
	// one of those gates failed and the caller classifies which.
	// replaced is true when an earlier vote was overwritten.
	Upsert(ctx context.Context, v *Vote) (replaced bool, err error)
	GetByEventAndVoter(ctx context.Context, eventID, voterID string) (*Vote, error)
	TallyByEventID(ctx context.Context, eventID string) ([]*OptionTally, error)
}

// CastVoteResult reports the stored vote and whether it replaced a prior one.
type CastVoteResult struct {
	Vote     *Vote `json:"vote"`
	Replaced bool  `json:"replaced"`
}

// WinnerResult pairs the winning option with its tally.
type WinnerResult struct {
	Option *EventPlaceOption `json:"option"`
	Tally  *OptionTally      `json:"tally"`
}

// VoteService defines voting operations. None of them transition event
// state; finalization is an explicit organizer act on the EventService.
type VoteService interface {
	CastVote(ctx context.Context, eventID, optionID, voterID string, value int, comment *string) (*CastVoteResult, error)
	Statistics(ctx context.Context, eventID, callerID string) ([]*OptionTally, error)
	CalculateWinningVenue(ctx context.Context, eventID string) (*WinnerResult, error)
}
