package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"meetspot/internal/domain"
)

// Vote values are a signed weight: -1 against, 0 neutral, +1 for.
const (
	minVoteValue = -1
	maxVoteValue = 1
)

// ParseVotePolicy maps a config string to a VotePolicy, defaulting to sum.
func ParseVotePolicy(s string) domain.VotePolicy {
	if domain.VotePolicy(s) == domain.PolicyPositive {
		return domain.PolicyPositive
	}
	return domain.PolicySum
}

type voteService struct {
	eventRepo       domain.EventRepository
	participantRepo domain.ParticipantRepository
	optionRepo      domain.PlaceOptionRepository
	voteRepo        domain.VoteRepository
	votePolicy      domain.VotePolicy
	contextTimeout  time.Duration
}

func NewVoteService(
	eventRepo domain.EventRepository,
	participantRepo domain.ParticipantRepository,
	optionRepo domain.PlaceOptionRepository,
	voteRepo domain.VoteRepository,
	votePolicy domain.VotePolicy,
	timeout time.Duration,
) domain.VoteService {
	return &voteService{
		eventRepo:       eventRepo,
		participantRepo: participantRepo,
		optionRepo:      optionRepo,
		voteRepo:        voteRepo,
		votePolicy:      votePolicy,
		contextTimeout:  timeout,
	}
}

func (s *voteService) CastVote(ctx context.Context, eventID, optionID, voterID string, value int, comment *string) (*domain.CastVoteResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if eventID == "" || optionID == "" || voterID == "" {
		return nil, fmt.Errorf("event, option and voter are required: %w", domain.ErrInvalidInput)
	}
	if value < minVoteValue || value > maxVoteValue {
		return nil, fmt.Errorf("vote value must be between %d and %d: %w", minVoteValue, maxVoteValue, domain.ErrInvalidInput)
	}

	vote := &domain.Vote{
		EventID:  eventID,
		OptionID: optionID,
		VoterID:  voterID,
		Value:    value,
		Comment:  comment,
		CastAt:   time.Now(),
	}
	replaced, err := s.voteRepo.Upsert(ctx, vote)
	if err != nil {
		// The upsert gates eligibility in the same statement. On a zero-row
		// write, re-read to tell the voter which gate failed.
		if errors.Is(err, domain.ErrNotFound) {
			return nil, s.classifyRejectedVote(ctx, eventID, optionID, voterID)
		}
		return nil, fmt.Errorf("cast vote: %w", err)
	}
	return &domain.CastVoteResult{Vote: vote, Replaced: replaced}, nil
}

// classifyRejectedVote re-reads the gate inputs after a rejected upsert. The
// re-read is advisory; when everything looks eligible now, the vote lost a
// race and the caller may retry.
func (s *voteService) classifyRejectedVote(ctx context.Context, eventID, optionID, voterID string) error {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get event: %w", err)
	}
	if event.Status != domain.StatusVoting {
		return fmt.Errorf("event is %s: %w", event.Status, domain.ErrVotingClosed)
	}
	p, err := s.participantRepo.GetByEventAndUser(ctx, eventID, voterID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrForbidden
		}
		return fmt.Errorf("get participant: %w", err)
	}
	if p.Status != domain.ParticipantAccepted {
		return domain.ErrForbidden
	}
	if _, err := s.optionRepo.GetByEventAndID(ctx, eventID, optionID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("get option: %w", err)
	}
	return domain.ErrConflict
}

func (s *voteService) Statistics(ctx context.Context, eventID, callerID string) ([]*domain.OptionTally, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.OrganizerID != callerID {
		if _, err := s.participantRepo.GetByEventAndUser(ctx, eventID, callerID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrForbidden
			}
			return nil, fmt.Errorf("get participant: %w", err)
		}
	}

	options, err := s.optionRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	tallies, err := s.voteRepo.TallyByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("tally votes: %w", err)
	}

	// Every option appears in the statistics, voteless ones as zero rows.
	byOption := make(map[string]*domain.OptionTally, len(tallies))
	for _, t := range tallies {
		byOption[t.OptionID] = t
	}
	out := make([]*domain.OptionTally, 0, len(options))
	for _, o := range options {
		if t, ok := byOption[o.ID]; ok {
			out = append(out, t)
		} else {
			out = append(out, &domain.OptionTally{OptionID: o.ID})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Sum != out[j].Sum {
			return out[i].Sum > out[j].Sum
		}
		return out[i].Votes > out[j].Votes
	})
	return out, nil
}

func (s *voteService) CalculateWinningVenue(ctx context.Context, eventID string) (*domain.WinnerResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	options, err := s.optionRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	tallies, err := s.voteRepo.TallyByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("tally votes: %w", err)
	}
	return pickWinner(options, tallies, s.votePolicy)
}

// metric extracts the ranking value a policy assigns to one tally.
func metric(t *domain.OptionTally, policy domain.VotePolicy) int {
	if policy == domain.PolicyPositive {
		return t.Positive
	}
	return t.Sum
}

// pickWinner ranks the options by the vote metric, breaking ties first by
// venue score, then by earliest-created option. The result is fully
// determined by its inputs; an unresolvable tie is an error, never a random
// choice.
func pickWinner(options []*domain.EventPlaceOption, tallies []*domain.OptionTally, policy domain.VotePolicy) (*domain.WinnerResult, error) {
	if len(options) == 0 {
		return nil, fmt.Errorf("event has no venue options: %w", domain.ErrNotFound)
	}

	byOption := make(map[string]*domain.OptionTally, len(tallies))
	var totalVotes int
	for _, t := range tallies {
		byOption[t.OptionID] = t
		totalVotes += t.Votes
	}
	if totalVotes == 0 {
		return nil, domain.ErrNoVotesCast
	}

	tallyFor := func(o *domain.EventPlaceOption) *domain.OptionTally {
		if t, ok := byOption[o.ID]; ok {
			return t
		}
		return &domain.OptionTally{OptionID: o.ID}
	}

	ranked := make([]*domain.EventPlaceOption, len(options))
	copy(ranked, options)
	sort.SliceStable(ranked, func(i, j int) bool {
		mi, mj := metric(tallyFor(ranked[i]), policy), metric(tallyFor(ranked[j]), policy)
		if mi != mj {
			return mi > mj
		}
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].CreatedAt.Before(ranked[j].CreatedAt)
	})

	winner := ranked[0]
	if len(ranked) > 1 {
		second := ranked[1]
		if metric(tallyFor(winner), policy) == metric(tallyFor(second), policy) &&
			winner.Score == second.Score &&
			winner.CreatedAt.Equal(second.CreatedAt) {
			return nil, fmt.Errorf("options %s and %s: %w", winner.Name, second.Name, domain.ErrWinnerTie)
		}
	}
	return &domain.WinnerResult{Option: winner, Tally: tallyFor(winner)}, nil
}
