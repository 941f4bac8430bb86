package postgres

import (
	"context"
	"database/sql"
	"errors"

	"meetspot/internal/domain"
)

type voteRepository struct {
	DB *sql.DB
}

func NewVoteRepository(db *sql.DB) domain.VoteRepository {
	return &voteRepository{
		DB: db,
	}
}

func (r *voteRepository) Upsert(ctx context.Context, v *domain.Vote) (bool, error) {
	// Eligibility is checked inside the INSERT ... SELECT so the vote, the
	// event status, the voter's acceptance, and the option's membership are
	// evaluated under one snapshot. Zero rows means a gate failed; the caller
	// re-reads to classify. xmax = 0 distinguishes a fresh insert from an
	// overwrite through the conflict path.
	query := `
		INSERT INTO votes (event_id, option_id, voter_id, value, comment, cast_at)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE EXISTS (
			SELECT 1 FROM events WHERE id = $1 AND status = $7
		) AND EXISTS (
			SELECT 1 FROM event_participants WHERE event_id = $1 AND user_id = $3 AND status = $8
		) AND EXISTS (
			SELECT 1 FROM event_place_options WHERE event_id = $1 AND id = $2
		)
		ON CONFLICT (event_id, voter_id)
		DO UPDATE SET option_id = EXCLUDED.option_id, value = EXCLUDED.value,
			comment = EXCLUDED.comment, cast_at = EXCLUDED.cast_at
		RETURNING id, (xmax = 0) AS inserted
	`
	var inserted bool
	err := r.DB.QueryRowContext(ctx, query,
		v.EventID, v.OptionID, v.VoterID, v.Value, v.Comment, v.CastAt,
		domain.StatusVoting, domain.ParticipantAccepted,
	).Scan(&v.ID, &inserted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, domain.ErrNotFound
		}
		return false, err
	}
	return !inserted, nil
}

func (r *voteRepository) GetByEventAndVoter(ctx context.Context, eventID, voterID string) (*domain.Vote, error) {
	query := `
		SELECT id, event_id, option_id, voter_id, value, comment, cast_at
		FROM votes
		WHERE event_id = $1 AND voter_id = $2
	`
	v := &domain.Vote{}
	var commentNull sql.NullString
	err := r.DB.QueryRowContext(ctx, query, eventID, voterID).
		Scan(&v.ID, &v.EventID, &v.OptionID, &v.VoterID, &v.Value, &commentNull, &v.CastAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if commentNull.Valid {
		v.Comment = &commentNull.String
	}
	return v, nil
}

func (r *voteRepository) TallyByEventID(ctx context.Context, eventID string) ([]*domain.OptionTally, error) {
	query := `
		SELECT option_id, COUNT(*), COALESCE(SUM(value), 0),
			COUNT(*) FILTER (WHERE value > 0)
		FROM votes
		WHERE event_id = $1
		GROUP BY option_id
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tallies := make([]*domain.OptionTally, 0)
	for rows.Next() {
		t := &domain.OptionTally{}
		if err := rows.Scan(&t.OptionID, &t.Votes, &t.Sum, &t.Positive); err != nil {
			return nil, err
		}
		tallies = append(tallies, t)
	}
	return tallies, rows.Err()
}
