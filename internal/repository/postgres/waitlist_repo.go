package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"meetspot/internal/domain"
)

type waitlistRepository struct {
	DB *sql.DB
}

func NewWaitlistRepository(db *sql.DB) domain.WaitlistRepository {
	return &waitlistRepository{
		DB: db,
	}
}

const waitlistColumns = `id, event_id, user_id, priority, notes, joined_at`

func scanWaitlistEntry(row interface{ Scan(...interface{}) error }) (*domain.WaitlistEntry, error) {
	w := &domain.WaitlistEntry{}
	var notesNull sql.NullString
	err := row.Scan(&w.ID, &w.EventID, &w.UserID, &w.Priority, &notesNull, &w.JoinedAt)
	if err != nil {
		return nil, err
	}
	if notesNull.Valid {
		w.Notes = &notesNull.String
	}
	return w, nil
}

func (r *waitlistRepository) Add(ctx context.Context, w *domain.WaitlistEntry) error {
	// The priority subquery and the insert run as one statement, so two
	// concurrent adds cannot pick the same next priority without one of them
	// tripping the (event_id, priority) unique constraint.
	query := `
		INSERT INTO event_waitlist (event_id, user_id, priority, notes, joined_at)
		VALUES ($1, $2,
			CASE WHEN $3 > 0 THEN $3
				ELSE (SELECT COALESCE(MAX(priority), 0) + 1 FROM event_waitlist WHERE event_id = $1)
			END,
			$4, $5)
		RETURNING id, priority
	`
	err := r.DB.QueryRowContext(ctx, query, w.EventID, w.UserID, w.Priority, w.Notes, w.JoinedAt).
		Scan(&w.ID, &w.Priority)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if pqErr.Constraint == "event_waitlist_event_id_priority_key" {
				return domain.ErrConflict
			}
			return domain.ErrAlreadyWaitlisted
		}
		return err
	}
	return nil
}

func (r *waitlistRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + ` FROM event_waitlist WHERE event_id = $1 ORDER BY priority ASC`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]*domain.WaitlistEntry, 0)
	for rows.Next() {
		w, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, w)
	}
	return entries, rows.Err()
}

func (r *waitlistRepository) NextInLine(ctx context.Context, eventID string) (*domain.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + ` FROM event_waitlist WHERE event_id = $1 ORDER BY priority ASC LIMIT 1`
	w, err := scanWaitlistEntry(r.DB.QueryRowContext(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return w, nil
}

func (r *waitlistRepository) Promote(ctx context.Context, eventID, userID string, at time.Time) (*domain.EventParticipant, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ok, err := acceptedBelowCapacity(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrCapacityExceeded
	}

	// The waitlist row must still exist; a concurrent promotion of the same
	// user deletes it first.
	result, err := tx.ExecContext(ctx,
		`DELETE FROM event_waitlist WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return nil, err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, domain.ErrNotFound
	}

	// A promoted user may already hold an invited or declined row; either way
	// they end up accepted.
	query := `
		INSERT INTO event_participants (event_id, user_id, status, invited_by, responded_at, created_at, updated_at)
		VALUES ($1, $2, $3, $2, $4, $4, $4)
		ON CONFLICT (event_id, user_id)
		DO UPDATE SET status = $3, responded_at = $4, updated_at = $4
		RETURNING ` + participantColumns
	p, err := scanParticipant(tx.QueryRowContext(ctx, query, eventID, userID, domain.ParticipantAccepted, at))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}
