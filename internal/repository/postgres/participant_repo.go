package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"meetspot/internal/domain"
)

type participantRepository struct {
	DB *sql.DB
}

func NewParticipantRepository(db *sql.DB) domain.ParticipantRepository {
	return &participantRepository{
		DB: db,
	}
}

const participantColumns = `id, event_id, user_id, status, invited_by, responded_at, created_at, updated_at`

func scanParticipant(row interface{ Scan(...interface{}) error }) (*domain.EventParticipant, error) {
	p := &domain.EventParticipant{}
	var respondedNull sql.NullTime
	err := row.Scan(&p.ID, &p.EventID, &p.UserID, &p.Status, &p.InvitedBy, &respondedNull, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if respondedNull.Valid {
		p.RespondedAt = &respondedNull.Time
	}
	return p, nil
}

func (r *participantRepository) Create(ctx context.Context, p *domain.EventParticipant) error {
	query := `
		INSERT INTO event_participants (event_id, user_id, status, invited_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		p.EventID, p.UserID, p.Status, p.InvitedBy, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrAlreadyInvited
		}
		return err
	}
	return nil
}

func (r *participantRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.EventParticipant, error) {
	query := `SELECT ` + participantColumns + ` FROM event_participants WHERE event_id = $1 AND user_id = $2`
	p, err := scanParticipant(r.DB.QueryRowContext(ctx, query, eventID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *participantRepository) ListByEventID(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.EventParticipant, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_participants WHERE event_id = $1`, eventID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + participantColumns + `
		FROM event_participants
		WHERE event_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	participants := make([]*domain.EventParticipant, 0)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, 0, err
		}
		participants = append(participants, p)
	}
	return participants, total, rows.Err()
}

func (r *participantRepository) ListByEventAndStatuses(ctx context.Context, eventID string, statuses []domain.ParticipantStatus) ([]*domain.EventParticipant, error) {
	strs := make([]string, len(statuses))
	for i, s := range statuses {
		strs[i] = string(s)
	}
	query := `
		SELECT ` + participantColumns + `
		FROM event_participants
		WHERE event_id = $1 AND status = ANY($2)
		ORDER BY created_at ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID, pq.Array(strs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	participants := make([]*domain.EventParticipant, 0)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *participantRepository) CountAccepted(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_participants WHERE event_id = $1 AND status = $2`,
		eventID, domain.ParticipantAccepted,
	).Scan(&n)
	return n, err
}

func (r *participantRepository) UpdateStatus(ctx context.Context, eventID, userID string, from, to domain.ParticipantStatus, at time.Time) error {
	query := `
		UPDATE event_participants
		SET status = $1, responded_at = $2, updated_at = $2
		WHERE event_id = $3 AND user_id = $4 AND status = $5
	`
	result, err := r.DB.ExecContext(ctx, query, to, at, eventID, userID, from)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		var exists bool
		if err := r.DB.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM event_participants WHERE event_id = $1 AND user_id = $2)`,
			eventID, userID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}
	return nil
}

// acceptedBelowCapacity is the capacity predicate shared by the accept and
// join paths. It locks the event row so concurrent admissions serialize, then
// compares the accepted count against max_attendees. NULL max_attendees means
// unbounded.
func acceptedBelowCapacity(ctx context.Context, tx *sql.Tx, eventID string) (bool, error) {
	var maxAttendees sql.NullInt64
	err := tx.QueryRowContext(ctx,
		`SELECT max_attendees FROM events WHERE id = $1 FOR UPDATE`, eventID,
	).Scan(&maxAttendees)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, domain.ErrNotFound
		}
		return false, err
	}
	if !maxAttendees.Valid {
		return true, nil
	}
	var accepted int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_participants WHERE event_id = $1 AND status = $2`,
		eventID, domain.ParticipantAccepted,
	).Scan(&accepted)
	if err != nil {
		return false, err
	}
	return int64(accepted) < maxAttendees.Int64, nil
}

func (r *participantRepository) AcceptIfCapacity(ctx context.Context, eventID, userID string, at time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ok, err := acceptedBelowCapacity(ctx, tx, eventID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrCapacityExceeded
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE event_participants
		SET status = $1, responded_at = $2, updated_at = $2
		WHERE event_id = $3 AND user_id = $4 AND status = $5
	`, domain.ParticipantAccepted, at, eventID, userID, domain.ParticipantInvited)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit()
}

func (r *participantRepository) InsertAcceptedIfCapacity(ctx context.Context, p *domain.EventParticipant) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ok, err := acceptedBelowCapacity(ctx, tx, p.EventID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrCapacityExceeded
	}

	query := `
		INSERT INTO event_participants (event_id, user_id, status, invited_by, responded_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, query,
		p.EventID, p.UserID, p.Status, p.InvitedBy, p.RespondedAt, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrAlreadyInvited
		}
		return err
	}
	return tx.Commit()
}
