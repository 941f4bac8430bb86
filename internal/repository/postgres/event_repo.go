package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"meetspot/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

const eventColumns = `id, organizer_id, title, description, join_code, status, scheduled_at, timezone,
		max_attendees, expected_attendees, final_option_id, created_at, updated_at`

func scanEvent(row interface{ Scan(...interface{}) error }) (*domain.Event, error) {
	e := &domain.Event{}
	var descNull sql.NullString
	var scheduledNull sql.NullTime
	var maxNull sql.NullInt64
	var finalNull sql.NullString
	err := row.Scan(
		&e.ID, &e.OrganizerID, &e.Title, &descNull, &e.JoinCode, &e.Status, &scheduledNull,
		&e.Timezone, &maxNull, &e.ExpectedAttendees, &finalNull, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if descNull.Valid {
		e.Description = &descNull.String
	}
	if scheduledNull.Valid {
		e.ScheduledAt = &scheduledNull.Time
	}
	if maxNull.Valid {
		m := int(maxNull.Int64)
		e.MaxAttendees = &m
	}
	if finalNull.Valid {
		e.FinalOptionID = &finalNull.String
	}
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (organizer_id, title, description, join_code, status, scheduled_at, timezone,
			max_attendees, expected_attendees, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		e.OrganizerID, e.Title, e.Description, e.JoinCode, e.Status, e.ScheduledAt, e.Timezone,
		e.MaxAttendees, e.ExpectedAttendees, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) GetByJoinCode(ctx context.Context, joinCode string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE join_code = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, joinCode))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) ListByOrganizerID(ctx context.Context, organizerID string) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE organizer_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// appendAudit writes the audit row inside the caller's transaction.
func appendAudit(ctx context.Context, tx *sql.Tx, entry *domain.EventAuditEntry) error {
	query := `
		INSERT INTO event_audit_log (event_id, old_status, new_status, reason, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return tx.QueryRowContext(ctx, query,
		entry.EventID, entry.OldStatus, entry.NewStatus, entry.Reason, entry.ActorID, entry.CreatedAt,
	).Scan(&entry.ID)
}

func (r *eventRepository) TransitionStatus(ctx context.Context, eventID string, from, to domain.EventStatus, entry *domain.EventAuditEntry) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// The WHERE status = $3 re-check makes this a compare-and-swap: a
	// concurrent transition moves the row off `from` and we write nothing.
	result, err := tx.ExecContext(ctx,
		`UPDATE events SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		to, entry.CreatedAt, eventID, from,
	)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}
	if err := appendAudit(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *eventRepository) Finalize(ctx context.Context, eventID, optionID string, from domain.EventStatus, entry *domain.EventAuditEntry) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE events SET status = $1, final_option_id = $2, updated_at = $3 WHERE id = $4 AND status = $5`,
		domain.StatusConfirmed, optionID, entry.CreatedAt, eventID, from,
	)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}
	if err := appendAudit(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *eventRepository) UpdateSchedule(ctx context.Context, eventID string, scheduledAt time.Time, timezone string, entry *domain.EventAuditEntry) (*domain.Event, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `
		UPDATE events SET scheduled_at = $1, timezone = $2, updated_at = $3
		WHERE id = $4
		RETURNING ` + eventColumns
	e, err := scanEvent(tx.QueryRowContext(ctx, query, scheduledAt, timezone, entry.CreatedAt, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := appendAudit(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return e, nil
}
