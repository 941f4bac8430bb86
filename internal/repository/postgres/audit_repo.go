package postgres

import (
	"context"
	"database/sql"

	"meetspot/internal/domain"
)

type auditLogRepository struct {
	DB *sql.DB
}

func NewAuditLogRepository(db *sql.DB) domain.AuditLogRepository {
	return &auditLogRepository{
		DB: db,
	}
}

func (r *auditLogRepository) Append(ctx context.Context, entry *domain.EventAuditEntry) error {
	query := `
		INSERT INTO event_audit_log (event_id, old_status, new_status, reason, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		entry.EventID, entry.OldStatus, entry.NewStatus, entry.Reason, entry.ActorID, entry.CreatedAt,
	).Scan(&entry.ID)
}
