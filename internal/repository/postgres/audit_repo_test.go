package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"meetspot/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestAuditLogRepository_Append(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`INSERT INTO event_audit_log`).
			WithArgs("ev-1", domain.StatusInviting, domain.StatusInviting, "removed participant user-2", "user-1", now).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("audit-1"))

		entry := &domain.EventAuditEntry{
			EventID:   "ev-1",
			OldStatus: domain.StatusInviting,
			NewStatus: domain.StatusInviting,
			Reason:    "removed participant user-2",
			ActorID:   "user-1",
			CreatedAt: now,
		}
		err = NewAuditLogRepository(db).Append(ctx, entry)
		require.NoError(t, err)
		require.Equal(t, "audit-1", entry.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`INSERT INTO event_audit_log`).
			WillReturnError(sql.ErrConnDone)

		err = NewAuditLogRepository(db).Append(ctx, &domain.EventAuditEntry{EventID: "ev-1", CreatedAt: now})
		require.Error(t, err)
	})
}
