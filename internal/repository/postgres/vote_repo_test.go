package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"meetspot/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestVoteRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	vote := func() *domain.Vote {
		return &domain.Vote{
			EventID:  "ev-1",
			OptionID: "opt-1",
			VoterID:  "user-2",
			Value:    1,
			CastAt:   now,
		}
	}

	t.Run("first vote inserts", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`INSERT INTO votes`).
			WithArgs("ev-1", "opt-1", "user-2", 1, nil, now, domain.StatusVoting, domain.ParticipantAccepted).
			WillReturnRows(sqlmock.NewRows([]string{"id", "inserted"}).AddRow("vote-1", true))

		v := vote()
		replaced, err := NewVoteRepository(db).Upsert(ctx, v)
		require.NoError(t, err)
		require.False(t, replaced)
		require.Equal(t, "vote-1", v.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second vote replaces", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`INSERT INTO votes`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "inserted"}).AddRow("vote-1", false))

		replaced, err := NewVoteRepository(db).Upsert(ctx, vote())
		require.NoError(t, err)
		require.True(t, replaced)
	})

	t.Run("gate failure surfaces as not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`INSERT INTO votes`).
			WillReturnError(sql.ErrNoRows)

		_, err = NewVoteRepository(db).Upsert(ctx, vote())
		require.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestVoteRepository_GetByEventAndVoter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, event_id, option_id, voter_id`).
		WithArgs("ev-1", "user-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "option_id", "voter_id", "value", "comment", "cast_at"}).
			AddRow("vote-1", "ev-1", "opt-1", "user-2", -1, "too far for most of us", now))

	v, err := NewVoteRepository(db).GetByEventAndVoter(ctx, "ev-1", "user-2")
	require.NoError(t, err)
	require.Equal(t, -1, v.Value)
	require.NotNil(t, v.Comment)
	require.Equal(t, "too far for most of us", *v.Comment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRepository_TallyByEventID(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT option_id, COUNT\(\*\), COALESCE\(SUM\(value\), 0\)`).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"option_id", "count", "sum", "positive"}).
			AddRow("opt-1", 3, 1, 2).
			AddRow("opt-2", 2, 2, 2))

	tallies, err := NewVoteRepository(db).TallyByEventID(ctx, "ev-1")
	require.NoError(t, err)
	require.Len(t, tallies, 2)
	require.Equal(t, 3, tallies[0].Votes)
	require.Equal(t, 1, tallies[0].Sum)
	require.Equal(t, 2, tallies[0].Positive)
	require.NoError(t, mock.ExpectationsWereMet())
}
