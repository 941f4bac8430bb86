package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"meetspot/internal/delivery/http/helpers"
	"meetspot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeParticipantService implements domain.ParticipantService for handler tests.
type fakeParticipantService struct {
	inviteErr    error
	inviteResult *domain.InviteResult
	lastUserIDs  []string
	lastEmails   []string

	joinErr      error
	joinResult   *domain.JoinResult
	lastJoinCode string
}

func (f *fakeParticipantService) Invite(_ context.Context, _, _ string, userIDs, emails []string) (*domain.InviteResult, error) {
	f.lastUserIDs = userIDs
	f.lastEmails = emails
	return f.inviteResult, f.inviteErr
}

func (f *fakeParticipantService) Respond(_ context.Context, _, _ string, _ bool) (*domain.EventParticipant, error) {
	return nil, nil
}

func (f *fakeParticipantService) RequestToJoin(_ context.Context, _, _ string) (*domain.JoinResult, error) {
	return f.joinResult, f.joinErr
}

func (f *fakeParticipantService) JoinByCode(_ context.Context, joinCode, _ string) (*domain.JoinResult, error) {
	f.lastJoinCode = joinCode
	return f.joinResult, f.joinErr
}

func (f *fakeParticipantService) Remove(_ context.Context, _, _, _ string) (*domain.EventParticipant, error) {
	return nil, nil
}

func (f *fakeParticipantService) Promote(_ context.Context, _ string, _ *string, _ string) (*domain.EventParticipant, error) {
	return nil, nil
}

func (f *fakeParticipantService) ListParticipants(_ context.Context, _, _ string, _ domain.PaginationParams) ([]*domain.EventParticipant, int, error) {
	return nil, 0, nil
}

func (f *fakeParticipantService) ListWaitlist(_ context.Context, _, _ string) ([]*domain.WaitlistEntry, error) {
	return nil, nil
}

func TestParticipantController_InviteParticipants(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		svc         *fakeParticipantService
		wantStatus  int
		wantCode    string
		wantUserIDs []string
		wantEmails  []string
	}{
		{
			name: "invite by ids",
			body: `{"user_ids": ["user-2", "user-3"]}`,
			svc: &fakeParticipantService{inviteResult: &domain.InviteResult{
				Invited: []*domain.EventParticipant{{ID: "part-1"}}, Skipped: []string{},
			}},
			wantStatus:  http.StatusOK,
			wantUserIDs: []string{"user-2", "user-3"},
		},
		{
			name: "invite by emails",
			body: `{"emails": ["ana@example.com"]}`,
			svc: &fakeParticipantService{inviteResult: &domain.InviteResult{
				Invited: []*domain.EventParticipant{{ID: "part-1"}}, Skipped: []string{},
			}},
			wantStatus: http.StatusOK,
			wantEmails: []string{"ana@example.com"},
		},
		{
			name:       "neither ids nor emails",
			body:       `{}`,
			svc:        &fakeParticipantService{},
			wantStatus: http.StatusBadRequest,
			wantCode:   helpers.ErrCodeBadRequest,
		},
		{
			name:       "blank email rejected",
			body:       `{"emails": [" "]}`,
			svc:        &fakeParticipantService{},
			wantStatus: http.StatusBadRequest,
			wantCode:   helpers.ErrCodeBadRequest,
		},
		{
			name:       "non-organizer forbidden",
			body:       `{"user_ids": ["user-2"]}`,
			svc:        &fakeParticipantService{inviteErr: domain.ErrForbidden},
			wantStatus: http.StatusForbidden,
			wantCode:   helpers.ErrCodeForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewParticipantController(testLogger, tt.svc)
			rr := httptest.NewRecorder()
			req := authedRequest(http.MethodPost, "http://test/events/ev-1/participants", []byte(tt.body), "org-1")
			req.SetPathValue("eventID", "ev-1")

			c.InviteParticipants(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantCode != "" {
				envelope := decodeEnvelope(t, rr)
				require.NotNil(t, envelope.Error)
				assert.Equal(t, tt.wantCode, envelope.Error.Code)
				return
			}
			assert.Equal(t, tt.wantUserIDs, tt.svc.lastUserIDs)
			assert.Equal(t, tt.wantEmails, tt.svc.lastEmails)
		})
	}
}

func TestParticipantController_JoinByCode(t *testing.T) {
	t.Run("code is trimmed and passed through", func(t *testing.T) {
		svc := &fakeParticipantService{joinResult: &domain.JoinResult{
			Participant: &domain.EventParticipant{ID: "part-1", Status: domain.ParticipantAccepted},
		}}
		c := NewParticipantController(testLogger, svc)
		rr := httptest.NewRecorder()
		req := authedRequest(http.MethodPost, "http://test/events/join", []byte(`{"code": " abc123 "}`), "user-2")

		c.JoinByCode(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "abc123", svc.lastJoinCode)
	})

	t.Run("empty code rejected", func(t *testing.T) {
		c := NewParticipantController(testLogger, &fakeParticipantService{})
		rr := httptest.NewRecorder()
		req := authedRequest(http.MethodPost, "http://test/events/join", []byte(`{"code": ""}`), "user-2")

		c.JoinByCode(rr, req)

		require.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown code maps to not found", func(t *testing.T) {
		c := NewParticipantController(testLogger, &fakeParticipantService{joinErr: domain.ErrNotFound})
		rr := httptest.NewRecorder()
		req := authedRequest(http.MethodPost, "http://test/events/join", []byte(`{"code": "nope99"}`), "user-2")

		c.JoinByCode(rr, req)

		require.Equal(t, http.StatusNotFound, rr.Code)
		envelope := decodeEnvelope(t, rr)
		require.NotNil(t, envelope.Error)
		assert.Equal(t, helpers.ErrCodeNotFound, envelope.Error.Code)
	})
}
