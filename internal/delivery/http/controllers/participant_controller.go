package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"meetspot/internal/delivery/http/helpers"
	"meetspot/internal/delivery/http/middleware"
	"meetspot/internal/domain"
)

type ParticipantController struct {
	Logger  *slog.Logger
	Service domain.ParticipantService
}

func NewParticipantController(logger *slog.Logger, svc domain.ParticipantService) *ParticipantController {
	return &ParticipantController{
		Logger:  logger,
		Service: svc,
	}
}

// InviteParticipantsRequest is the request body for POST /events/{eventID}/participants.
// Invitees may be addressed by account id, by email, or a mix of both.
type InviteParticipantsRequest struct {
	UserIDs []string `json:"user_ids"`
	Emails  []string `json:"emails"`
}

// Validate implements Validator.
func (i InviteParticipantsRequest) Validate() []string {
	var errs []string
	if len(i.UserIDs) == 0 && len(i.Emails) == 0 {
		errs = append(errs, "user_ids or emails is required")
	}
	for _, id := range i.UserIDs {
		if strings.TrimSpace(id) == "" {
			errs = append(errs, "user_ids cannot contain empty values")
			break
		}
	}
	for _, email := range i.Emails {
		if strings.TrimSpace(email) == "" {
			errs = append(errs, "emails cannot contain empty values")
			break
		}
	}
	return errs
}

// InviteParticipantsSuccessResponse is the success response envelope for POST /events/{eventID}/participants (200).
type InviteParticipantsSuccessResponse struct {
	Data  *domain.InviteResult `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// InviteParticipants godoc
// @Summary Invite users to an event
// @Description Invites a batch of users by id or email. Already-invited users, unknown email addresses, and the organizer are skipped, not errors. Only the organizer can invite, and only while the event is in planning or inviting.
// @Tags participants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body InviteParticipantsRequest true "User IDs and/or emails to invite"
// @Success 200 {object} controllers.InviteParticipantsSuccessResponse "data contains invited and skipped"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not organizer)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (invitations closed)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/participants [post]
func (c *ParticipantController) InviteParticipants(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req InviteParticipantsRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	result, err := c.Service.Invite(r.Context(), eventID, userID, req.UserIDs, req.Emails)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}

// RespondRequest is the request body for POST /events/{eventID}/participants/response.
type RespondRequest struct {
	Accept *bool `json:"accept"`
}

// Validate implements Validator.
func (rr RespondRequest) Validate() []string {
	if rr.Accept == nil {
		return []string{"accept is required"}
	}
	return nil
}

// RespondSuccessResponse is the success response envelope for POST /events/{eventID}/participants/response (200).
type RespondSuccessResponse struct {
	Data  *domain.EventParticipant `json:"data"`
	Error *helpers.APIError        `json:"error"`
}

// Respond godoc
// @Summary Accept or decline an invitation
// @Description The authenticated invitee accepts or declines. Accepting a full event returns 409 capacity_full and leaves the invitation open.
// @Tags participants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body RespondRequest true "accept true or false"
// @Success 200 {object} controllers.RespondSuccessResponse "data contains the updated participant"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not invited)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: capacity_full or conflict (already responded)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/participants/response [post]
func (c *ParticipantController) Respond(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req RespondRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	participant, err := c.Service.Respond(r.Context(), eventID, userID, *req.Accept)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, participant)
}

// JoinSuccessResponse is the success response envelope for POST /events/{eventID}/participants/join (200).
// data contains either participant (admitted) or waitlisted (event full).
type JoinSuccessResponse struct {
	Data  *domain.JoinResult `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// Join godoc
// @Summary Join an event without an invitation
// @Description The authenticated user requests to join. With a free seat they are admitted immediately; on a full capacity-bound event they are appended to the waitlist instead.
// @Tags participants
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.JoinSuccessResponse "data contains participant or waitlisted"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already participating or waitlisted)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/participants/join [post]
func (c *ParticipantController) Join(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	result, err := c.Service.RequestToJoin(r.Context(), eventID, userID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}

// JoinByCodeRequest is the request body for POST /events/join.
type JoinByCodeRequest struct {
	Code string `json:"code"`
}

// Validate implements Validator.
func (j JoinByCodeRequest) Validate() []string {
	if strings.TrimSpace(j.Code) == "" {
		return []string{"code is required"}
	}
	return nil
}

// JoinByCode godoc
// @Summary Join an event with its join code
// @Description The authenticated user joins using the code from an invitation email. Same admission rules as joining by event id: a free seat admits immediately, a full capacity-bound event waitlists.
// @Tags participants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body JoinByCodeRequest true "Join code"
// @Success 200 {object} controllers.JoinSuccessResponse "data contains participant or waitlisted"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (unknown code)"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already participating or waitlisted)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/join [post]
func (c *ParticipantController) JoinByCode(w http.ResponseWriter, r *http.Request) {
	var req JoinByCodeRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	result, err := c.Service.JoinByCode(r.Context(), strings.TrimSpace(req.Code), userID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}

// RemoveParticipantResponse is the data payload for DELETE /events/{eventID}/participants/{userID} (200).
// Promoted is set when the freed seat admitted the next waitlisted user.
type RemoveParticipantResponse struct {
	Status   string                   `json:"status"`
	Promoted *domain.EventParticipant `json:"promoted,omitempty"`
}

// RemoveParticipantSuccessResponse is the success response envelope for DELETE /events/{eventID}/participants/{userID} (200).
type RemoveParticipantSuccessResponse struct {
	Data  RemoveParticipantResponse `json:"data"`
	Error *helpers.APIError         `json:"error"`
}

// RemoveParticipant godoc
// @Summary Remove a participant
// @Description Marks the participant removed. If that freed a seat on a capacity-bound event, the next waitlisted user is promoted and returned. Only the organizer can remove.
// @Tags participants
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param userID path string true "User ID (UUID) of the participant to remove"
// @Success 200 {object} controllers.RemoveParticipantSuccessResponse "data contains status and optional promoted participant"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not organizer)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/participants/{userID} [delete]
func (c *ParticipantController) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	userID := r.PathValue("userID")
	if eventID == "" || userID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID or userID")
		return
	}
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	promoted, err := c.Service.Remove(r.Context(), eventID, userID, callerID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, RemoveParticipantResponse{Status: "removed", Promoted: promoted})
}

// PromoteRequest is the request body for POST /events/{eventID}/waitlist/promote.
// With user_id omitted the next in line is promoted.
type PromoteRequest struct {
	UserID *string `json:"user_id"`
}

// Validate implements Validator.
func (p PromoteRequest) Validate() []string {
	if p.UserID != nil && strings.TrimSpace(*p.UserID) == "" {
		return []string{"user_id cannot be empty"}
	}
	return nil
}

// Promote godoc
// @Summary Promote a waitlisted user
// @Description Admits a waitlisted user to the event. With user_id omitted the next in line is promoted. A user who is not next in line can only be promoted by the organizer.
// @Tags participants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body PromoteRequest true "User to promote (optional)"
// @Success 200 {object} controllers.RespondSuccessResponse "data contains the promoted participant"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: capacity_full or conflict (empty waitlist, not next in line)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/waitlist/promote [post]
func (c *ParticipantController) Promote(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req PromoteRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	participant, err := c.Service.Promote(r.Context(), eventID, req.UserID, callerID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, participant)
}

// ListParticipantsResponse is the data payload for GET /events/{eventID}/participants (200).
type ListParticipantsResponse struct {
	Items      []*domain.EventParticipant `json:"items"`
	Pagination helpers.PaginationMeta     `json:"pagination"`
}

// ListParticipantsSuccessResponse is the success response envelope for GET /events/{eventID}/participants (200).
type ListParticipantsSuccessResponse struct {
	Data  ListParticipantsResponse `json:"data"`
	Error *helpers.APIError        `json:"error"`
}

// ListParticipants godoc
// @Summary List participants of an event
// @Description Returns a paginated list of participants. The organizer and participants can list. Use page and page_size query params.
// @Tags participants
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListParticipantsSuccessResponse "data contains items and pagination"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/participants [get]
func (c *ParticipantController) ListParticipants(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	params := helpers.ParsePagination(r)
	list, total, err := c.Service.ListParticipants(r.Context(), eventID, callerID, params)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	if list == nil {
		list = []*domain.EventParticipant{}
	}
	meta := helpers.NewPaginationMeta(params.Page, params.PageSize, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListParticipantsResponse{Items: list, Pagination: meta})
}

// ListWaitlistSuccessResponse is the success response envelope for GET /events/{eventID}/waitlist (200).
type ListWaitlistSuccessResponse struct {
	Data  []*domain.WaitlistEntry `json:"data"`
	Error *helpers.APIError       `json:"error"`
}

// ListWaitlist godoc
// @Summary List the waitlist of an event
// @Description Returns waitlist entries in priority order. Only the organizer can list.
// @Tags participants
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.ListWaitlistSuccessResponse "data is an array of waitlist entries"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not organizer)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/waitlist [get]
func (c *ParticipantController) ListWaitlist(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	entries, err := c.Service.ListWaitlist(r.Context(), eventID, callerID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	if entries == nil {
		entries = []*domain.WaitlistEntry{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, entries)
}
