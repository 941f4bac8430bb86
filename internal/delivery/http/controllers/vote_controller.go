package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"meetspot/internal/delivery/http/helpers"
	"meetspot/internal/delivery/http/middleware"
	"meetspot/internal/domain"
)

type VoteController struct {
	Logger  *slog.Logger
	Service domain.VoteService
}

func NewVoteController(logger *slog.Logger, svc domain.VoteService) *VoteController {
	return &VoteController{
		Logger:  logger,
		Service: svc,
	}
}

// CastVoteRequest is the request body for PUT /events/{eventID}/votes.
type CastVoteRequest struct {
	OptionID string  `json:"option_id"`
	Value    int     `json:"value"`
	Comment  *string `json:"comment"`
}

// Validate implements Validator.
func (v CastVoteRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(v.OptionID) == "" {
		errs = append(errs, "option_id is required")
	}
	if v.Value < -1 || v.Value > 1 {
		errs = append(errs, "value must be -1, 0, or 1")
	}
	return errs
}

// CastVoteSuccessResponse is the success response envelope for PUT /events/{eventID}/votes (200).
type CastVoteSuccessResponse struct {
	Data  *domain.CastVoteResult `json:"data"`
	Error *helpers.APIError      `json:"error"`
}

// CastVote godoc
// @Summary Cast or replace a vote
// @Description Records the authenticated voter's vote for a venue option. A voter holds one vote per event; voting again replaces the previous vote. Only accepted participants can vote, and only while the event is in voting.
// @Tags votes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body CastVoteRequest true "Vote"
// @Success 200 {object} controllers.CastVoteSuccessResponse "data contains the stored vote and whether it replaced a prior one"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not an accepted participant)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (event or option)"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (voting closed)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/votes [put]
func (c *VoteController) CastVote(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req CastVoteRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	result, err := c.Service.CastVote(r.Context(), eventID, req.OptionID, userID, req.Value, req.Comment)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}

// VoteStatisticsSuccessResponse is the success response envelope for GET /events/{eventID}/votes/statistics (200).
type VoteStatisticsSuccessResponse struct {
	Data  []*domain.OptionTally `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

// Statistics godoc
// @Summary Vote statistics per option
// @Description Returns per-option vote counts, sums, and positive counts, including zero rows for options nobody voted on. The organizer and participants can view.
// @Tags votes
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.VoteStatisticsSuccessResponse "data is an array of tallies"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/votes/statistics [get]
func (c *VoteController) Statistics(w http.ResponseWriter, r *http.Request) {
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
	tallies, err := c.Service.Statistics(r.Context(), eventID, userID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	if tallies == nil {
		tallies = []*domain.OptionTally{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, tallies)
}

// WinnerSuccessResponse is the success response envelope for GET /events/{eventID}/votes/winner (200).
type WinnerSuccessResponse struct {
	Data  *domain.WinnerResult `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// Winner godoc
// @Summary Compute the winning option
// @Description Returns the option that currently wins under the configured vote policy, with ties broken by score and then earliest creation. A full tie or an event with no votes returns 409. Computing the winner does not finalize the event.
// @Tags votes
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.WinnerSuccessResponse "data contains the winning option and its tally"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (no options)"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (tie or no votes)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/votes/winner [get]
func (c *VoteController) Winner(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	if _, ok := middleware.UserIDFromContext(r.Context()); !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	winner, err := c.Service.CalculateWinningVenue(r.Context(), eventID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, winner)
}
