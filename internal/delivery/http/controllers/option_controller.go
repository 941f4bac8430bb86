package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"meetspot/internal/delivery/http/helpers"
	"meetspot/internal/delivery/http/middleware"
	"meetspot/internal/domain"
)

type OptionController struct {
	Logger  *slog.Logger
	Service domain.RecommendService
}

func NewOptionController(logger *slog.Logger, svc domain.RecommendService) *OptionController {
	return &OptionController{
		Logger:  logger,
		Service: svc,
	}
}

// RecommendVenuesSuccessResponse is the success response envelope for POST /events/{eventID}/options/recommend (200).
type RecommendVenuesSuccessResponse struct {
	Data  []*domain.EventPlaceOption `json:"data"`
	Error *helpers.APIError          `json:"error"`
}

// RecommendVenues godoc
// @Summary Generate venue recommendations
// @Description Aggregates participant preferences, searches the place provider around the group centroid, scores candidates, and stores the top-ranked options. Only the organizer can recommend, and only while options are open (planning or inviting). Requires at least one participant location.
// @Tags options
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.RecommendVenuesSuccessResponse "data is the ranked list of stored options"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (no participant locations)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not organizer)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (options locked)"
// @Failure 502 {object} helpers.APIResponse "error.code: provider_unavailable"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/options/recommend [post]
func (c *OptionController) RecommendVenues(w http.ResponseWriter, r *http.Request) {
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
	options, err := c.Service.RecommendVenues(r.Context(), eventID, userID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	if options == nil {
		options = []*domain.EventPlaceOption{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, options)
}

// AddOptionRequest is the request body for POST /events/{eventID}/options.
type AddOptionRequest struct {
	PlaceID     string   `json:"place_id"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Categories  []string `json:"categories"`
	PriceLevel  int      `json:"price_level"`
	Rating      float64  `json:"rating"`
	RatingCount int      `json:"rating_count"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Attributes  []string `json:"attributes"`
	Origin      string   `json:"origin"`
}

// Validate implements Validator.
func (a AddOptionRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(a.Name) == "" {
		errs = append(errs, "name is required")
	}
	if a.PriceLevel < 0 || a.PriceLevel > 4 {
		errs = append(errs, "price_level must be between 0 and 4")
	}
	if a.Lat < -90 || a.Lat > 90 {
		errs = append(errs, "lat must be between -90 and 90")
	}
	if a.Lng < -180 || a.Lng > 180 {
		errs = append(errs, "lng must be between -180 and 180")
	}
	switch a.Origin {
	case "", string(domain.OriginManual), string(domain.OriginConverted):
	default:
		errs = append(errs, "origin must be manual or converted")
	}
	return errs
}

// AddOptionSuccessResponse is the success response envelope for POST /events/{eventID}/options (201).
type AddOptionSuccessResponse struct {
	Data  *domain.EventPlaceOption `json:"data"`
	Error *helpers.APIError        `json:"error"`
}

// AddOption godoc
// @Summary Add a venue option manually
// @Description Adds an organizer-supplied venue through the same scoring path as recommendations. Constraint violations lower the score instead of excluding the venue. Origin defaults to manual.
// @Tags options
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body AddOptionRequest true "Venue to add"
// @Success 201 {object} controllers.AddOptionSuccessResponse "data contains the stored option"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not organizer)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (duplicate option or options locked)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/options [post]
func (c *OptionController) AddOption(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req AddOptionRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	origin := domain.OptionOrigin(req.Origin)
	if req.Origin == "" {
		origin = domain.OriginManual
	}
	venue := &domain.Venue{
		PlaceID:     req.PlaceID,
		Name:        req.Name,
		Address:     req.Address,
		Categories:  req.Categories,
		PriceLevel:  req.PriceLevel,
		Rating:      req.Rating,
		RatingCount: req.RatingCount,
		Lat:         req.Lat,
		Lng:         req.Lng,
		Attributes:  req.Attributes,
	}
	option, err := c.Service.AddOption(r.Context(), eventID, userID, venue, origin)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, option)
}

// ListOptions godoc
// @Summary List venue options for an event
// @Description Returns stored options ranked by score. The organizer and participants can list.
// @Tags options
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.RecommendVenuesSuccessResponse "data is an array of options"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/options [get]
func (c *OptionController) ListOptions(w http.ResponseWriter, r *http.Request) {
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
	options, err := c.Service.ListOptions(r.Context(), eventID, userID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	if options == nil {
		options = []*domain.EventPlaceOption{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, options)
}
