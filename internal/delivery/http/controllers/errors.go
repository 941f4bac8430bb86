package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"meetspot/internal/delivery/http/helpers"
	"meetspot/internal/domain"
)

// writeServiceError maps domain sentinels to HTTP status codes and writes the
// JSON error envelope. Unrecognized errors are logged and become 500s.
func writeServiceError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "invalid credentials")
	case errors.Is(err, domain.ErrForbidden):
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUserNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, err.Error())
	case errors.Is(err, domain.ErrCapacityExceeded):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeCapacityFull, err.Error())
	case errors.Is(err, domain.ErrAlreadyInvited),
		errors.Is(err, domain.ErrAlreadyWaitlisted),
		errors.Is(err, domain.ErrNotNextInLine),
		errors.Is(err, domain.ErrWaitlistEmpty),
		errors.Is(err, domain.ErrVotingClosed),
		errors.Is(err, domain.ErrDuplicateOption),
		errors.Is(err, domain.ErrWinnerTie),
		errors.Is(err, domain.ErrNoVotesCast),
		errors.Is(err, domain.ErrConflict):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
	case errors.Is(err, domain.ErrProviderUnavailable):
		helpers.WriteJSONError(w, http.StatusBadGateway, helpers.ErrCodeUnavailable, err.Error())
	default:
		var transitionErr *domain.InvalidTransitionError
		if errors.As(err, &transitionErr) {
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, transitionErr.Error())
			return
		}
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
	}
}
