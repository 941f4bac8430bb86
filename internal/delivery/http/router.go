package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"meetspot/internal/delivery/http/controllers"
	"meetspot/internal/delivery/http/middleware"
	"meetspot/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes.
// Every event route requires a Bearer token; the auth routes issue them.
func NewRouter(
	logger *slog.Logger,
	verifier domain.TokenVerifier,
	authController *controllers.AuthController,
	eventController *controllers.EventController,
	participantController *controllers.ParticipantController,
	optionController *controllers.OptionController,
	voteController *controllers.VoteController,
) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)

	// Auth
	mux.HandleFunc("POST /auth/signup", authController.SignUp)
	mux.HandleFunc("POST /auth/login", authController.Login)

	// Events
	mux.HandleFunc("POST /events", auth(eventController.CreateEvent))
	mux.HandleFunc("GET /events/me", auth(eventController.ListMyEvents))
	mux.HandleFunc("GET /events/{eventID}", auth(eventController.GetEvent))
	mux.HandleFunc("POST /events/{eventID}/advance", auth(eventController.AdvanceEvent))
	mux.HandleFunc("POST /events/{eventID}/finalize", auth(eventController.FinalizeEvent))
	mux.HandleFunc("PATCH /events/{eventID}/schedule", auth(eventController.RescheduleEvent))

	// Participants and waitlist
	mux.HandleFunc("POST /events/join", auth(participantController.JoinByCode))
	mux.HandleFunc("POST /events/{eventID}/participants", auth(participantController.InviteParticipants))
	mux.HandleFunc("GET /events/{eventID}/participants", auth(participantController.ListParticipants))
	mux.HandleFunc("POST /events/{eventID}/participants/response", auth(participantController.Respond))
	mux.HandleFunc("POST /events/{eventID}/participants/join", auth(participantController.Join))
	mux.HandleFunc("DELETE /events/{eventID}/participants/{userID}", auth(participantController.RemoveParticipant))
	mux.HandleFunc("GET /events/{eventID}/waitlist", auth(participantController.ListWaitlist))
	mux.HandleFunc("POST /events/{eventID}/waitlist/promote", auth(participantController.Promote))

	// Venue options
	mux.HandleFunc("GET /events/{eventID}/options", auth(optionController.ListOptions))
	mux.HandleFunc("POST /events/{eventID}/options", auth(optionController.AddOption))
	mux.HandleFunc("POST /events/{eventID}/options/recommend", auth(optionController.RecommendVenues))

	// Votes
	mux.HandleFunc("PUT /events/{eventID}/votes", auth(voteController.CastVote))
	mux.HandleFunc("GET /events/{eventID}/votes/statistics", auth(voteController.Statistics))
	mux.HandleFunc("GET /events/{eventID}/votes/winner", auth(voteController.Winner))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
