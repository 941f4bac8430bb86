package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"os"

	_ "github.com/lib/pq"

	"meetspot/config"
	_ "meetspot/docs"
	"meetspot/internal/adapters/auth"
	"meetspot/internal/adapters/email"
	"meetspot/internal/adapters/places"
	httpdelivery "meetspot/internal/delivery/http"
	"meetspot/internal/delivery/http/controllers"
	"meetspot/internal/delivery/http/middleware"
	"meetspot/internal/repository/postgres"
	"meetspot/internal/services"
)

const bcryptCost = 10

// @title MeetSpot API
// @version 1.0
// @description Event planning backend: lifecycle, participants, venue recommendations, and voting.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "err", err)
		os.Exit(1)
	}

	eventRepo := postgres.NewEventRepository(db)
	participantRepo := postgres.NewParticipantRepository(db)
	waitlistRepo := postgres.NewWaitlistRepository(db)
	optionRepo := postgres.NewPlaceOptionRepository(db)
	voteRepo := postgres.NewVoteRepository(db)
	preferenceRepo := postgres.NewPreferenceRepository(db)
	userRepo := postgres.NewUserRepository(db)
	auditRepo := postgres.NewAuditLogRepository(db)

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFromAddress,
		FromName:    cfg.EmailFromName,
		SES: email.SESConfig{
			Region:          cfg.SESRegion,
			AccessKeyID:     cfg.SESAccessKeyID,
			SecretAccessKey: cfg.SESSecretKey,
		},
	})
	if err != nil {
		logger.Error("failed to create mailer", "err", err)
		os.Exit(1)
	}
	notifier := email.NewNotifier(mailer, email.NewTemplateRenderer())
	searcher := places.NewHTTPSearcher(nil, cfg.PlacesBaseURL, cfg.PlacesAPIKey)
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)
	hasher := auth.NewBcryptHasher(bcryptCost)
	issuer := auth.NewJWTIssuer(cfg.JWTSecret)

	votePolicy := services.ParseVotePolicy(cfg.VotePolicy)
	authService := services.NewAuthService(userRepo, hasher, issuer, cfg.TokenExpiry, cfg.ContextTimeout)
	eventService := services.NewEventService(eventRepo, participantRepo, optionRepo, voteRepo, userRepo, notifier, votePolicy, cfg.ContextTimeout)
	participantService := services.NewParticipantService(eventRepo, participantRepo, waitlistRepo, userRepo, auditRepo, notifier, cfg.ContextTimeout)
	preferenceService := services.NewPreferenceService(eventRepo, participantRepo, preferenceRepo, cfg.ContextTimeout)
	recommendService := services.NewRecommendService(eventRepo, participantRepo, optionRepo, preferenceService, searcher, cfg.RecommendLimit, cfg.SearchTimeout, cfg.ContextTimeout)
	voteService := services.NewVoteService(eventRepo, participantRepo, optionRepo, voteRepo, votePolicy, cfg.ContextTimeout)

	mux := httpdelivery.NewRouter(
		logger,
		verifier,
		controllers.NewAuthController(logger, authService),
		controllers.NewEventController(logger, eventService),
		controllers.NewParticipantController(logger, participantService),
		controllers.NewOptionController(logger, recommendService),
		controllers.NewVoteController(logger, voteService),
	)

	handler := middleware.CORS(cfg.AllowedOrigins, middleware.LoggingMiddleware(logger, mux))

	addr := ":" + cfg.Port
	logger.Info("server starting", "addr", addr, "env", cfg.Environment)
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
