package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/credflow/credflow-backend/internal/intake"
	"github.com/credflow/credflow-backend/internal/review/catalog"
	"github.com/credflow/credflow-backend/internal/review/events"
	"github.com/credflow/credflow-backend/internal/review/handler"
	"github.com/credflow/credflow-backend/internal/review/repository"
	"github.com/credflow/credflow-backend/internal/review/service"
	"github.com/credflow/credflow-backend/pkg/authtoken"
	"github.com/credflow/credflow-backend/pkg/config"
	"github.com/credflow/credflow-backend/pkg/database"
	"github.com/credflow/credflow-backend/pkg/httputil"
	"github.com/credflow/credflow-backend/pkg/logger"
	"github.com/credflow/credflow-backend/pkg/messaging"
)

func main() {
	// Load configuration with fail-fast validation
	cfg, err := config.LoadWithValidation("review-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("review-service", cfg.Server.Environment)
	log.Info().Msg("starting Review Service")

	// Load the rule catalog. Any inconsistency is fatal here, before a
	// single document is accepted.
	var cat *catalog.Catalog
	if cfg.Review.RulesPath != "" {
		cat, err = catalog.LoadFile(cfg.Review.RulesPath)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load rule catalog")
	}
	log.Info().Int("fields", cat.Len()).Msg("rule catalog loaded")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publishers
	reviewEvents, err := events.NewPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create review event publisher")
	}
	intakeEvents, err := messaging.NewPublisher(rmq, messaging.ExchangeIntakeEvents, "review-service", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create intake event publisher")
	}

	// Initialize repository, intake gates, service, handler
	reviewRepo := repository.NewReviewRepository(db)
	gates := intake.NewGatekeeper(&cfg.Intake, intakeEvents, log)
	reviewService := service.NewService(cat, cfg.Review.ConfidenceThreshold, reviewRepo, reviewEvents, log)
	reviewService.SetBatchWorkers(cfg.Review.MaxBatchWorkers)
	reviewHandler := handler.NewHandler(reviewService, gates, log)

	// Token verification for the API surface
	tokens := authtoken.NewManager(&cfg.JWT)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(httputil.Auth(tokens)) // bearer auth with /health exception

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "review-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		reviewHandler.Routes(r)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
