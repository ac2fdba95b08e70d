package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"student-result-system/internal/api"
	"student-result-system/internal/auth"
	"student-result-system/internal/config"
	"student-result-system/internal/db"
	"student-result-system/internal/dispatch"
	"student-result-system/internal/ingest"
	"student-result-system/internal/logger"
	"student-result-system/internal/mail"
	"student-result-system/internal/observability"
	"student-result-system/internal/ratelimit"
	"student-result-system/internal/report"
	"student-result-system/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting API server")

	flush, err := observability.InitSentry(cfg.Observability.SentryDSN, cfg.App.Env, cfg.App.Version)
	if err != nil {
		log.Warn().Err(err).Msg("Sentry disabled")
	}
	defer flush()

	// Initialize database
	database, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	if err := db.Migrate(context.Background(), database, cfg.Database.Driver); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	// Initialize repository
	repo := db.NewRepository(database)

	// Login limiter
	var limiter ratelimit.Limiter = ratelimit.NopLimiter{}
	if cfg.Redis.Enabled {
		redisClient, err := ratelimit.NewRedisClient(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.Auth.LoginAttempts.Burst, cfg.Auth.LoginAttempts.PerMinute)
	}

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	authSvc := auth.NewService(repo, tokens, limiter, cfg.Auth.BcryptCost)
	if err := authSvc.EnsureDefaultAdmin(context.Background(), cfg.Auth.DefaultAdmin); err != nil {
		log.Fatal().Err(err).Msg("Failed to create default admin")
	}

	// Upload staging
	uploads, err := storage.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}

	renderer, err := report.NewRenderer(cfg.Mail.FromName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load email templates")
	}
	senders := mail.WithBreaker(mail.NewSMTPFactory(cfg.Mail), cfg.Mail.Breaker)
	creds := mail.NewCredentialStore(cfg.Mail.CredentialsFile, mail.Credentials{
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
	})
	if !creds.Get().Configured() {
		log.Warn().Msg("Email not configured, set it in Settings before sending results")
	}

	// Initialize API handler
	handler := api.NewHandler(
		repo,
		authSvc,
		ingest.NewService(repo, uploads),
		dispatch.NewService(repo, renderer, senders),
		creds,
		cfg,
	)

	// Setup Gin router
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(handler, cfg.Server.AllowedOrigins)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Shutdown server
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
