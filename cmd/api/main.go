package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/janjeevan/telehealth/cmd/mainconfig"
	"github.com/janjeevan/telehealth/internal/api/router"
	"github.com/janjeevan/telehealth/internal/appointments"
	appconfig "github.com/janjeevan/telehealth/internal/config"
	"github.com/janjeevan/telehealth/internal/followups"
	httpmiddleware "github.com/janjeevan/telehealth/internal/http/middleware"
	"github.com/janjeevan/telehealth/internal/inventory"
	"github.com/janjeevan/telehealth/internal/notify"
	"github.com/janjeevan/telehealth/internal/observability/metrics"
	"github.com/janjeevan/telehealth/internal/prescriptions"
	"github.com/janjeevan/telehealth/internal/realtime"
	"github.com/janjeevan/telehealth/internal/triage"
	"github.com/janjeevan/telehealth/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting janjeevan telehealth API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	workflowMetrics := metrics.NewWorkflowMetrics(nil)

	// AWS config is loaded lazily: only the Bedrock classifier and the SES
	// sender need it.
	var awsCfg *aws.Config
	loadAWS := func() *aws.Config {
		if awsCfg != nil {
			return awsCfg
		}
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			return nil
		}
		awsCfg = &loaded
		return awsCfg
	}

	// Optional Redis-backed verdict cache
	var verdictCache *triage.VerdictCache
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		verdictCache = triage.NewVerdictCache(redis.NewClient(opts), cfg.TriageCacheTTL, logger)
		logger.Info("triage verdict cache enabled", "addr", cfg.RedisAddr)
	}

	// Symptom classifier: Gemini first (matching the field deployment),
	// Bedrock as the alternative, deterministic fallback otherwise.
	var classifier triage.Classifier
	switch {
	case (cfg.AIProvider == "gemini" || cfg.AIProvider == "auto") && cfg.GeminiAPIKey != "":
		gemini, err := triage.NewGeminiClassifier(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to init gemini classifier", "error", err)
		} else {
			classifier = gemini
			logger.Info("triage classifier ready", "provider", "gemini", "model", cfg.GeminiModelID)
		}
	case (cfg.AIProvider == "bedrock" || cfg.AIProvider == "auto") && cfg.BedrockModelID != "":
		if loaded := loadAWS(); loaded != nil {
			bedrock, err := triage.NewBedrockClassifier(bedrockruntime.NewFromConfig(*loaded), cfg.BedrockModelID)
			if err != nil {
				logger.Error("failed to init bedrock classifier", "error", err)
			} else {
				classifier = bedrock
				logger.Info("triage classifier ready", "provider", "bedrock", "model", cfg.BedrockModelID)
			}
		}
	}
	if classifier == nil {
		logger.Warn("no AI classifier configured, using keyword fallback")
	}

	// Urgent-case email sender
	var emailSender notify.EmailSender
	switch {
	case (cfg.EmailProvider == "sendgrid" || cfg.EmailProvider == "auto") && cfg.SendGridAPIKey != "":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			emailSender = sender
			logger.Info("email sender ready", "provider", "sendgrid")
		}
	case (cfg.EmailProvider == "ses" || cfg.EmailProvider == "auto") && cfg.SESFromEmail != "":
		if loaded := loadAWS(); loaded != nil {
			if sender := notify.NewSESSender(sesv2.NewFromConfig(*loaded), notify.SESConfig{
				FromEmail: cfg.SESFromEmail,
				FromName:  cfg.SendGridFromName,
			}, logger); sender != nil {
				emailSender = sender
				logger.Info("email sender ready", "provider", "ses")
			}
		}
	}
	if emailSender == nil {
		emailSender = notify.NewStubEmailSender(logger)
		logger.Warn("no email provider configured, urgent alerts are log-only")
	}
	notifyService := notify.NewService(emailSender, cfg.OnCallDoctorEmail, logger)

	// Realtime hub for dashboard event streams
	hub := realtime.NewHub(logger)
	go hub.Run(ctx)

	// Initialize repositories and services
	appointmentsRepo := appointments.NewPostgresRepository(pool)
	prescriptionsRepo := prescriptions.NewPostgresRepository(pool)
	inventoryRepo := inventory.NewPostgresRepository(pool)
	followUpsRepo := followups.NewPostgresRepository(pool)
	triageService := triage.NewService(classifier, verdictCache, workflowMetrics, logger)

	// Initialize handlers
	triageHandler := triage.NewHandler(triageService, logger)
	appointmentsHandler := appointments.NewHandler(appointmentsRepo, notifyService, hub, workflowMetrics, logger)
	prescriptionsHandler := prescriptions.NewHandler(prescriptionsRepo, workflowMetrics, logger)
	inventoryHandler := inventory.NewHandler(inventoryRepo, workflowMetrics, logger)
	followUpsHandler := followups.NewHandler(followUpsRepo, logger)

	// Setup router
	routerCfg := &router.Config{
		Logger:               logger,
		TriageHandler:        triageHandler,
		AppointmentsHandler:  appointmentsHandler,
		PrescriptionsHandler: prescriptionsHandler,
		InventoryHandler:     inventoryHandler,
		FollowUpsHandler:     followUpsHandler,
		Hub:                  hub,
		MetricsHandler:       promhttp.Handler(),
		JWTSecret:            cfg.JWTSecret,
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
		TriageRateLimiter:    httpmiddleware.NewRateLimiter(cfg.TriageRateLimit, cfg.TriageRateBurst),
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
