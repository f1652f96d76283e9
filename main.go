package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"erasure-portal/pkg/api"
	"erasure-portal/pkg/clients/backend"
	"erasure-portal/pkg/clients/relay"
	"erasure-portal/pkg/clients/twilio"
	"erasure-portal/pkg/clients/webhook"
	"erasure-portal/pkg/config"
	"erasure-portal/pkg/dispatch"
	"erasure-portal/pkg/events"
	"erasure-portal/pkg/middleware"
	"erasure-portal/pkg/models"
	"erasure-portal/pkg/services"
	"erasure-portal/pkg/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file loaded")
	}

	// Initialize configuration
	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal().Err(err).Msg("error loading configuration")
	}

	logger := newLogger(cfg)
	log.Logger = logger

	ctx := context.Background()
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// Initialize API clients
	backendClient := backend.NewClient(backend.Options{
		BaseURL:           cfg.BackendBaseURL,
		APIToken:          cfg.BackendAPIToken,
		ContactCollection: cfg.ContactCollection,
		OrdersCollection:  cfg.OrdersCollection,
		HTTPClient:        httpClient,
		Logger:            logger,
	})

	targets := []dispatch.Target{
		dispatch.NewTarget("backend", dispatch.Critical, backendClient.CreateSubmission),
	}
	if cfg.RelayURL != "" {
		relayClient := relay.NewClient(relay.Options{
			URL:        cfg.RelayURL,
			WebhookURL: cfg.RelayWebhookURL,
			Template:   cfg.RelayTemplate,
			CC:         cfg.RelayCC,
			Subject:    cfg.RelaySubject,
			HTTPClient: httpClient,
			Logger:     logger,
		})
		targets = append(targets, dispatch.NewTarget("email-relay", dispatch.BestEffort, relayClient.Forward))
	}
	if cfg.TwilioAccountSID != "" && cfg.TwilioAlertTo != "" {
		twilioClient := twilio.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom, cfg.TwilioAlertTo, logger)
		targets = append(targets, dispatch.NewTarget("sms-alert", dispatch.BestEffort,
			func(_ context.Context, payload models.Payload) error {
				return twilioClient.SendAlert(payload)
			}))
	}
	if cfg.AnalyticsWebhookURL != "" {
		webhookClient := webhook.NewClient(cfg.AnalyticsWebhookURL, cfg.AnalyticsAPIKey, httpClient)
		targets = append(targets, dispatch.NewTarget("analytics-webhook", dispatch.FireAndForget, webhookClient.Notify))
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			logger.Warn().Err(err).Msg("kafka publisher disabled")
		} else {
			defer publisher.Close()
			targets = append(targets, dispatch.NewTarget("kafka:"+publisher.Topic(), dispatch.FireAndForget, publisher.Publish))
		}
	}

	identifiers, err := store.Open(ctx, store.Options{
		Driver:      cfg.StoreDriver,
		RedisURL:    cfg.RedisURL,
		DatabaseURL: cfg.DatabaseURL,
		TTL:         cfg.IdentifierTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("error opening identifier store")
	}
	defer identifiers.Close()

	// Initialize services
	submissionService := services.NewSubmissionService(services.SubmissionOptions{
		Targets:  targets,
		Source:   cfg.SourceTag,
		Location: cfg.Location(),
		Logger:   logger,
	})
	resolver := services.NewResolver(backendClient, identifiers, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	handlers := api.NewHandlers(submissionService, resolver, api.Options{
		NotificationDuration: cfg.NotificationDuration,
		RedirectDelay:        cfg.RedirectDelay,
		FallbackURL:          cfg.FallbackURL,
		Location:             cfg.Location(),
		SecureCookies:        cfg.SecureCookies,
	}, logger)
	handlers.Register(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("port", cfg.Port).Int("targets", len(targets)).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("error starting server")
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error shutting down server")
	}
	logger.Info().Msg("server stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	var logger zerolog.Logger
	if cfg.LogPretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Str("service", "erasure-portal").Logger()
}
