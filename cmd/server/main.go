package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rishi-narain/ad-tester/internal/config"
	"github.com/rishi-narain/ad-tester/internal/handler"
	"github.com/rishi-narain/ad-tester/internal/metrics"
	"github.com/rishi-narain/ad-tester/internal/persona"
	"github.com/rishi-narain/ad-tester/internal/providers"
	"github.com/rishi-narain/ad-tester/internal/repository"
	"github.com/rishi-narain/ad-tester/internal/server"
	"github.com/rishi-narain/ad-tester/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err) // Should not happen in development
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	logger.Info("Starting Ad Tester...")

	// Load configuration
	cfgPath := config.Path()
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	gin.SetMode(cfg.Server.Mode)

	m := metrics.Default()

	// Model providers (failover across the configured list)
	provider, err := providers.New(cfg.Providers, cfg.MaxFailuresBeforeSwitch, m, logger)
	if err != nil {
		logger.Fatal("Failed to initialize model provider", zap.Error(err))
	}
	defer provider.Close()

	// Database connection
	db, err := repository.NewDB(cfg.Database.Type, cfg.Database.Path, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := repository.MigrateDB(db, cfg.Database.Type, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defaults, err := persona.LoadFile(cfg.PersonasFile)
	if err != nil {
		logger.Fatal("Failed to load default personas", zap.Error(err))
	}
	personaRepo, err := repository.NewPersonaRepository(ctx, db, defaults, logger)
	if err != nil {
		logger.Fatal("Failed to initialize persona catalog", zap.Error(err))
	}

	// Initialize repositories
	evaluationRepo := repository.NewEvaluationRepository(db, logger)
	feedbackRepo := repository.NewFeedbackRepository(db, logger)

	settings := config.NewSettingsStore(cfg, cfgPath, logger)
	auth := service.NewAdminAuth(cfg.Admin.Token, cfg.Admin.JWTSecret, cfg.Admin.TokenTTL, logger)
	if !auth.Enabled() {
		logger.Warn("Admin token not configured, admin API is disabled")
	}

	evaluator := service.NewEvaluator(personaRepo, provider, settings, evaluationRepo, m, service.EvaluatorConfig{
		RequestTimeout: cfg.LLM.RequestTimeout,
		MaxConcurrency: cfg.LLM.MaxConcurrency,
		IncludeQuote:   cfg.LLM.IncludeQuote,
		CacheSize:      cfg.Cache.Size,
		CacheTTL:       cfg.Cache.TTL,
	}, logger)

	h := handler.NewHandler(handler.Deps{
		Evaluator:   evaluator,
		Personas:    personaRepo,
		Feedback:    feedbackRepo,
		Evaluations: evaluationRepo,
		Settings:    settings,
		Auth:        auth,
		Provider:    provider,
	}, logger)

	srv := server.NewServer(h, server.Options{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Gatherer:       prometheus.DefaultGatherer,
	}, logger)

	logger.Info("Ad Tester is running",
		zap.String("port", cfg.Server.Port),
		zap.Any("model", provider.GetModelInfo()))

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
	logger.Info("Application stopped.")
}
