package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vundelavamsi/finance-tracker-backend/internal/api"
	"github.com/vundelavamsi/finance-tracker-backend/internal/api/handlers"
	"github.com/vundelavamsi/finance-tracker-backend/internal/ingest"
	"github.com/vundelavamsi/finance-tracker-backend/internal/parser"
	"github.com/vundelavamsi/finance-tracker-backend/internal/repository"
	"github.com/vundelavamsi/finance-tracker-backend/internal/service"
	"github.com/vundelavamsi/finance-tracker-backend/internal/telegram"
	"github.com/vundelavamsi/finance-tracker-backend/pkg/auth"
	"github.com/vundelavamsi/finance-tracker-backend/pkg/config"
	"github.com/vundelavamsi/finance-tracker-backend/pkg/logger"
	"github.com/vundelavamsi/finance-tracker-backend/pkg/postgres"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting finance tracker service")

	// Initialize database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db, appLogger); err != nil {
		appLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize repositories
	tenantRepo := repository.NewTenantRepository(db, appLogger)
	txRepo := repository.NewTransactionRepository(db, appLogger)
	attemptRepo := repository.NewAttemptRepository(db, appLogger)
	loginTokenRepo := repository.NewLoginTokenRepository(db, appLogger)

	// Initialize extraction backend
	var backend parser.Parser
	switch cfg.Parser.Backend {
	case "gigachat":
		gigachatParser, err := parser.NewGigaChatParser(ctx, &cfg.GigaChat, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize GigaChat parser", zap.Error(err))
		}
		defer gigachatParser.Close()
		backend = gigachatParser
	default:
		geminiParser, err := parser.NewGeminiParser(ctx, &cfg.Gemini, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize Gemini parser", zap.Error(err))
		}
		backend = geminiParser
	}
	extractor := parser.NewWithTextCommands(parser.NewRetrying(backend, cfg.Parser.MaxAttempts, appLogger))

	// Initialize chat transport
	tgClient := telegram.NewClient(&cfg.Telegram, appLogger)

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)

	// Initialize services
	ingestService := ingest.NewService(tenantRepo, txRepo, attemptRepo, tgClient, extractor, ingest.NewValidator(), appLogger)
	authService := service.NewAuthService(tenantRepo, loginTokenRepo, tgClient, jwtManager, cfg.JWT.LoginCodeTTL, appLogger)
	txService := service.NewTransactionService(txRepo, appLogger)

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(ingestService, appLogger)
	authHandler := handlers.NewAuthHandler(authService, appLogger)
	txHandler := handlers.NewTransactionHandler(txService, appLogger)

	// Setup router
	app := api.SetupRouter(webhookHandler, authHandler, txHandler, jwtManager, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
