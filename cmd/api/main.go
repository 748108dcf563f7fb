package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ashmitsharp/wallet-insights-api/internal/config"
	"github.com/ashmitsharp/wallet-insights-api/internal/database"
	"github.com/ashmitsharp/wallet-insights-api/internal/handlers"
	"github.com/ashmitsharp/wallet-insights-api/internal/logger"
	"github.com/ashmitsharp/wallet-insights-api/internal/middleware"
	"github.com/ashmitsharp/wallet-insights-api/internal/services"
	"github.com/ashmitsharp/wallet-insights-api/internal/utils"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Configure(cfg.LogLevel, cfg.LogFormat)
	if envErr != nil {
		log.Debug().Msg(".env file not found, using system environment variables")
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("Connected to database")

	if cfg.DBAutoMigrate {
		if err := database.EnsureSchema(ctx, pool); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	store := database.NewTransactionStore(pool)

	// Gemini for summaries, Q&A, OCR and embeddings
	gemini, err := services.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiEmbeddingModel)
	if err != nil {
		return fmt.Errorf("init gemini: %w", err)
	}

	// Optional integrations stay nil when not configured
	var index services.VectorIndex
	if cfg.VectorSyncEnabled() {
		pc, err := services.NewPineconeIndex(ctx, cfg.PineconeAPIKey, cfg.PineconeIndexName, cfg.PineconeNamespace)
		if err != nil {
			return fmt.Errorf("init pinecone: %w", err)
		}
		defer pc.Close()
		index = pc
		log.Info().Str("index", cfg.PineconeIndexName).Msg("Vector sync enabled")
	}
	vectors := services.NewVectorStore(gemini, index, log)

	var archive services.ReceiptArchive
	if cfg.ReceiptArchiveEnabled() {
		storage, err := services.NewStorageService(ctx, cfg.S3Bucket, cfg.S3Region, cfg.AWSEndpoint)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		archive = storage
		log.Info().Str("bucket", cfg.S3Bucket).Msg("Receipt archive enabled")
	}

	mailer := services.NewMailer(services.MailerConfig{
		Host:     cfg.EmailHost,
		Port:     cfg.EmailPort,
		Username: cfg.EmailUser,
		Password: cfg.EmailPass,
		FromName: cfg.EmailFromName,
	})
	if !mailer.Enabled() {
		log.Warn().Msg("EMAIL_USER not set, insight emails are disabled")
	}

	classifier := services.DefaultClassifier()
	parser := services.NewParser(cfg.Timezone)
	generator := services.NewInsightsGenerator(store, gemini, cfg.Timezone, log)
	assistant := services.NewAssistant(store, gemini, vectors, log)
	scanner := services.NewReceiptScanner(gemini, classifier, archive, log)

	// Initialize handlers
	transactionHandler := handlers.NewTransactionHandler(store, vectors)
	uploadHandler := handlers.NewUploadHandler(store, vectors, services.NewImportValidator(cfg.MaxImportSizeBytes), parser, classifier)
	insightsHandler := handlers.NewInsightsHandler(generator, mailer)
	aiHandler := handlers.NewAIHandler(assistant)
	ocrHandler := handlers.NewOCRHandler(scanner, services.NewImageValidator(cfg.MaxReceiptSizeBytes))
	syncHandler := handlers.NewSyncHandler(store, vectors)
	rulesHandler := handlers.NewRulesHandler(classifier)

	app := fiber.New(fiber.Config{
		AppName:      "wallet-insights-api",
		ErrorHandler: utils.ErrorHandler,
		BodyLimit:    int(max(cfg.MaxReceiptSizeBytes, cfg.MaxImportSizeBytes)) + 1024*1024,
	})

	// Apply global middleware
	app.Use(recoverer.New())
	app.Use(requestid.New())
	app.Use(middleware.CORS(cfg.CORSOrigins))
	app.Use(middleware.RequestLogger(log))

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "wallet-insights-api",
		})
	})

	api := app.Group("/api")

	// Transaction routes, summary before the :userId catch-all
	api.Get("/transactions/summary/:userId", transactionHandler.GetSummary)
	api.Get("/transactions/:userId", transactionHandler.GetTransactions)
	api.Post("/transactions", transactionHandler.CreateTransaction)
	api.Post("/transactions/import", uploadHandler.ImportStatement)
	api.Delete("/transactions/:id", transactionHandler.DeleteTransaction)

	// Insight routes
	api.Post("/insights/generate", insightsHandler.GenerateInsights)
	api.Post("/insights/email", insightsHandler.SendInsightsEmail)
	api.Get("/insights/export", insightsHandler.ExportInsights)

	api.Post("/ai/analyze", aiHandler.AnalyzeExpenses)
	api.Post("/ocr/gemini", ocrHandler.ScanReceipt)
	api.Post("/sync", syncHandler.SyncTransactions)

	// Classifier routes
	api.Get("/classifier/rules", rulesHandler.GetRules)
	api.Get("/classifier/rules/search", rulesHandler.SearchRules)
	api.Post("/classifier/classify", rulesHandler.Classify)

	addr := fmt.Sprintf(":%d", cfg.Port)
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	log.Info().Str("addr", addr).Str("environment", cfg.Environment).Msg("Wallet insights API is running")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
