package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"spendwise/internal/amqp"
	"spendwise/internal/config"
	apphttp "spendwise/internal/http"
	"spendwise/internal/insights"
	"spendwise/internal/receipt"
	"spendwise/internal/services"
	"spendwise/internal/storage"
	"spendwise/internal/vision"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting spendwise server")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Initialize SQLite repository
	sqliteRepo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer sqliteRepo.Close()

	// Initialize AMQP client for budget alerts (optional)
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.ReportQueue, cfg.AlertQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without budget alerts", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled - budget alerts will not be delivered")
	}

	// Expense service needs a non-nil publisher interface only when AMQP is up
	var publisher services.AlertPublisher
	if amqpClient != nil {
		publisher = amqpClient
	}
	expenseService := services.NewExpenseService(sqliteRepo, publisher, cfg.AlertQueue)

	// Receipt OCR (optional, needs a Vision API key)
	var recognizer vision.TextRecognizer
	if cfg.OCREnabled() {
		googleClient, err := vision.NewGoogleClient(context.Background(), cfg.VisionAPIKey)
		if err != nil {
			logger.Error("Failed to initialize Vision client", "error", err)
			os.Exit(1)
		}
		recognizer = googleClient
		logger.Info("Receipt OCR enabled")
	} else {
		logger.Info("Receipt OCR disabled - no GOOGLE_CLOUD_VISION_API_KEY provided")
	}

	// Spending insights (optional, falls back to static tips)
	var generator insights.Generator
	if cfg.InsightsEnabled() {
		geminiGen, err := insights.NewGeminiGenerator(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize Gemini client", "error", err)
			os.Exit(1)
		}
		generator = geminiGen
		logger.Info("Gemini insights enabled", "model", cfg.GeminiModel)
	} else {
		logger.Info("Gemini insights disabled - using static tips")
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:       ":" + cfg.Port,
		Storage:    sqliteRepo,
		Expenses:   expenseService,
		Recognizer: recognizer,
		Extractor:  receipt.NewExtractor(nil),
		Insights:   generator,
		SessionTTL: cfg.SessionTTL,
	})

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting spendwise server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
