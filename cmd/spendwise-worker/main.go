package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"spendwise/internal/amqp"
	"spendwise/internal/config"
	"spendwise/internal/mail"
	"spendwise/internal/report"
	"spendwise/internal/storage"
	"spendwise/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting spendwise-worker")

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

	// Initialize AMQP client for consuming report requests and budget alerts
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.ReportQueue, cfg.AlertQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	// Pick the mailer: real SMTP when configured, log-only otherwise
	var mailer mail.Mailer
	if cfg.MailEnabled() {
		smtpPort, err := strconv.Atoi(cfg.SMTPPort)
		if err != nil {
			logger.Error("Invalid SMTP port", "port", cfg.SMTPPort)
			os.Exit(1)
		}
		mailer = mail.NewSMTPMailer(cfg.SMTPHost, smtpPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
		logger.Info("SMTP mailer initialized", "host", cfg.SMTPHost, "from", cfg.SMTPFrom)
	} else {
		mailer = mail.LogMailer{}
		logger.Info("SMTP disabled - emails will be logged instead of sent")
	}

	reportWorker := worker.NewReportWorker(sqliteRepo, mailer)
	alertWorker := worker.NewAlertWorker(sqliteRepo, mailer)
	dispatcher := report.NewDispatcher(sqliteRepo, amqpClient, cfg.ReportQueue)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return amqpClient.Consume(groupCtx, cfg.ReportQueue, func(body []byte) error {
			return reportWorker.HandleMessage(groupCtx, body)
		})
	})
	group.Go(func() error {
		return amqpClient.Consume(groupCtx, cfg.AlertQueue, func(body []byte) error {
			return alertWorker.HandleMessage(groupCtx, body)
		})
	})

	// Dispatch due reports on startup and then on a fixed interval
	group.Go(func() error {
		if count, err := dispatcher.DispatchDue(groupCtx, time.Now()); err != nil {
			logger.Error("Initial report dispatch failed", "error", err)
		} else {
			logger.Info("Initial report dispatch complete", "dispatched", count)
		}

		ticker := time.NewTicker(cfg.ReportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return groupCtx.Err()
			case now := <-ticker.C:
				count, err := dispatcher.DispatchDue(groupCtx, now)
				if err != nil {
					logger.Error("Report dispatch failed", "error", err)
				} else if count > 0 {
					logger.Info("Report dispatch complete", "dispatched", count)
				}
			}
		}
	})

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-groupCtx.Done():
		logger.Info("Worker context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()

	if err := group.Wait(); err != nil && err != context.Canceled {
		logger.Error("Worker stopped with error", "error", err)
	}
	logger.Info("Worker shutdown complete")
}
