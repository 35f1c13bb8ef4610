// Package worker hosts the AMQP consumers: report building and budget
// alert delivery.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"spendwise/internal/amqp"
	"spendwise/internal/export"
	"spendwise/internal/mail"
	"spendwise/internal/report"
	"spendwise/internal/storage"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportWorker consumes report requests, renders the period's report
// and mails it with an XLSX attachment.
type ReportWorker struct {
	storage *storage.SQLiteRepository
	mailer  mail.Mailer
}

func NewReportWorker(storage *storage.SQLiteRepository, mailer mail.Mailer) *ReportWorker {
	return &ReportWorker{
		storage: storage,
		mailer:  mailer,
	}
}

// HandleMessage processes one raw report request. Malformed bodies are
// permanent failures; everything else is retried via requeue.
func (w *ReportWorker) HandleMessage(ctx context.Context, body []byte) error {
	msg, err := amqp.ReportRequestMessageFromJSON(body)
	if err != nil {
		return amqp.Permanent(fmt.Errorf("decode report request: %w", err))
	}
	return w.process(ctx, msg)
}

func (w *ReportWorker) process(ctx context.Context, msg *amqp.ReportRequestMessage) error {
	slog.InfoContext(ctx, "Building report",
		"user_id", msg.UserID,
		"period", msg.Period)

	sent, err := w.storage.ReportAlreadySent(ctx, msg.UserID, msg.Period)
	if err != nil {
		return fmt.Errorf("check report history: %w", err)
	}
	if sent {
		slog.InfoContext(ctx, "Report already sent, skipping",
			"user_id", msg.UserID, "period", msg.Period)
		return nil
	}

	user, err := w.storage.GetUserByID(ctx, msg.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return amqp.Permanent(fmt.Errorf("user %d gone: %w", msg.UserID, err))
		}
		return fmt.Errorf("load user: %w", err)
	}
	if !user.EmailSettings.Enabled {
		slog.InfoContext(ctx, "Email reports disabled since dispatch, skipping",
			"user_id", msg.UserID)
		return nil
	}

	start, end, err := report.ParsePeriod(msg.Period)
	if err != nil {
		return amqp.Permanent(err)
	}

	expenses, err := w.storage.ListExpensesBetween(ctx, msg.UserID, start, end)
	if err != nil {
		return fmt.Errorf("list period expenses: %w", err)
	}
	summary := report.Summarize(expenses, start)

	attachment, err := export.ExpensesXLSX(expenses, summary)
	if err != nil {
		return fmt.Errorf("build report workbook: %w", err)
	}

	recipient := user.EmailSettings.RecipientEmail
	if recipient == "" {
		recipient = user.Email
	}

	err = w.mailer.Send(ctx, mail.Message{
		To:      recipient,
		Subject: fmt.Sprintf("Your spending report for %s", msg.Period),
		Body:    report.RenderBody(user, msg.Period, summary),
		Attachment: &mail.Attachment{
			Filename:    export.Filename(start.Year(), start.Month(), "xlsx"),
			ContentType: xlsxContentType,
			Data:        attachment,
		},
	})
	if err != nil {
		return fmt.Errorf("send report mail: %w", err)
	}

	if err := w.storage.LogReportSent(ctx, msg.UserID, msg.Period, time.Now()); err != nil {
		slog.ErrorContext(ctx, "Report sent but not logged, duplicates possible",
			"user_id", msg.UserID, "period", msg.Period, "error", err)
		// The mail is out; don't requeue and send it twice.
		return nil
	}

	slog.InfoContext(ctx, "Report sent",
		"user_id", msg.UserID,
		"period", msg.Period,
		"expenses", len(expenses),
		"total_cents", summary.Total.Cents)

	return nil
}
