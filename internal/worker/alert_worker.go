package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/mail"
	"spendwise/internal/storage"
)

// AlertWorker consumes budget alerts, records an in-app notification
// and optionally emails the user.
type AlertWorker struct {
	storage *storage.SQLiteRepository
	mailer  mail.Mailer
}

func NewAlertWorker(storage *storage.SQLiteRepository, mailer mail.Mailer) *AlertWorker {
	return &AlertWorker{
		storage: storage,
		mailer:  mailer,
	}
}

func (w *AlertWorker) HandleMessage(ctx context.Context, body []byte) error {
	msg, err := amqp.BudgetAlertMessageFromJSON(body)
	if err != nil {
		return amqp.Permanent(fmt.Errorf("decode budget alert: %w", err))
	}
	return w.process(ctx, msg)
}

func (w *AlertWorker) process(ctx context.Context, msg *amqp.BudgetAlertMessage) error {
	user, err := w.storage.GetUserByID(ctx, msg.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return amqp.Permanent(fmt.Errorf("user %d gone: %w", msg.UserID, err))
		}
		return fmt.Errorf("load user: %w", err)
	}

	text := alertText(msg)
	if _, err := w.storage.CreateNotification(ctx, core.Notification{
		UserID:  msg.UserID,
		Type:    core.NotificationBudget,
		Message: text,
	}); err != nil {
		return fmt.Errorf("record budget notification: %w", err)
	}

	if !user.EmailSettings.Enabled {
		return nil
	}
	recipient := user.EmailSettings.RecipientEmail
	if recipient == "" {
		recipient = user.Email
	}

	err = w.mailer.Send(ctx, mail.Message{
		To:      recipient,
		Subject: "Budget alert",
		Body:    fmt.Sprintf("Hi %s,\n\n%s\n", user.Name, text),
	})
	if err != nil {
		// Notification is recorded; a mail failure should not replay it.
		slog.ErrorContext(ctx, "Failed to send budget alert mail",
			"user_id", msg.UserID, "error", err)
	}

	slog.InfoContext(ctx, "Budget alert processed",
		"user_id", msg.UserID,
		"expense_id", msg.ExpenseID,
		"category", msg.Category)

	return nil
}

func alertText(msg *amqp.BudgetAlertMessage) string {
	spent := core.Money{Cents: msg.SpentCents}
	limit := core.Money{Cents: msg.LimitCents}
	if msg.Category == "" {
		return fmt.Sprintf("You have spent %s this month, over your budget of %s.", spent, limit)
	}
	return fmt.Sprintf("You have spent %s on %s this month, over your limit of %s.", spent, msg.Category, limit)
}
