package services

import (
	"context"
	"fmt"
	"log/slog"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/storage"
)

// AlertPublisher is the slice of the AMQP client the service needs.
type AlertPublisher interface {
	PublishBudgetAlert(ctx context.Context, queueName string, msg *amqp.BudgetAlertMessage) error
}

// ExpenseService orchestrates expense writes across SQLite and AMQP.
// Saving always succeeds or fails on the database alone; alerting is
// best effort.
type ExpenseService struct {
	storage    *storage.SQLiteRepository
	publisher  AlertPublisher
	alertQueue string
}

func NewExpenseService(storage *storage.SQLiteRepository, publisher AlertPublisher, alertQueue string) *ExpenseService {
	return &ExpenseService{
		storage:    storage,
		publisher:  publisher,
		alertQueue: alertQueue,
	}
}

// CreateExpense validates and saves an expense, records an in-app
// notification, and raises a budget alert when the expense pushes the
// month past a configured limit.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}

	id, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}

	if _, err := s.storage.CreateNotification(ctx, core.Notification{
		UserID:  e.UserID,
		Type:    core.NotificationExpense,
		Message: fmt.Sprintf("Added %s expense of %s", e.Category, e.Amount),
	}); err != nil {
		slog.ErrorContext(ctx, "Failed to record expense notification",
			"user_id", e.UserID, "expense_id", id, "error", err)
		// Expense is saved; the notification is not worth failing over.
	}

	s.checkBudget(ctx, e, id)

	return id, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, userID, id int64) error {
	return s.storage.DeleteExpense(ctx, userID, id)
}

// checkBudget compares the month's running totals against the user's
// budget and publishes an alert for the first limit crossed.
func (s *ExpenseService) checkBudget(ctx context.Context, e core.Expense, expenseID int64) {
	user, err := s.storage.GetUserByID(ctx, e.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load user for budget check",
			"user_id", e.UserID, "error", err)
		return
	}

	budget := user.Budget
	if budget.Monthly.Cents == 0 && len(budget.ByCategory) == 0 {
		return
	}

	summary, err := s.storage.MonthSummary(ctx, e.UserID, e.Date.Year(), int(e.Date.Month()))
	if err != nil {
		slog.ErrorContext(ctx, "Failed to compute month summary for budget check",
			"user_id", e.UserID, "error", err)
		return
	}

	var msg *amqp.BudgetAlertMessage
	switch {
	case summary.OverBudget(budget):
		msg = amqp.NewBudgetAlertMessage(e.UserID, expenseID, "", summary.Total.Cents, budget.Monthly.Cents)
	default:
		for _, overrun := range summary.CategoryOverruns(budget) {
			if overrun.Category == e.Category {
				limit := budget.ByCategory[e.Category]
				msg = amqp.NewBudgetAlertMessage(e.UserID, expenseID, string(e.Category), overrun.Amount.Cents, limit.Cents)
				break
			}
		}
	}
	if msg == nil {
		return
	}

	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping budget alert",
			"user_id", e.UserID, "expense_id", expenseID)
		return
	}
	if err := s.publisher.PublishBudgetAlert(ctx, s.alertQueue, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish budget alert",
			"user_id", e.UserID, "expense_id", expenseID, "error", err)
		// Don't fail the request, the expense is saved.
	}
}
