package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/storage"
)

// RecurringProcessor materializes due recurring templates into real
// expenses and advances their schedules.
type RecurringProcessor struct {
	storage        *storage.SQLiteRepository
	expenseService *ExpenseService
}

func NewRecurringProcessor(storage *storage.SQLiteRepository, expenseService *ExpenseService) *RecurringProcessor {
	return &RecurringProcessor{
		storage:        storage,
		expenseService: expenseService,
	}
}

// ProcessDue creates one expense per due template occurrence. A
// template that fell several periods behind is caught up in a single
// run, one expense per missed occurrence, dated at each occurrence.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.storage == nil || p.expenseService == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	due, err := p.storage.ListDueRecurring(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due recurring expenses: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring expenses",
		"due", len(due),
		"processing_date", now.Format("2006-01-02"))

	processed := 0
	for _, re := range due {
		n, err := p.processOne(ctx, re, now)
		processed += n
		if err != nil {
			slog.ErrorContext(ctx, "Failed to process recurring expense",
				"recurring_id", re.ID,
				"description", re.Description,
				"error", err)
			continue
		}
	}

	slog.InfoContext(ctx, "Recurring expense processing complete",
		"created", processed,
		"templates", len(due))

	return processed, nil
}

func (p *RecurringProcessor) processOne(ctx context.Context, re core.RecurringExpense, now time.Time) (int, error) {
	created := 0
	next := re.NextDueDate

	for !next.After(now) {
		expense := core.Expense{
			UserID:      re.UserID,
			Amount:      re.Amount,
			Category:    re.Category,
			Date:        next,
			Description: re.Description,
			Source:      re.Source,
		}

		if _, err := p.expenseService.CreateExpense(ctx, expense); err != nil {
			return created, fmt.Errorf("create expense: %w", err)
		}

		next = re.Advance(next)
		if err := p.storage.AdvanceRecurring(ctx, re.ID, next); err != nil {
			// Expense exists but the schedule did not move. Stop here so
			// the next run retries the advance rather than piling on.
			return created + 1, fmt.Errorf("advance schedule: %w", err)
		}

		created++
		slog.InfoContext(ctx, "Created expense from recurring template",
			"recurring_id", re.ID,
			"description", re.Description,
			"amount_cents", re.Amount.Cents,
			"frequency", re.Frequency,
			"next_due", next.Format("2006-01-02"))
	}

	return created, nil
}
