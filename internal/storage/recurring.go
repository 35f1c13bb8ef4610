package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"spendwise/internal/core"
)

// CreateRecurring inserts a recurring expense template and returns its ID.
func (r *SQLiteRepository) CreateRecurring(ctx context.Context, re core.RecurringExpense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_expenses
		   (user_id, amount_cents, category, description, source, start_date, frequency, next_due_date, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		re.UserID, re.Amount.Cents, string(re.Category), re.Description, string(re.Source),
		re.StartDate.UTC(), string(re.Frequency), re.NextDueDate.UTC(), boolToInt(re.Active))
	if err != nil {
		return 0, fmt.Errorf("create recurring expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("recurring insert id: %w", err)
	}
	return id, nil
}

// GetRecurring returns one template owned by the given user.
func (r *SQLiteRepository) GetRecurring(ctx context.Context, userID, id int64) (*core.RecurringExpense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, amount_cents, category, description, source,
		        start_date, frequency, next_due_date, active
		 FROM recurring_expenses WHERE id = ? AND user_id = ?`, id, userID)
	re, err := scanRecurring(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recurring expense: %w", err)
	}
	return re, nil
}

// ListRecurring returns all of a user's templates.
func (r *SQLiteRepository) ListRecurring(ctx context.Context, userID int64) ([]core.RecurringExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount_cents, category, description, source,
		        start_date, frequency, next_due_date, active
		 FROM recurring_expenses WHERE user_id = ? ORDER BY next_due_date ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring expenses: %w", err)
	}
	defer rows.Close()

	var result []core.RecurringExpense
	for rows.Next() {
		re, err := scanRecurring(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan recurring expense: %w", err)
		}
		result = append(result, *re)
	}
	return result, rows.Err()
}

// ListDueRecurring returns active templates whose next due date has passed.
func (r *SQLiteRepository) ListDueRecurring(ctx context.Context, now time.Time) ([]core.RecurringExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount_cents, category, description, source,
		        start_date, frequency, next_due_date, active
		 FROM recurring_expenses WHERE active = 1 AND next_due_date <= ?
		 ORDER BY next_due_date ASC`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("list due recurring expenses: %w", err)
	}
	defer rows.Close()

	var result []core.RecurringExpense
	for rows.Next() {
		re, err := scanRecurring(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan due recurring expense: %w", err)
		}
		result = append(result, *re)
	}
	return result, rows.Err()
}

// UpdateRecurring replaces the mutable fields of a template.
func (r *SQLiteRepository) UpdateRecurring(ctx context.Context, userID int64, re core.RecurringExpense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_expenses
		 SET amount_cents = ?, category = ?, description = ?, source = ?, frequency = ?, active = ?
		 WHERE id = ? AND user_id = ?`,
		re.Amount.Cents, string(re.Category), re.Description, string(re.Source),
		string(re.Frequency), boolToInt(re.Active), re.ID, userID)
	if err != nil {
		return fmt.Errorf("update recurring expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AdvanceRecurring moves a template's next due date after materialization.
func (r *SQLiteRepository) AdvanceRecurring(ctx context.Context, id int64, next time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE recurring_expenses SET next_due_date = ? WHERE id = ?`,
		next.UTC(), id)
	if err != nil {
		return fmt.Errorf("advance recurring expense: %w", err)
	}

	slog.InfoContext(ctx, "Recurring expense advanced", "id", id, "next_due", next.Format("2006-01-02"))
	return nil
}

// DeleteRecurring removes one template owned by the given user.
func (r *SQLiteRepository) DeleteRecurring(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM recurring_expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete recurring expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRecurring(scan func(...any) error) (*core.RecurringExpense, error) {
	var (
		re               core.RecurringExpense
		category, source string
		frequency        string
		active           int64
	)
	err := scan(&re.ID, &re.UserID, &re.Amount.Cents, &category, &re.Description, &source,
		&re.StartDate, &frequency, &re.NextDueDate, &active)
	if err != nil {
		return nil, err
	}
	re.Category = core.Category(category)
	re.Source = core.Source(source)
	re.Frequency = core.Frequency(frequency)
	re.Active = active != 0
	return &re, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
