package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"spendwise/internal/core"
)

// ExpenseFilter narrows ListExpenses. Zero values mean "no constraint".
type ExpenseFilter struct {
	Category core.Category
	Year     int
	Month    int // 1-12, requires Year
}

// CreateExpense inserts an expense and returns its ID.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, amount_cents, category, date, description, source, image_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Amount.Cents, string(e.Category), e.Date.UTC(), e.Description, string(e.Source), e.ImageURL)
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense insert id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"user_id", e.UserID,
		"amount_cents", e.Amount.Cents,
		"category", e.Category)

	return id, nil
}

// GetExpense returns one expense owned by the given user.
func (r *SQLiteRepository) GetExpense(ctx context.Context, userID, id int64) (*core.Expense, error) {
	var e core.Expense
	var category, source string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, amount_cents, category, date, description, source, image_url, created_at
		 FROM expenses WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&e.ID, &e.UserID, &e.Amount.Cents, &category, &e.Date, &e.Description, &source, &e.ImageURL, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	e.Category = core.Category(category)
	e.Source = core.Source(source)
	return &e, nil
}

// ListExpenses returns a user's expenses, newest first, honoring the filter.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64, f ExpenseFilter) ([]core.Expense, error) {
	query := `SELECT id, user_id, amount_cents, category, date, description, source, image_url, created_at
	          FROM expenses WHERE user_id = ?`
	args := []any{userID}

	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, string(f.Category))
	}
	if f.Year != 0 {
		start, end := monthRange(f.Year, f.Month)
		query += ` AND date >= ? AND date < ?`
		args = append(args, start, end)
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var e core.Expense
		var category, source string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &category, &e.Date,
			&e.Description, &source, &e.ImageURL, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Category = core.Category(category)
		e.Source = core.Source(source)
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// ListExpensesBetween returns a user's expenses with date in
// [start, end), oldest first. Report workers use this for arbitrary
// period windows.
func (r *SQLiteRepository) ListExpensesBetween(ctx context.Context, userID int64, start, end time.Time) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount_cents, category, date, description, source, image_url, created_at
		 FROM expenses WHERE user_id = ? AND date >= ? AND date < ?
		 ORDER BY date ASC, id ASC`,
		userID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("list expenses between: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var e core.Expense
		var category, source string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &category, &e.Date,
			&e.Description, &source, &e.ImageURL, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Category = core.Category(category)
		e.Source = core.Source(source)
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// DeleteExpense removes one expense owned by the given user.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MonthSummary aggregates one user's spending for a year+month.
func (r *SQLiteRepository) MonthSummary(ctx context.Context, userID int64, year, month int) (core.MonthSummary, error) {
	summary := core.MonthSummary{Year: year, Month: month}
	start, end := monthRange(year, month)

	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0), COUNT(*)
		 FROM expenses WHERE user_id = ? AND date >= ? AND date < ?`,
		userID, start, end).
		Scan(&summary.Total.Cents, &summary.Count)
	if err != nil {
		return summary, fmt.Errorf("month total: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(amount_cents)
		 FROM expenses WHERE user_id = ? AND date >= ? AND date < ?
		 GROUP BY category ORDER BY SUM(amount_cents) DESC`,
		userID, start, end)
	if err != nil {
		return summary, fmt.Errorf("category sums: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ca core.CategoryAmount
		var category string
		if err := rows.Scan(&category, &ca.Amount.Cents); err != nil {
			return summary, fmt.Errorf("scan category sum: %w", err)
		}
		ca.Category = core.Category(category)
		summary.ByCategory = append(summary.ByCategory, ca)
	}
	return summary, rows.Err()
}

// RangeTotal sums a user's spending over [start, end).
func (r *SQLiteRepository) RangeTotal(ctx context.Context, userID int64, start, end time.Time) (core.Money, error) {
	var total core.Money
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0)
		 FROM expenses WHERE user_id = ? AND date >= ? AND date < ?`,
		userID, start.UTC(), end.UTC()).
		Scan(&total.Cents)
	if err != nil {
		return total, fmt.Errorf("range total: %w", err)
	}
	return total, nil
}

// monthRange returns the [start, end) UTC bounds for a year or a single
// month of it (month == 0 covers the whole year).
func monthRange(year, month int) (time.Time, time.Time) {
	if month == 0 {
		start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, 0)
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
