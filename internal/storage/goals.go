package storage

import (
	"context"
	"database/sql"
	"fmt"

	"spendwise/internal/core"
)

// CreateGoal inserts a savings goal and returns its ID.
func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (user_id, title, target_cents, saved_cents, deadline)
		 VALUES (?, ?, ?, ?, ?)`,
		g.UserID, g.Title, g.TargetAmount.Cents, g.SavedAmount, g.Deadline.UTC())
	if err != nil {
		return 0, fmt.Errorf("create goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("goal insert id: %w", err)
	}
	return id, nil
}

// GetGoal returns one goal owned by the given user.
func (r *SQLiteRepository) GetGoal(ctx context.Context, userID, id int64) (*core.Goal, error) {
	var g core.Goal
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, target_cents, saved_cents, deadline, created_at
		 FROM goals WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&g.ID, &g.UserID, &g.Title, &g.TargetAmount.Cents, &g.SavedAmount, &g.Deadline, &g.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	return &g, nil
}

// ListGoals returns a user's goals, nearest deadline first.
func (r *SQLiteRepository) ListGoals(ctx context.Context, userID int64) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, target_cents, saved_cents, deadline, created_at
		 FROM goals WHERE user_id = ? ORDER BY deadline ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		var g core.Goal
		if err := rows.Scan(&g.ID, &g.UserID, &g.Title, &g.TargetAmount.Cents,
			&g.SavedAmount, &g.Deadline, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// UpdateGoal replaces the mutable fields of a goal owned by the given user.
func (r *SQLiteRepository) UpdateGoal(ctx context.Context, userID int64, g core.Goal) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE goals SET title = ?, target_cents = ?, saved_cents = ?, deadline = ?
		 WHERE id = ? AND user_id = ?`,
		g.Title, g.TargetAmount.Cents, g.SavedAmount, g.Deadline.UTC(), g.ID, userID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteGoal removes one goal owned by the given user.
func (r *SQLiteRepository) DeleteGoal(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM goals WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
