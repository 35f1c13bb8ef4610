package storage

import (
	"context"
	"fmt"
	"time"

	"spendwise/internal/core"
)

// CreateNotification inserts an in-app notification and returns its ID.
func (r *SQLiteRepository) CreateNotification(ctx context.Context, n core.Notification) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (user_id, type, message, link) VALUES (?, ?, ?, ?)`,
		n.UserID, string(n.Type), n.Message, n.Link)
	if err != nil {
		return 0, fmt.Errorf("create notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("notification insert id: %w", err)
	}
	return id, nil
}

// ListNotifications returns a user's notifications, newest first.
func (r *SQLiteRepository) ListNotifications(ctx context.Context, userID int64, limit int) ([]core.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, type, message, link, read, created_at
		 FROM notifications WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var result []core.Notification
	for rows.Next() {
		var (
			n     core.Notification
			typ   string
			read  int64
		)
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &n.Message, &n.Link, &read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Type = core.NotificationType(typ)
		n.Read = read != 0
		result = append(result, n)
	}
	return result, rows.Err()
}

// MarkNotificationsRead marks all of a user's notifications as read.
func (r *SQLiteRepository) MarkNotificationsRead(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE user_id = ? AND read = 0`, userID)
	if err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}

// --- report dispatch log ---

// ReportAlreadySent reports whether a report for the period was dispatched.
// Periods are opaque labels like "2024-03" or "2024-W12".
func (r *SQLiteRepository) ReportAlreadySent(ctx context.Context, userID int64, period string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM report_dispatches WHERE user_id = ? AND period = ?`,
		userID, period).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check report dispatch: %w", err)
	}
	return n > 0, nil
}

// LogReportSent records a dispatched report so the period is never repeated.
func (r *SQLiteRepository) LogReportSent(ctx context.Context, userID int64, period string, sentAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO report_dispatches (user_id, period, sent_at) VALUES (?, ?, ?)`,
		userID, period, sentAt.UTC())
	if err != nil {
		return fmt.Errorf("log report dispatch: %w", err)
	}
	return nil
}
