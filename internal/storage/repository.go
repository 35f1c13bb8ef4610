// Package storage persists the domain model in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"spendwise/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist or is owned by
// a different user.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable. Readiness checks use it.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// --- users ---

// CreateUser inserts a new account and returns its ID.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User, passwordHash string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, student_type) VALUES (?, ?, ?, ?)`,
		u.Name, u.Email, passwordHash, u.StudentType)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user insert id: %w", err)
	}

	slog.InfoContext(ctx, "User created", "id", id, "email", u.Email)
	return id, nil
}

// GetUserByEmail returns the user and their password hash for login checks.
func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*core.User, string, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, student_type,
		        budget_monthly_cents, budget_categories,
		        email_enabled, email_recipient, email_threshold_type, email_threshold_cents,
		        created_at
		 FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// GetUserByID returns a user by primary key.
func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (*core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, student_type,
		        budget_monthly_cents, budget_categories,
		        email_enabled, email_recipient, email_threshold_type, email_threshold_cents,
		        created_at
		 FROM users WHERE id = ?`, id)
	u, _, err := scanUser(row)
	return u, err
}

func scanUser(row *sql.Row) (*core.User, string, error) {
	var (
		u            core.User
		passwordHash string
		catJSON      string
		enabled      int64
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &passwordHash, &u.StudentType,
		&u.Budget.Monthly.Cents, &catJSON,
		&enabled, &u.EmailSettings.RecipientEmail, &u.EmailSettings.ThresholdType, &u.EmailSettings.ThresholdAmount.Cents,
		&u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("scan user: %w", err)
	}
	u.EmailSettings.Enabled = enabled != 0
	u.Budget.ByCategory, err = decodeCategoryBudgets(catJSON)
	if err != nil {
		return nil, "", err
	}
	return &u, passwordHash, nil
}

// UpdateProfile updates display name and student type.
func (r *SQLiteRepository) UpdateProfile(ctx context.Context, userID int64, name, studentType string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = ?, student_type = ? WHERE id = ?`,
		name, studentType, userID)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// UpdateBudget replaces monthly and per-category budget limits.
func (r *SQLiteRepository) UpdateBudget(ctx context.Context, userID int64, b core.Budget) error {
	catJSON, err := encodeCategoryBudgets(b.ByCategory)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE users SET budget_monthly_cents = ?, budget_categories = ? WHERE id = ?`,
		b.Monthly.Cents, catJSON, userID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget updated", "user_id", userID, "monthly_cents", b.Monthly.Cents)
	return nil
}

// UpdateEmailSettings replaces the email-report preferences.
func (r *SQLiteRepository) UpdateEmailSettings(ctx context.Context, userID int64, s core.EmailSettings) error {
	enabled := 0
	if s.Enabled {
		enabled = 1
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET email_enabled = ?, email_recipient = ?, email_threshold_type = ?, email_threshold_cents = ?
		 WHERE id = ?`,
		enabled, s.RecipientEmail, string(s.ThresholdType), s.ThresholdAmount.Cents, userID)
	if err != nil {
		return fmt.Errorf("update email settings: %w", err)
	}
	return nil
}

// ListReportRecipients returns users with email reports enabled for the given
// threshold cadence.
func (r *SQLiteRepository) ListReportRecipients(ctx context.Context, cadence core.ThresholdType) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email, student_type,
		        budget_monthly_cents, budget_categories,
		        email_recipient, email_threshold_type, email_threshold_cents
		 FROM users WHERE email_enabled = 1 AND email_threshold_type = ?`, string(cadence))
	if err != nil {
		return nil, fmt.Errorf("list report recipients: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var (
			u       core.User
			catJSON string
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.StudentType,
			&u.Budget.Monthly.Cents, &catJSON,
			&u.EmailSettings.RecipientEmail, &u.EmailSettings.ThresholdType, &u.EmailSettings.ThresholdAmount.Cents); err != nil {
			return nil, fmt.Errorf("scan report recipient: %w", err)
		}
		u.EmailSettings.Enabled = true
		if u.Budget.ByCategory, err = decodeCategoryBudgets(catJSON); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func encodeCategoryBudgets(m map[core.Category]core.Money) (string, error) {
	cents := make(map[string]int64, len(m))
	for c, v := range m {
		cents[string(c)] = v.Cents
	}
	b, err := json.Marshal(cents)
	if err != nil {
		return "", fmt.Errorf("encode category budgets: %w", err)
	}
	return string(b), nil
}

func decodeCategoryBudgets(s string) (map[core.Category]core.Money, error) {
	if s == "" || s == "{}" {
		return nil, nil
	}
	var cents map[string]int64
	if err := json.Unmarshal([]byte(s), &cents); err != nil {
		return nil, fmt.Errorf("decode category budgets: %w", err)
	}
	m := make(map[core.Category]core.Money, len(cents))
	for c, v := range cents {
		m[core.Category(c)] = core.Money{Cents: v}
	}
	return m, nil
}

// --- sessions ---

// CreateSession stores an opaque session token.
func (r *SQLiteRepository) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSessionUser resolves a token to its owning user ID; expired or unknown
// tokens return ErrNotFound.
func (r *SQLiteRepository) GetSessionUser(ctx context.Context, token string, now time.Time) (int64, error) {
	var (
		userID  int64
		expires time.Time
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM sessions WHERE token = ?`, token).
		Scan(&userID, &expires)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get session: %w", err)
	}
	if now.After(expires) {
		return 0, ErrNotFound
	}
	return userID, nil
}

// DeleteSession removes a session token (logout).
func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions prunes stale tokens; returns rows removed.
func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
