package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"spendwise/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *SQLiteRepository, email string) int64 {
	t.Helper()
	id, err := repo.CreateUser(context.Background(), core.User{
		Name:  "Test User",
		Email: email,
	}, "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return id
}

func TestUserRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := newTestUser(t, repo, "a@example.com")

	u, hash, err := repo.GetUserByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if u.ID != id || hash != "hash" {
		t.Errorf("got id=%d hash=%q, want id=%d hash=hash", u.ID, hash, id)
	}

	if _, _, err := repo.GetUserByEmail(ctx, "missing@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing user error = %v, want ErrNotFound", err)
	}
}

func TestBudgetRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := newTestUser(t, repo, "b@example.com")

	budget := core.Budget{
		Monthly: core.Money{Cents: 500000},
		ByCategory: map[core.Category]core.Money{
			core.CategoryFood:   {Cents: 200000},
			core.CategoryTravel: {Cents: 100000},
		},
	}
	if err := repo.UpdateBudget(ctx, id, budget); err != nil {
		t.Fatalf("UpdateBudget: %v", err)
	}

	u, err := repo.GetUserByID(ctx, id)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if u.Budget.Monthly.Cents != 500000 {
		t.Errorf("Monthly = %d, want 500000", u.Budget.Monthly.Cents)
	}
	if got := u.Budget.ByCategory[core.CategoryFood].Cents; got != 200000 {
		t.Errorf("Food budget = %d, want 200000", got)
	}
}

func TestSessionLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := newTestUser(t, repo, "c@example.com")
	now := time.Now()

	if err := repo.CreateSession(ctx, "tok1", id, now.Add(time.Hour)); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	got, err := repo.GetSessionUser(ctx, "tok1", now)
	if err != nil || got != id {
		t.Fatalf("GetSessionUser = (%d, %v), want (%d, nil)", got, err, id)
	}

	// Expired token behaves like a missing one.
	if _, err := repo.GetSessionUser(ctx, "tok1", now.Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired session error = %v, want ErrNotFound", err)
	}

	if err := repo.DeleteSession(ctx, "tok1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := repo.GetSessionUser(ctx, "tok1", now); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted session error = %v, want ErrNotFound", err)
	}
}

func TestExpenseCRUDAndSummary(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := newTestUser(t, repo, "d@example.com")

	mar := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	expenses := []core.Expense{
		{UserID: id, Amount: core.Money{Cents: 4500}, Category: core.CategoryFood, Date: mar, Description: "atta", Source: core.SourceUPI},
		{UserID: id, Amount: core.Money{Cents: 12000}, Category: core.CategoryTravel, Date: mar.AddDate(0, 0, 10), Description: "bus pass", Source: core.SourceCash},
		{UserID: id, Amount: core.Money{Cents: 9900}, Category: core.CategoryFood, Date: mar.AddDate(0, 1, 0), Description: "rice", Source: core.SourceCard},
	}
	var firstID int64
	for i, e := range expenses {
		eid, err := repo.CreateExpense(ctx, e)
		if err != nil {
			t.Fatalf("CreateExpense[%d]: %v", i, err)
		}
		if i == 0 {
			firstID = eid
		}
	}

	list, err := repo.ListExpenses(ctx, id, ExpenseFilter{Year: 2024, Month: 3})
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("march expenses = %d, want 2", len(list))
	}

	list, err = repo.ListExpenses(ctx, id, ExpenseFilter{Category: core.CategoryFood})
	if err != nil {
		t.Fatalf("ListExpenses by category: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("food expenses = %d, want 2", len(list))
	}

	summary, err := repo.MonthSummary(ctx, id, 2024, 3)
	if err != nil {
		t.Fatalf("MonthSummary: %v", err)
	}
	if summary.Total.Cents != 16500 || summary.Count != 2 {
		t.Errorf("summary total=%d count=%d, want 16500/2", summary.Total.Cents, summary.Count)
	}

	if err := repo.DeleteExpense(ctx, id, firstID); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	if err := repo.DeleteExpense(ctx, id, firstID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}

	// Ownership: another user cannot touch these rows.
	other := newTestUser(t, repo, "e@example.com")
	if _, err := repo.GetExpense(ctx, other, firstID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user read error = %v, want ErrNotFound", err)
	}
}

func TestRecurringDueFlow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := newTestUser(t, repo, "f@example.com")
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	rid, err := repo.CreateRecurring(ctx, core.RecurringExpense{
		UserID:      id,
		Amount:      core.Money{Cents: 19900},
		Category:    core.CategorySubscription,
		Description: "netflix",
		Source:      core.SourceCard,
		StartDate:   now.AddDate(0, -1, 0),
		Frequency:   core.Monthly,
		NextDueDate: now.AddDate(0, 0, -1),
		Active:      true,
	})
	if err != nil {
		t.Fatalf("CreateRecurring: %v", err)
	}

	due, err := repo.ListDueRecurring(ctx, now)
	if err != nil {
		t.Fatalf("ListDueRecurring: %v", err)
	}
	if len(due) != 1 || due[0].ID != rid {
		t.Fatalf("due = %+v, want single row %d", due, rid)
	}

	next := due[0].Advance(due[0].NextDueDate)
	if err := repo.AdvanceRecurring(ctx, rid, next); err != nil {
		t.Fatalf("AdvanceRecurring: %v", err)
	}

	due, err = repo.ListDueRecurring(ctx, now)
	if err != nil {
		t.Fatalf("ListDueRecurring after advance: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("due after advance = %d rows, want 0", len(due))
	}
}

func TestNotifications(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := newTestUser(t, repo, "g@example.com")

	for _, msg := range []string{"one", "two"} {
		if _, err := repo.CreateNotification(ctx, core.Notification{
			UserID:  id,
			Type:    core.NotificationExpense,
			Message: msg,
		}); err != nil {
			t.Fatalf("CreateNotification: %v", err)
		}
	}

	list, err := repo.ListNotifications(ctx, id, 0)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("notifications = %d, want 2", len(list))
	}
	for _, n := range list {
		if n.Read {
			t.Errorf("notification %d already read", n.ID)
		}
	}

	if err := repo.MarkNotificationsRead(ctx, id); err != nil {
		t.Fatalf("MarkNotificationsRead: %v", err)
	}
	list, _ = repo.ListNotifications(ctx, id, 0)
	for _, n := range list {
		if !n.Read {
			t.Errorf("notification %d still unread", n.ID)
		}
	}
}

func TestReportDispatchDedupe(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := newTestUser(t, repo, "h@example.com")
	now := time.Now()

	sent, err := repo.ReportAlreadySent(ctx, id, "2024-03")
	if err != nil || sent {
		t.Fatalf("ReportAlreadySent = (%v, %v), want (false, nil)", sent, err)
	}

	if err := repo.LogReportSent(ctx, id, "2024-03", now); err != nil {
		t.Fatalf("LogReportSent: %v", err)
	}
	// Logging the same period twice is a no-op.
	if err := repo.LogReportSent(ctx, id, "2024-03", now); err != nil {
		t.Fatalf("duplicate LogReportSent: %v", err)
	}

	sent, err = repo.ReportAlreadySent(ctx, id, "2024-03")
	if err != nil || !sent {
		t.Fatalf("ReportAlreadySent after log = (%v, %v), want (true, nil)", sent, err)
	}
}
