package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/storage"
)

type capturingPublisher struct {
	alerts []*amqp.BudgetAlertMessage
}

func (p *capturingPublisher) PublishBudgetAlert(_ context.Context, _ string, msg *amqp.BudgetAlertMessage) error {
	p.alerts = append(p.alerts, msg)
	return nil
}

func newServiceUnderTest(t *testing.T) (*ExpenseService, *storage.SQLiteRepository, *capturingPublisher, int64) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	userID, err := repo.CreateUser(context.Background(), core.User{
		Name:  "Test User",
		Email: "svc@example.com",
	}, "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	pub := &capturingPublisher{}
	return NewExpenseService(repo, pub, "budget_alerts"), repo, pub, userID
}

func TestCreateExpenseRecordsNotification(t *testing.T) {
	svc, repo, pub, userID := newServiceUnderTest(t)
	ctx := context.Background()

	id, err := svc.CreateExpense(ctx, core.Expense{
		UserID:      userID,
		Amount:      core.Money{Cents: 4500},
		Category:    core.CategoryFood,
		Date:        time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Description: "atta",
		Source:      core.SourceUPI,
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if id == 0 {
		t.Fatal("expense id not returned")
	}

	notes, err := repo.ListNotifications(ctx, userID, 0)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(notes) != 1 || notes[0].Type != core.NotificationExpense {
		t.Errorf("notifications = %+v, want one expense notification", notes)
	}

	// No budget configured, no alert.
	if len(pub.alerts) != 0 {
		t.Errorf("alerts = %+v, want none", pub.alerts)
	}
}

func TestCreateExpenseRejectsInvalid(t *testing.T) {
	svc, _, _, userID := newServiceUnderTest(t)

	_, err := svc.CreateExpense(context.Background(), core.Expense{
		UserID: userID,
		Amount: core.Money{Cents: 0}, // invalid
		Date:   time.Now(),
	})
	if err == nil {
		t.Fatal("invalid expense accepted")
	}
}

func TestCreateExpensePublishesMonthlyBudgetAlert(t *testing.T) {
	svc, repo, pub, userID := newServiceUnderTest(t)
	ctx := context.Background()

	if err := repo.UpdateBudget(ctx, userID, core.Budget{
		Monthly: core.Money{Cents: 10000},
	}); err != nil {
		t.Fatalf("UpdateBudget: %v", err)
	}

	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	spend := func(cents int64) {
		t.Helper()
		if _, err := svc.CreateExpense(ctx, core.Expense{
			UserID:      userID,
			Amount:      core.Money{Cents: cents},
			Category:    core.CategoryFood,
			Date:        date,
			Description: "groceries",
			Source:      core.SourceCash,
		}); err != nil {
			t.Fatalf("CreateExpense: %v", err)
		}
	}

	spend(6000)
	if len(pub.alerts) != 0 {
		t.Fatalf("alert raised under budget: %+v", pub.alerts)
	}

	spend(6000) // total 12000 > 10000
	if len(pub.alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(pub.alerts))
	}
	alert := pub.alerts[0]
	if alert.UserID != userID || alert.SpentCents != 12000 || alert.LimitCents != 10000 {
		t.Errorf("alert = %+v", alert)
	}
}

func TestCreateExpensePublishesCategoryBudgetAlert(t *testing.T) {
	svc, repo, pub, userID := newServiceUnderTest(t)
	ctx := context.Background()

	if err := repo.UpdateBudget(ctx, userID, core.Budget{
		ByCategory: map[core.Category]core.Money{
			core.CategoryTravel: {Cents: 5000},
		},
	}); err != nil {
		t.Fatalf("UpdateBudget: %v", err)
	}

	_, err := svc.CreateExpense(ctx, core.Expense{
		UserID:      userID,
		Amount:      core.Money{Cents: 8000},
		Category:    core.CategoryTravel,
		Date:        time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Description: "train tickets",
		Source:      core.SourceCard,
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	if len(pub.alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(pub.alerts))
	}
	alert := pub.alerts[0]
	if alert.Category != "Travel" || alert.SpentCents != 8000 || alert.LimitCents != 5000 {
		t.Errorf("alert = %+v", alert)
	}
}
