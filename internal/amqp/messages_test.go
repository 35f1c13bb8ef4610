package amqp

import (
	"errors"
	"fmt"
	"testing"
)

func TestReportRequestMessageRoundTrip(t *testing.T) {
	msg := NewReportRequestMessage(42, "2024-03", "monthly")

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := ReportRequestMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.UserID != 42 || got.Period != "2024-03" || got.Cadence != "monthly" {
		t.Errorf("got %+v, want user 42 period 2024-03 cadence monthly", got)
	}
	if got.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
}

func TestBudgetAlertMessageRoundTrip(t *testing.T) {
	msg := NewBudgetAlertMessage(7, 99, "Food", 210000, 200000)

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := BudgetAlertMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.UserID != 7 || got.ExpenseID != 99 || got.Category != "Food" {
		t.Errorf("identifiers lost: %+v", got)
	}
	if got.SpentCents != 210000 || got.LimitCents != 200000 {
		t.Errorf("amounts lost: %+v", got)
	}
}

func TestMessageFromInvalidJSON(t *testing.T) {
	if _, err := ReportRequestMessageFromJSON([]byte("{not json")); err == nil {
		t.Error("ReportRequestMessageFromJSON accepted invalid JSON")
	}
	if _, err := BudgetAlertMessageFromJSON([]byte("{not json")); err == nil {
		t.Error("BudgetAlertMessageFromJSON accepted invalid JSON")
	}
}

func TestPermanent(t *testing.T) {
	base := errors.New("bad payload")

	if !isPermanent(Permanent(base)) {
		t.Error("Permanent error not detected")
	}
	if isPermanent(base) {
		t.Error("plain error misdetected as permanent")
	}
	if isPermanent(nil) {
		t.Error("nil misdetected as permanent")
	}
	// Survives further wrapping.
	wrapped := fmt.Errorf("handle message: %w", Permanent(base))
	if !isPermanent(wrapped) {
		t.Error("wrapped permanent error not detected")
	}
	if !errors.Is(Permanent(base), base) {
		t.Error("Permanent breaks errors.Is chain")
	}
}
