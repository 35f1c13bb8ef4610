package amqp

import (
	"encoding/json"
	"time"
)

// ReportRequestMessage asks the report worker to build and mail a
// spending report. It carries identifiers only, the worker fetches the
// user's data from the database.
type ReportRequestMessage struct {
	UserID    int64     `json:"user_id"`
	Period    string    `json:"period"` // "2024-03" or "2024-W12"
	Cadence   string    `json:"cadence"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReportRequestMessage(userID int64, period, cadence string) *ReportRequestMessage {
	return &ReportRequestMessage{
		UserID:    userID,
		Period:    period,
		Cadence:   cadence,
		Timestamp: time.Now(),
	}
}

func (m *ReportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportRequestMessageFromJSON(data []byte) (*ReportRequestMessage, error) {
	var msg ReportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// BudgetAlertMessage signals that an expense pushed a user past a
// configured budget limit.
type BudgetAlertMessage struct {
	UserID     int64     `json:"user_id"`
	ExpenseID  int64     `json:"expense_id"`
	Category   string    `json:"category"`
	SpentCents int64     `json:"spent_cents"`
	LimitCents int64     `json:"limit_cents"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewBudgetAlertMessage(userID, expenseID int64, category string, spentCents, limitCents int64) *BudgetAlertMessage {
	return &BudgetAlertMessage{
		UserID:     userID,
		ExpenseID:  expenseID,
		Category:   category,
		SpentCents: spentCents,
		LimitCents: limitCents,
		Timestamp:  time.Now(),
	}
}

func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
