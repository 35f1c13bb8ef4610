package core

import (
	"errors"
	"strings"
	"time"
)

// Category is the closed set of spending categories.
type Category string

const (
	CategoryFood         Category = "Food"
	CategoryTravel       Category = "Travel"
	CategoryStationery   Category = "Stationery"
	CategorySubscription Category = "Subscription"
	CategoryGift         Category = "Gift"
	CategoryMisc         Category = "Misc"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryFood,
	CategoryTravel,
	CategoryStationery,
	CategorySubscription,
	CategoryGift,
	CategoryMisc,
}

// Source is the closed set of payment sources.
type Source string

const (
	SourceUPI     Source = "UPI"
	SourceCard    Source = "Card"
	SourceCash    Source = "Cash"
	SourceUnknown Source = "Unknown"
)

// Sources lists every valid payment source.
var Sources = []Source{SourceUPI, SourceCard, SourceCash, SourceUnknown}

// Frequency describes how often a recurring expense repeats.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

var (
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidSource    = errors.New("invalid payment source")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyEmail       = errors.New("empty email")
	ErrEmptyTitle       = errors.New("empty title")
)

// ParseCategory validates a category label against the closed set.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

// ParseSource validates a payment source label against the closed set.
func ParseSource(s string) (Source, error) {
	for _, src := range Sources {
		if strings.EqualFold(string(src), s) {
			return src, nil
		}
	}
	return "", ErrInvalidSource
}

// ParseFrequency validates a recurrence frequency label.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(strings.ToLower(strings.TrimSpace(s))) {
	case Daily:
		return Daily, nil
	case Weekly:
		return Weekly, nil
	case Monthly:
		return Monthly, nil
	case Yearly:
		return Yearly, nil
	}
	return "", ErrInvalidFrequency
}

// Money is an amount in whole cents of the local currency.
type Money struct {
	Cents int64
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Expense is a single logged expense owned by a user.
type Expense struct {
	ID          int64
	UserID      int64
	Amount      Money
	Category    Category
	Date        time.Time
	Description string
	Source      Source
	ImageURL    string
	CreatedAt   time.Time
}

func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if _, err := ParseCategory(string(e.Category)); err != nil {
		return err
	}
	if _, err := ParseSource(string(e.Source)); err != nil {
		return err
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

// ThresholdType controls when email spending reports are dispatched.
type ThresholdType string

const (
	ThresholdMonthly ThresholdType = "monthly"
	ThresholdWeekly  ThresholdType = "weekly"
	ThresholdNever   ThresholdType = "never"
)

// EmailSettings holds a user's email-report preferences.
type EmailSettings struct {
	Enabled         bool
	RecipientEmail  string
	ThresholdType   ThresholdType
	ThresholdAmount Money
}

func (s EmailSettings) Validate() error {
	if s.RecipientEmail != "" && !strings.Contains(s.RecipientEmail, "@") {
		return errors.New("malformed recipient email")
	}
	if s.ThresholdAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Budget holds a user's monthly limit and optional per-category limits.
type Budget struct {
	Monthly    Money
	ByCategory map[Category]Money
}

// User is an account holder.
type User struct {
	ID            int64
	Name          string
	Email         string
	StudentType   string
	Budget        Budget
	EmailSettings EmailSettings
	CreatedAt     time.Time
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return ErrEmptyEmail
	}
	if !strings.Contains(u.Email, "@") {
		return errors.New("malformed email address")
	}
	return nil
}

// Goal is a savings goal with a target and a deadline.
type Goal struct {
	ID           int64
	UserID       int64
	Title        string
	TargetAmount Money
	SavedAmount  int64 // cents; zero is a legal starting point
	Deadline     time.Time
	CreatedAt    time.Time
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return ErrEmptyTitle
	}
	if err := g.TargetAmount.Validate(); err != nil {
		return err
	}
	if g.SavedAmount < 0 {
		return ErrInvalidAmount
	}
	if g.Deadline.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// RecommendedMonthly returns the suggested monthly contribution in cents to
// reach the target by the deadline. Past or near deadlines count as one month.
func (g Goal) RecommendedMonthly(now time.Time) int64 {
	remaining := g.TargetAmount.Cents - g.SavedAmount
	if remaining <= 0 {
		return 0
	}
	months := int64(g.Deadline.Year()-now.Year())*12 + int64(g.Deadline.Month()-now.Month())
	if months < 1 {
		months = 1
	}
	// Round up so the goal is met on the last month, not one short.
	return (remaining + months - 1) / months
}

// RecurringExpense is a template that materializes expenses on a schedule.
type RecurringExpense struct {
	ID          int64
	UserID      int64
	Amount      Money
	Category    Category
	Description string
	Source      Source
	StartDate   time.Time
	Frequency   Frequency
	NextDueDate time.Time
	Active      bool
}

func (r RecurringExpense) Validate() error {
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if _, err := ParseCategory(string(r.Category)); err != nil {
		return err
	}
	if strings.TrimSpace(r.Description) == "" {
		return ErrEmptyDescription
	}
	if _, err := ParseFrequency(string(r.Frequency)); err != nil {
		return err
	}
	if r.StartDate.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Advance returns the next due date strictly after the given one.
func (r RecurringExpense) Advance(after time.Time) time.Time {
	switch r.Frequency {
	case Daily:
		return after.AddDate(0, 0, 1)
	case Weekly:
		return after.AddDate(0, 0, 7)
	case Yearly:
		return after.AddDate(1, 0, 0)
	default:
		return after.AddDate(0, 1, 0)
	}
}

// NotificationType tags what produced a notification.
type NotificationType string

const (
	NotificationExpense NotificationType = "expense"
	NotificationBudget  NotificationType = "budget"
	NotificationGoal    NotificationType = "goal"
	NotificationReport  NotificationType = "report"
)

// Notification is an in-app message for a user.
type Notification struct {
	ID        int64
	UserID    int64
	Type      NotificationType
	Message   string
	Link      string
	Read      bool
	CreatedAt time.Time
}
