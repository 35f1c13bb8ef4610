// Package report schedules and renders periodic spending reports.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"spendwise/internal/core"
)

// MonthlyPeriod names a report period like "2024-03".
func MonthlyPeriod(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), t.Month())
}

// WeeklyPeriod names a report period like "2024-W12", using ISO weeks.
func WeeklyPeriod(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// PeriodFor returns the current period name for a cadence, or "" when
// the cadence does not produce reports.
func PeriodFor(cadence core.ThresholdType, now time.Time) string {
	switch cadence {
	case core.ThresholdMonthly:
		return MonthlyPeriod(now)
	case core.ThresholdWeekly:
		return WeeklyPeriod(now)
	default:
		return ""
	}
}

// ParsePeriod turns a period name back into its [start, end) UTC
// bounds. Accepts "2006-01" and "2006-W02" forms.
func ParsePeriod(period string) (time.Time, time.Time, error) {
	if year, week, ok := parseWeekPeriod(period); ok {
		start := isoWeekStart(year, week)
		return start, start.AddDate(0, 0, 7), nil
	}

	t, err := time.Parse("2006-01", period)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse period %q: %w", period, err)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}

func parseWeekPeriod(period string) (year, week int, ok bool) {
	if n, err := fmt.Sscanf(period, "%4d-W%2d", &year, &week); err != nil || n != 2 {
		return 0, 0, false
	}
	if week < 1 || week > 53 {
		return 0, 0, false
	}
	return year, week, true
}

// isoWeekStart returns the Monday of the given ISO week. January 4th
// always falls in week 1.
func isoWeekStart(year, week int) time.Time {
	jan4 := time.Date(year, 1, 4, 0, 0, 0, 0, time.UTC)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	monday := jan4.AddDate(0, 0, 1-weekday)
	return monday.AddDate(0, 0, (week-1)*7)
}

// Summarize aggregates expense rows into a summary for the period
// starting at start.
func Summarize(expenses []core.Expense, start time.Time) core.MonthSummary {
	summary := core.MonthSummary{
		Year:  start.Year(),
		Month: int(start.Month()),
		Count: len(expenses),
	}

	byCategory := make(map[core.Category]int64)
	for _, e := range expenses {
		summary.Total.Cents += e.Amount.Cents
		byCategory[e.Category] += e.Amount.Cents
	}
	for cat, cents := range byCategory {
		summary.ByCategory = append(summary.ByCategory, core.CategoryAmount{
			Category: cat,
			Amount:   core.Money{Cents: cents},
		})
	}
	sort.Slice(summary.ByCategory, func(i, j int) bool {
		return summary.ByCategory[i].Amount.Cents > summary.ByCategory[j].Amount.Cents
	})
	return summary
}

// RenderBody writes the plain-text email body for a report.
func RenderBody(user *core.User, period string, summary core.MonthSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", user.Name)
	fmt.Fprintf(&b, "Here is your spending report for %s.\n\n", period)
	fmt.Fprintf(&b, "Total spent: %s across %d expenses.\n", summary.Total, summary.Count)

	if len(summary.ByCategory) > 0 {
		b.WriteString("\nBy category:\n")
		for _, ca := range summary.ByCategory {
			fmt.Fprintf(&b, "  %-13s %s\n", ca.Category, ca.Amount)
		}
	}

	if user.Budget.Monthly.Cents > 0 {
		if summary.OverBudget(user.Budget) {
			over := core.Money{Cents: summary.Total.Cents - user.Budget.Monthly.Cents}
			fmt.Fprintf(&b, "\nYou went %s over your monthly budget of %s.\n", over, user.Budget.Monthly)
		} else {
			left := core.Money{Cents: user.Budget.Monthly.Cents - summary.Total.Cents}
			fmt.Fprintf(&b, "\nYou have %s left of your monthly budget of %s.\n", left, user.Budget.Monthly)
		}
	}

	b.WriteString("\nA detailed spreadsheet is attached.\n")
	return b.String()
}
