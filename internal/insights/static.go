package insights

import (
	"context"
	"fmt"
	"time"

	"spendwise/internal/core"
)

// StaticGenerator derives tips from the snapshot with fixed rules. It
// backs the insights endpoint when no Gemini key is configured.
type StaticGenerator struct{}

var _ Generator = StaticGenerator{}

func (StaticGenerator) Generate(_ context.Context, snap Snapshot) ([]string, error) {
	var tips []string

	if snap.Budget.Monthly.Cents > 0 && snap.Summary.Total.Cents > snap.Budget.Monthly.Cents {
		over := core.Money{Cents: snap.Summary.Total.Cents - snap.Budget.Monthly.Cents}
		tips = append(tips, fmt.Sprintf("You are %s over your monthly budget. Review your biggest category below.", over))
	}

	if top, ok := topCategory(snap.Summary); ok {
		tips = append(tips, fmt.Sprintf("%s is your largest category this month at %s. Set a per-category limit for it.", top.Category, top.Amount))
	}

	monthStart := time.Date(snap.Summary.Year, time.Month(snap.Summary.Month), 1, 0, 0, 0, 0, time.UTC)
	for _, g := range snap.Goals {
		if cents := g.RecommendedMonthly(monthStart); cents > 0 {
			tips = append(tips, fmt.Sprintf("Put aside %s this month to stay on track for %q.", core.Money{Cents: cents}, g.Title))
			break
		}
	}

	if len(tips) == 0 {
		tips = append(tips, "Spending looks steady. Log every expense, even small cash ones, to keep it that way.")
	}
	if len(tips) > maxTips {
		tips = tips[:maxTips]
	}
	return tips, nil
}

func topCategory(s core.MonthSummary) (core.CategoryAmount, bool) {
	var top core.CategoryAmount
	for _, ca := range s.ByCategory {
		if ca.Amount.Cents > top.Amount.Cents {
			top = ca
		}
	}
	return top, top.Amount.Cents > 0
}
