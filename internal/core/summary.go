package core

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category
	Amount   Money
}

// MonthSummary is a compact spending summary for a specific year+month.
type MonthSummary struct {
	Year       int
	Month      int // 1-12
	Total      Money
	Count      int
	ByCategory []CategoryAmount
}

// OverBudget reports whether the month's total exceeds the monthly budget.
// A zero budget means no limit is configured.
func (s MonthSummary) OverBudget(b Budget) bool {
	return b.Monthly.Cents > 0 && s.Total.Cents > b.Monthly.Cents
}

// CategoryOverruns returns the categories whose month total exceeds their
// configured per-category budget.
func (s MonthSummary) CategoryOverruns(b Budget) []CategoryAmount {
	if len(b.ByCategory) == 0 {
		return nil
	}
	var over []CategoryAmount
	for _, ca := range s.ByCategory {
		limit, ok := b.ByCategory[ca.Category]
		if ok && limit.Cents > 0 && ca.Amount.Cents > limit.Cents {
			over = append(over, ca)
		}
	}
	return over
}
