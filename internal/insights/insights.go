// Package insights produces short spending tips for a user from their
// recent activity. The primary generator is Gemini; when no API key is
// configured a static rule-based fallback keeps the endpoint useful.
package insights

import (
	"context"
	"fmt"
	"strings"

	"spendwise/internal/core"
)

const maxTips = 5

// Snapshot is the material a generator works from.
type Snapshot struct {
	Summary core.MonthSummary
	Budget  core.Budget
	Goals   []core.Goal
}

// Generator turns a spending snapshot into a handful of tips.
type Generator interface {
	Generate(ctx context.Context, snap Snapshot) ([]string, error)
}

// buildPrompt renders the snapshot as plain text for the model.
func buildPrompt(snap Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a personal finance assistant for a student in India.\n")
	fmt.Fprintf(&b, "Month %04d-%02d: total spent %s across %d expenses.\n",
		snap.Summary.Year, snap.Summary.Month, snap.Summary.Total, snap.Summary.Count)
	for _, ca := range snap.Summary.ByCategory {
		fmt.Fprintf(&b, "- %s: %s\n", ca.Category, ca.Amount)
	}
	if snap.Budget.Monthly.Cents > 0 {
		fmt.Fprintf(&b, "Monthly budget: %s.\n", snap.Budget.Monthly)
	}
	for _, g := range snap.Goals {
		fmt.Fprintf(&b, "Goal %q: saved %s of %s, deadline %s.\n",
			g.Title, core.Money{Cents: g.SavedAmount}, g.TargetAmount, g.Deadline.Format("2006-01-02"))
	}
	b.WriteString("\nGive at most 5 short, concrete saving tips, one per line.\n")
	b.WriteString("Plain sentences only. No numbering, no Markdown, no preamble.\n")
	return b.String()
}

// splitTips normalizes model output into a bounded list of clean lines.
func splitTips(text string) []string {
	var tips []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•0123456789. ")
		if line == "" {
			continue
		}
		tips = append(tips, line)
		if len(tips) == maxTips {
			break
		}
	}
	return tips
}
