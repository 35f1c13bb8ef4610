package insights

import (
	"context"
	"strings"
	"testing"
	"time"

	"spendwise/internal/core"
)

func TestSplitTips(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "plain lines",
			in:   "Cook at home twice a week\nCancel unused subscriptions",
			want: []string{"Cook at home twice a week", "Cancel unused subscriptions"},
		},
		{
			name: "strips bullets and numbering",
			in:   "1. First tip\n- Second tip\n* Third tip\n• Fourth tip",
			want: []string{"First tip", "Second tip", "Third tip", "Fourth tip"},
		},
		{
			name: "drops blank lines and caps at five",
			in:   "a\n\nb\nc\nd\ne\nf\ng",
			want: []string{"a", "b", "c", "d", "e"},
		},
		{
			name: "empty input",
			in:   "   \n\n",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitTips(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("splitTips(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("tip[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuildPromptIncludesSnapshot(t *testing.T) {
	snap := Snapshot{
		Summary: core.MonthSummary{
			Year: 2024, Month: 3,
			Total: core.Money{Cents: 450000},
			Count: 12,
			ByCategory: []core.CategoryAmount{
				{Category: core.CategoryFood, Amount: core.Money{Cents: 200000}},
			},
		},
		Budget: core.Budget{Monthly: core.Money{Cents: 500000}},
		Goals: []core.Goal{
			{Title: "Laptop", TargetAmount: core.Money{Cents: 6000000}, Deadline: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
	}

	prompt := buildPrompt(snap)
	for _, want := range []string{"2024-03", "4500.00", "Food", "5000.00", "Laptop", "2025-01-01"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestStaticGeneratorOverBudget(t *testing.T) {
	tips, err := StaticGenerator{}.Generate(context.Background(), Snapshot{
		Summary: core.MonthSummary{
			Year: 2024, Month: 3,
			Total: core.Money{Cents: 600000},
			ByCategory: []core.CategoryAmount{
				{Category: core.CategoryTravel, Amount: core.Money{Cents: 400000}},
			},
		},
		Budget: core.Budget{Monthly: core.Money{Cents: 500000}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(tips) < 2 {
		t.Fatalf("tips = %v, want budget warning and category tip", tips)
	}
	if !strings.Contains(tips[0], "over your monthly budget") {
		t.Errorf("tips[0] = %q, want budget warning", tips[0])
	}
	if !strings.Contains(tips[1], "Travel") {
		t.Errorf("tips[1] = %q, want top category Travel", tips[1])
	}
}

func TestStaticGeneratorAlwaysReturnsSomething(t *testing.T) {
	tips, err := StaticGenerator{}.Generate(context.Background(), Snapshot{
		Summary: core.MonthSummary{Year: 2024, Month: 3},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(tips) != 1 {
		t.Fatalf("tips = %v, want single default tip", tips)
	}
}
