package receipt

import "testing"

func TestExtractDate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"labeled day first", "SITA ATTA CHAKKI\nDate: 05/03/2024\nTotal 45.00", "2024-03-05"},
		{"labeled with hyphens", "Date: 5-3-2024", "2024-03-05"},
		{"labeled with dots", "Date: 15.12.2023", "2023-12-15"},
		{"unlabeled year first", "receipt 2024/03/05 thanks", "2024-03-05"},
		{"unlabeled day first", "bought on 17/08/2024 by cash", "2024-08-17"},
		{"single digit padding", "Date: 7/4/2024", "2024-04-07"},
		{"year first single digits", "2024/3/5", "2024-03-05"},
		{"two digit year passes through", "Date: 05/03/24", "05/03/24"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractDate(tt.text)
			if got == nil {
				t.Fatalf("extractDate(%q) = nil, want %q", tt.text, tt.want)
			}
			if *got != tt.want {
				t.Errorf("extractDate(%q) = %q, want %q", tt.text, *got, tt.want)
			}
		})
	}
}

func TestExtractDateLabeledLinePreferred(t *testing.T) {
	// The labeled line wins even when another date appears first.
	text := "printed 01/01/2020\nDate: 05/03/2024"
	got := extractDate(text)
	if got == nil || *got != "2024-03-05" {
		t.Fatalf("extractDate = %v, want 2024-03-05", got)
	}
}

func TestExtractDateMalformedLabelFallsBack(t *testing.T) {
	// Label present but carries no date token: the global scan still applies.
	text := "Date: n/a\nvisited 05/03/2024"
	got := extractDate(text)
	if got == nil || *got != "2024-03-05" {
		t.Fatalf("extractDate = %v, want 2024-03-05", got)
	}
}

func TestExtractDateAbsent(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no digits", "CASH RECEIPT\nThank you"},
		{"malformed label only", "Date: tomorrow"},
		{"plain number", "order 12345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractDate(tt.text); got != nil {
				t.Errorf("extractDate(%q) = %q, want nil", tt.text, *got)
			}
		})
	}
}
