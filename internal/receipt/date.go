package receipt

import (
	"regexp"
	"strings"
)

// Date-shaped tokens: day-first style (05/03/2024, 5-3-24) and year-first
// style (2024/03/05). Separators may be slash, hyphen or dot.
var (
	dayFirstPattern  = regexp.MustCompile(`\b\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}\b`)
	yearFirstPattern = regexp.MustCompile(`\b\d{4}[/\-.]\d{1,2}[/\-.]\d{1,2}\b`)

	// labeledDatePattern combines both shapes for scanning a "Date:" line;
	// the day-first alternative is preferred, matching the fallback order.
	labeledDatePattern = regexp.MustCompile(`\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}|\d{4}[/\-.]\d{1,2}[/\-.]\d{1,2}`)

	dateSeparators = regexp.MustCompile(`[/\-.]`)
)

// extractDate recovers a calendar date from receipt text, or nil.
//
// A line labeled "date:" is preferred; otherwise the first date-shaped token
// anywhere in the text is used. Four-digit-year tokens are normalized to
// YYYY-MM-DD assuming day-first order for trailing years. Two-digit-year
// tokens have no reliable century or field order and are returned as matched.
func extractDate(text string) *string {
	var token string
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(strings.ToLower(line), "date:") {
			continue
		}
		token = labeledDatePattern.FindString(line)
		break
	}
	if token == "" {
		token = dayFirstPattern.FindString(text)
	}
	if token == "" {
		token = yearFirstPattern.FindString(text)
	}
	if token == "" {
		return nil
	}

	normalized := normalizeDate(token)
	return &normalized
}

// normalizeDate converts a matched token to YYYY-MM-DD where the year
// position is unambiguous; anything else passes through unchanged.
func normalizeDate(token string) string {
	parts := dateSeparators.Split(token, -1)
	if len(parts) != 3 {
		return token
	}
	switch {
	case len(parts[2]) == 4:
		// DD/MM/YYYY, day-first by regional convention.
		return parts[2] + "-" + pad2(parts[1]) + "-" + pad2(parts[0])
	case len(parts[0]) == 4:
		// YYYY/MM/DD, already year-first.
		return parts[0] + "-" + pad2(parts[1]) + "-" + pad2(parts[2])
	}
	return token
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
