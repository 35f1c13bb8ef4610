package receipt

import (
	"regexp"
	"strconv"
	"strings"
)

// amountPattern matches currency-like tokens: digits, a dot or comma, then
// exactly two decimals. Comma-grouped thousands ("1,000.00") are captured
// whole so the grouping can be stripped before parsing.
var amountPattern = regexp.MustCompile(`[0-9]+(?:,[0-9]{3})*[.,][0-9]{2}`)

// maxPlausibleAmount bounds single-receipt totals; larger matches are assumed
// to be unrelated codes or multi-bill aggregates.
const maxPlausibleAmount = 1000

const signatureCutoffMarker = "authorized signatory"

// extractAmount recovers the paid total from receipt text, or nil.
//
// Lines containing "total" are scanned first, excluding any line at or past
// the "authorized signatory" signature block. The amount repeated most often
// across those lines wins; ties resolve to the occurrence closest to the end
// of the receipt, where the grand total normally sits. When no total line
// yields a candidate, the whole text is scanned and the largest plausible
// value is taken.
func extractAmount(text string) *float64 {
	lower := strings.ToLower(text)
	cutoff := strings.Index(lower, signatureCutoffMarker)

	var candidates []float64
	offset := 0
	for _, line := range strings.Split(text, "\n") {
		lineStart := offset
		offset += len(line) + 1
		if !strings.Contains(strings.ToLower(line), "total") {
			continue
		}
		if cutoff != -1 && lineStart >= cutoff {
			continue
		}
		for _, tok := range amountPattern.FindAllString(line, -1) {
			if v, ok := parseAmountToken(tok); ok {
				candidates = append(candidates, v)
			}
		}
	}

	if len(candidates) > 0 {
		return voteAmount(candidates)
	}

	// Fallback: largest plausible decimal anywhere in the text.
	var best *float64
	for _, tok := range amountPattern.FindAllString(text, -1) {
		v, ok := parseAmountToken(tok)
		if !ok {
			continue
		}
		if best == nil || v > *best {
			val := v
			best = &val
		}
	}
	return best
}

// voteAmount picks the most frequent candidate; ties go to the value that
// occurs latest in scan order.
func voteAmount(candidates []float64) *float64 {
	freq := make(map[float64]int, len(candidates))
	for _, v := range candidates {
		freq[v]++
	}
	maxFreq := 0
	for _, n := range freq {
		if n > maxFreq {
			maxFreq = n
		}
	}
	for i := len(candidates) - 1; i >= 0; i-- {
		if freq[candidates[i]] == maxFreq {
			v := candidates[i]
			return &v
		}
	}
	return nil // unreachable with non-empty candidates
}

// parseAmountToken strips comma grouping and parses the token, accepting only
// positive values under the plausibility bound. A comma used as the decimal
// separator ("100,50") is stripped like grouping and the result lands over
// the bound, so such tokens are rejected rather than misread.
func parseAmountToken(tok string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(tok, ",", ""), 64)
	if err != nil || v <= 0 || v >= maxPlausibleAmount {
		return 0, false
	}
	return v, true
}
