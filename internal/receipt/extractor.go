// Package receipt recovers structured expense fields from raw OCR text.
//
// The extractor is a pipeline of independent pure functions over the same
// immutable text blob: amount, date, vendor, category and payment source are
// each recovered with their own heuristics and fallback rules. It performs no
// I/O and is safe for concurrent use.
package receipt

import (
	"errors"
	"sort"
	"strings"

	"spendwise/internal/core"
)

// ErrNoContent is returned when the input text is empty or whitespace-only.
// It is the only error condition: individual fields that cannot be recovered
// are reported as absent, never as errors.
var ErrNoContent = errors.New("no extractable content in receipt text")

// ExtractedExpense is the best-effort structured reading of one receipt.
// Amount and Date are nil when no heuristic could recover them; Vendor,
// Category and Source always carry a value.
type ExtractedExpense struct {
	Amount   *float64      `json:"amount"`
	Date     *string       `json:"date"`
	Vendor   string        `json:"vendor"`
	Category core.Category `json:"category"`
	Source   core.Source   `json:"source"`
	RawText  string        `json:"text"`
}

// Extractor extracts expense fields from receipt text. The zero value is not
// usable; construct with NewExtractor.
type Extractor struct {
	// vendors maps a lowercase marker substring to the canonical display
	// name reported when the marker occurs anywhere in the text.
	vendors map[string]string
	// markers holds the vendor keys in deterministic match order.
	markers []string
}

// DefaultVendors is the built-in known-merchant table.
var DefaultVendors = map[string]string{
	"sita atta chakki": "SITA ATTA CHAKKI",
}

// NewExtractor returns an Extractor recognizing the given merchants before
// falling back to first-line vendor detection. A nil map uses DefaultVendors.
func NewExtractor(vendors map[string]string) *Extractor {
	if vendors == nil {
		vendors = DefaultVendors
	}
	normalized := make(map[string]string, len(vendors))
	markers := make([]string, 0, len(vendors))
	for marker, canonical := range vendors {
		key := strings.ToLower(strings.TrimSpace(marker))
		if key == "" {
			continue
		}
		normalized[key] = canonical
		markers = append(markers, key)
	}
	sort.Strings(markers)
	return &Extractor{vendors: normalized, markers: markers}
}

// Extract runs every field heuristic over rawText and assembles the result.
// Returns ErrNoContent when rawText is empty or whitespace-only; all other
// outcomes succeed, with unrecoverable fields left absent.
func (e *Extractor) Extract(rawText string) (*ExtractedExpense, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, ErrNoContent
	}
	return &ExtractedExpense{
		Amount:   extractAmount(rawText),
		Date:     extractDate(rawText),
		Vendor:   e.extractVendor(rawText),
		Category: classifyCategory(rawText),
		Source:   classifySource(rawText),
		RawText:  rawText,
	}, nil
}
