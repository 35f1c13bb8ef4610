package receipt

import "strings"

// unknownVendor is the sentinel reported when the text has no usable lines.
const unknownVendor = "Unknown Vendor"

// extractVendor returns the canonical name of a known merchant found anywhere
// in the text, else the first non-blank line, else the sentinel.
func (e *Extractor) extractVendor(text string) string {
	lower := strings.ToLower(text)
	for _, marker := range e.markers {
		if strings.Contains(lower, marker) {
			return e.vendors[marker]
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return unknownVendor
}
