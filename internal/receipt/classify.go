package receipt

import (
	"regexp"

	"spendwise/internal/core"
)

// Classification is an ordered rule list evaluated first-match-wins; order is
// part of the contract, since one receipt can satisfy several rules.

type categoryRule struct {
	pattern *regexp.Regexp
	label   core.Category
}

var categoryRules = []categoryRule{
	{regexp.MustCompile(`(?i)wheat|aata|atta|flour|rice|dal|grain`), core.CategoryFood},
	{regexp.MustCompile(`(?i)travel|bus|taxi|uber|ola|train|flight|air`), core.CategoryTravel},
	{regexp.MustCompile(`(?i)stationery|book|pen|notebook|copy`), core.CategoryStationery},
	{regexp.MustCompile(`(?i)subscription|netflix|prime|spotify|membership`), core.CategorySubscription},
	{regexp.MustCompile(`(?i)gift|present|donation`), core.CategoryGift},
}

// classifyCategory assigns a spending category from item keywords, Misc when
// nothing matches.
func classifyCategory(text string) core.Category {
	for _, rule := range categoryRules {
		if rule.pattern.MatchString(text) {
			return rule.label
		}
	}
	return core.CategoryMisc
}

type sourceRule struct {
	pattern *regexp.Regexp
	label   core.Source
}

var sourceRules = []sourceRule{
	{regexp.MustCompile(`(?i)upi|gpay|paytm|phonepe`), core.SourceUPI},
	{regexp.MustCompile(`(?i)card|credit|debit`), core.SourceCard},
	{regexp.MustCompile(`(?i)cash`), core.SourceCash},
}

// classifySource assigns a payment method, Unknown when nothing matches.
func classifySource(text string) core.Source {
	for _, rule := range sourceRules {
		if rule.pattern.MatchString(text) {
			return rule.label
		}
	}
	return core.SourceUnknown
}
