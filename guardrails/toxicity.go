package guardrails

import (
	"fmt"
	"strings"
)

// DefaultToxicityThreshold is the severity at which content gets blocked.
const DefaultToxicityThreshold = 0.7

type toxicCategory struct {
	name     string
	severity float64
	keywords []string
}

// Keyword matching is a deliberately simple stand-in for a model-based
// classifier; categories carry fixed severities.
var toxicCategories = []toxicCategory{
	{"hate_speech", 1.0, []string{"hate", "nazi", "terrorist"}},
	{"violence", 0.9, []string{"kill", "murder", "bomb", "attack"}},
	{"harassment", 0.6, []string{"stupid", "idiot", "moron"}},
	{"profanity", 0.3, []string{"damn", "hell"}},
}

// CheckToxicity scans text for toxic keywords. It reports whether the
// highest matched severity meets threshold, the severity itself, and each
// match as "category: keyword".
func CheckToxicity(text string, threshold float64) (bool, float64, []string) {
	if threshold <= 0 {
		threshold = DefaultToxicityThreshold
	}
	lower := strings.ToLower(text)

	var violations []string
	var maxSeverity float64

	for _, cat := range toxicCategories {
		for _, kw := range cat.keywords {
			if strings.Contains(lower, kw) {
				violations = append(violations, fmt.Sprintf("%s: %s", cat.name, kw))
				if cat.severity > maxSeverity {
					maxSeverity = cat.severity
				}
			}
		}
	}
	return maxSeverity >= threshold, maxSeverity, violations
}
