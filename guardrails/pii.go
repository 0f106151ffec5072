package guardrails

import (
	"fmt"
	"regexp"
)

type piiPattern struct {
	kind        string
	pattern     *regexp.Regexp
	replacement string
}

// Patterns apply in order; earlier redactions keep later, looser patterns
// from re-matching the same span.
var piiPatterns = []piiPattern{
	{"email", regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[EMAIL_REDACTED]"},
	{"phone", regexp.MustCompile(`\b(?:\+?1[-.\s]?)?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}\b`), "[PHONE_REDACTED]"},
	{"ssn", regexp.MustCompile(`\b\d{3}-?\d{2}-?\d{4}\b`), "[SSN_REDACTED]"},
	{"credit_card", regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`), "[CREDIT_CARD_REDACTED]"},
	{"ip_address", regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`), "[IP_REDACTED]"},
	{"url", regexp.MustCompile(`https?://[^\s]+`), "[URL_REDACTED]"},
}

// RedactPII replaces recognized PII spans with typed placeholders. The
// second return lists each redaction as "kind: match".
func RedactPII(text string) (string, []string) {
	var violations []string
	redacted := text

	for _, p := range piiPatterns {
		matches := p.pattern.FindAllString(redacted, -1)
		if len(matches) == 0 {
			continue
		}
		for _, m := range matches {
			violations = append(violations, fmt.Sprintf("%s: %s", p.kind, m))
		}
		redacted = p.pattern.ReplaceAllString(redacted, p.replacement)
	}
	return redacted, violations
}
