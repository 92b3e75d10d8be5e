package validation

import (
	"regexp"

	apperrors "github.com/agentmemory/memoryd/internal/errors"
)

// redosStructuralPatterns matches the regex-of-regexes described in spec
// section 7: nested quantifiers, overlapping alternation, catastrophic
// backtracking, and excessive bounded repetition. These are detected by
// inspecting the pattern text itself, never by executing it.
var redosStructuralPatterns = []*regexp.Regexp{
	// Nested quantifiers: (x+)+, (x*)*, (x?)+, etc.
	regexp.MustCompile(`\([^()]*[+*?]\)[+*]`),
	// Overlapping alternation repeated: (a|a)+, (ab|a)+
	regexp.MustCompile(`\([^()|]*\|[^()]*\)[+*]`),
	// Catastrophic backtracking: (.*)*  (.+)+  etc.
	regexp.MustCompile(`\(\.[+*]\)[+*]`),
}

// excessiveBoundedRepetition matches bounded quantifiers whose upper bound
// exceeds a sane ceiling, e.g. `.{1,50000}`.
var excessiveBoundedRepetition = regexp.MustCompile(`\{\s*\d+\s*,\s*(\d+)\s*\}`)

const maxBoundedRepetition = 10_000

// CheckRegexSafety rejects patterns exceeding REGEX_PATTERN_MAX_LENGTH by
// length before any structural inspection (cheapest check first), then
// rejects patterns matching a known catastrophic-backtracking shape.
func CheckRegexSafety(op, pattern string, maxLength int) *apperrors.UnifiedError {
	if len(pattern) > maxLength {
		return apperrors.NewSizeLimitExceeded(op, "pattern", maxLength, len(pattern), "characters")
	}
	for _, structural := range redosStructuralPatterns {
		if structural.MatchString(pattern) {
			return apperrors.NewValidation(op, "regex pattern has a catastrophic-backtracking shape")
		}
	}
	if matches := excessiveBoundedRepetition.FindAllStringSubmatch(pattern, -1); matches != nil {
		for _, m := range matches {
			if n := parseIntSafe(m[1]); n > maxBoundedRepetition {
				return apperrors.NewValidation(op, "regex pattern has excessive bounded repetition")
			}
		}
	}
	return nil
}

func parseIntSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
		if n > 1<<30 {
			return n
		}
	}
	return n
}
