// Package capture implements turn-by-turn experience trigger detection,
// auto-store redirection, and the session-end missed-extraction sweep
// (spec sections 4.3.2, 4.3.3). Grounded on the teacher's
// internal/service/memory/service.go capture/creation workflow, generalized
// from keyword-triggered node creation to regex-family trigger detection
// feeding a typed Experience entry.
package capture

import (
	"regexp"
	"strings"

	"github.com/agentmemory/memoryd/internal/domain/entrytype"
)

// trigger is one labeled cue in the high-confidence experience family.
type trigger struct {
	id    string
	regex *regexp.Regexp
}

// triggers is the fixed regex-family catalog (spec section 4.3.2). Capture
// group 1 is the title/cause clause, group 2 (when present) the
// scenario/outcome clause.
var triggers = []trigger{
	{id: "fixed-by", regex: regexp.MustCompile(`(?i)\bfixed\s+(.+?)\s+by\s+(.+)`)},
	{id: "learned-that", regex: regexp.MustCompile(`(?i)\blearned\s+that\s+(.+?)\s+(?:when|while)\s+(.+)`)},
	{id: "root-cause", regex: regexp.MustCompile(`(?i)\broot\s+cause\s+was\s+(.+)`)},
	{id: "fix-was", regex: regexp.MustCompile(`(?i)\b(?:the\s+)?(?:fix|solution)\s+was\s+(.+)`)},
	{id: "figured-out", regex: regexp.MustCompile(`(?i)\bfigured\s+out\s+(.+?)\s+by\s+(.+)`)},
	{id: "colon-summary", regex: regexp.MustCompile(`^([^:]{4,80}):\s*(.+)$`)},
}

// Detector inspects free text for experience cues.
type Detector struct{}

// NewDetector constructs a Detector.
func NewDetector() *Detector { return &Detector{} }

// HasHighConfidenceTrigger reports whether text matches any trigger in the
// catalog other than the low-signal colon-summary pattern alone.
func (d *Detector) HasHighConfidenceTrigger(text string) bool {
	for _, tr := range triggers {
		if tr.id == "colon-summary" {
			continue
		}
		if tr.regex.MatchString(text) {
			return true
		}
	}
	return false
}

// Parsed is the regex-heuristic decomposition of an experience-worthy turn.
type Parsed struct {
	Title    string
	Scenario string
	Outcome  entrytype.ExperienceOutcome
	Category string
}

// Parse extracts {title, scenario, outcome} from text via regex heuristics
// (spec section 4.3.2). ok is false when no trigger, high-confidence or
// not, matches.
func (d *Detector) Parse(text string) (Parsed, bool) {
	text = strings.TrimSpace(text)
	for _, tr := range triggers {
		m := tr.regex.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		switch tr.id {
		case "fixed-by":
			return Parsed{
				Title:    truncateTitle("fixed: " + m[1]),
				Scenario: m[1] + " — fixed by " + m[2],
				Outcome:  entrytype.OutcomeSuccess,
				Category: inferCategory(text),
			}, true
		case "learned-that":
			return Parsed{
				Title:    truncateTitle("learned: " + m[1]),
				Scenario: m[2],
				Outcome:  entrytype.OutcomeSuccess,
				Category: inferCategory(text),
			}, true
		case "root-cause":
			return Parsed{
				Title:    truncateTitle("root cause: " + m[1]),
				Scenario: text,
				Outcome:  entrytype.OutcomeFailure,
				Category: inferCategory(text),
			}, true
		case "fix-was":
			return Parsed{
				Title:    truncateTitle("fix: " + m[1]),
				Scenario: text,
				Outcome:  entrytype.OutcomeSuccess,
				Category: inferCategory(text),
			}, true
		case "figured-out":
			return Parsed{
				Title:    truncateTitle("figured out: " + m[1]),
				Scenario: m[1] + " — " + m[2],
				Outcome:  entrytype.OutcomeSuccess,
				Category: inferCategory(text),
			}, true
		case "colon-summary":
			return Parsed{
				Title:    truncateTitle(m[1]),
				Scenario: m[2],
				Outcome:  entrytype.OutcomePartial,
				Category: inferCategory(text),
			}, true
		}
	}
	return Parsed{}, false
}

func truncateTitle(s string) string {
	s = strings.TrimSpace(s)
	const max = 120
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// inferCategory assigns a free-text category bucket from coarse keyword
// signals; Experience.Category is not a closed enum (spec section 3).
var (
	testingWords     = regexp.MustCompile(`\b(test\w*|specs?)\b`)
	deploymentWords  = regexp.MustCompile(`\b(deploy\w*|ci|pipelines?)\b`)
	securityWords    = regexp.MustCompile(`\b(security|auth\w*)\b`)
	performanceWords = regexp.MustCompile(`\b(performance|latency|slow\w*)\b`)
)

func inferCategory(text string) string {
	lower := strings.ToLower(text)
	switch {
	case testingWords.MatchString(lower):
		return "testing"
	case deploymentWords.MatchString(lower):
		return "deployment"
	case securityWords.MatchString(lower):
		return "security"
	case performanceWords.MatchString(lower):
		return "performance"
	default:
		return "general"
	}
}
