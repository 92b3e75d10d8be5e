// Package entrytype defines Entry and its four concrete variants
// (Guideline, Knowledge, Tool, Experience), the polymorphic unit the query
// engine retrieves (spec section 3). Grounded on the teacher's
// internal/domain/node/node.go (the single concrete entity it retrieves)
// generalized into a small closed type hierarchy.
package entrytype

import (
	"time"

	"github.com/google/uuid"

	"github.com/agentmemory/memoryd/internal/domain/scope"
)

// Kind identifies which concrete Entry variant a row represents.
type Kind string

const (
	KindGuideline  Kind = "guideline"
	KindKnowledge  Kind = "knowledge"
	KindTool       Kind = "tool"
	KindExperience Kind = "experience"
)

// Common carries the four invariants every Entry shares (spec section 3):
// scope, createdBy/createdAt/updatedAt, isActive soft-delete, opaque id.
type Common struct {
	ID        string
	Scope     scope.Scope
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
	IsActive  bool
}

// NewCommon stamps a fresh Common with a random opaque id and timestamps.
func NewCommon(s scope.Scope, createdBy string, now time.Time) Common {
	return Common{
		ID:        uuid.New().String(),
		Scope:     s,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
		IsActive:  true,
	}
}

// GuidelineCategory enumerates spec section 3's Guideline category set.
type GuidelineCategory string

const (
	CategorySecurity    GuidelineCategory = "security"
	CategoryCodeStyle   GuidelineCategory = "code_style"
	CategoryTesting     GuidelineCategory = "testing"
	CategoryPerformance GuidelineCategory = "performance"
	CategoryWorkflow    GuidelineCategory = "workflow"
)

// Guideline is a prescriptive rule.
type Guideline struct {
	Common
	Name     string // slug, unique within scope
	Content  string
	Category GuidelineCategory
	Priority int // [0,100]
}

func (g *Guideline) Kind() Kind { return KindGuideline }

// KnowledgeCategory enumerates spec section 3's Knowledge category set.
type KnowledgeCategory string

const (
	KnowledgeDecision     KnowledgeCategory = "decision"
	KnowledgeFact         KnowledgeCategory = "fact"
	KnowledgeContext      KnowledgeCategory = "context"
	KnowledgeReference    KnowledgeCategory = "reference"
	KnowledgeArchitecture KnowledgeCategory = "architecture"
)

// Knowledge is a fact/decision/reference with optional temporal validity.
type Knowledge struct {
	Common
	Title       string
	Content     string
	Category    KnowledgeCategory
	Confidence  float64 // [0,1]
	ValidFrom   *time.Time
	ValidUntil  *time.Time
}

func (k *Knowledge) Kind() Kind { return KindKnowledge }

// ValidAt reports whether the knowledge entry's temporal window covers t.
func (k *Knowledge) ValidAt(t time.Time) bool {
	if k.ValidFrom != nil && t.Before(*k.ValidFrom) {
		return false
	}
	if k.ValidUntil != nil && t.After(*k.ValidUntil) {
		return false
	}
	return true
}

// ToolCategory enumerates spec section 3's Tool category set.
type ToolCategory string

const (
	ToolMCP      ToolCategory = "mcp"
	ToolCLI      ToolCategory = "cli"
	ToolFunction ToolCategory = "function"
	ToolAPI      ToolCategory = "api"
)

// Tool is a command or callable, carrying a version chain.
type Tool struct {
	Common
	Name           string // slug, unique within scope
	Description    string
	Category       ToolCategory
	CurrentVersion string // points at the latest version's id
}

func (t *Tool) Kind() Kind { return KindTool }

// ExperienceOutcome enumerates spec section 3's Experience outcome set.
type ExperienceOutcome string

const (
	OutcomeSuccess   ExperienceOutcome = "success"
	OutcomePartial   ExperienceOutcome = "partial"
	OutcomeFailure   ExperienceOutcome = "failure"
	OutcomeAbandoned ExperienceOutcome = "abandoned"
)

// Experience is a captured post-hoc narrative.
type Experience struct {
	Common
	Title       string
	Scenario    string
	Outcome     ExperienceOutcome
	Qualifier   string // free-text qualifier attached to Outcome
	Category    string // auto-inferred, not a closed enum
	Confidence  float64
}

func (e *Experience) Kind() Kind { return KindExperience }

// Entry is implemented by all four concrete variants; the query pipeline
// operates on this interface so it never needs a type switch to read the
// shared fields.
type Entry interface {
	Kind() Kind
}

var (
	_ Entry = (*Guideline)(nil)
	_ Entry = (*Knowledge)(nil)
	_ Entry = (*Tool)(nil)
	_ Entry = (*Experience)(nil)
)
