package capture

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/classification"
	"github.com/agentmemory/memoryd/internal/domain/entrytype"
	"github.com/agentmemory/memoryd/internal/domain/scope"
	apperrors "github.com/agentmemory/memoryd/internal/errors"
)

// experienceThreshold is the classifier-confidence ceiling below which a
// high-confidence trigger redirects the remember path (spec section 4.3.2).
const experienceThreshold = 0.9

// Notifier delivers best-effort, user-visible notices. Delivery MUST be
// non-blocking with respect to the caller (spec section 4.3.2); a worker
// queue implementation backs this in production, a Noop in tests.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Noop discards every notification.
type Noop struct{}

func (Noop) Notify(context.Context, string) {}

// EntryStore is the subset of repository.EntryRepository the capture
// pipeline writes through.
type EntryStore interface {
	CreateGuideline(ctx context.Context, agent string, g *entrytype.Guideline) *apperrors.UnifiedError
	CreateKnowledge(ctx context.Context, agent string, k *entrytype.Knowledge) *apperrors.UnifiedError
	CreateTool(ctx context.Context, agent string, t *entrytype.Tool) *apperrors.UnifiedError
	CreateExperience(ctx context.Context, agent string, e *entrytype.Experience) *apperrors.UnifiedError
}

// Pipeline orchestrates classification, trigger redirection, and storage
// for a single conversational turn (spec section 4.3.2).
type Pipeline struct {
	classifier *classification.Classifier
	detector   *Detector
	entries    EntryStore
	notifier   Notifier
	log        *zap.Logger
}

// New constructs a Pipeline.
func New(classifier *classification.Classifier, entries EntryStore, notifier Notifier, log *zap.Logger) *Pipeline {
	if notifier == nil {
		notifier = Noop{}
	}
	return &Pipeline{classifier: classifier, detector: NewDetector(), entries: entries, notifier: notifier, log: log}
}

// RememberParams is the caller-supplied input to Remember.
type RememberParams struct {
	Text      string
	Scope     scope.Scope
	Agent     string
	ForceType classification.Type
	PreferLLM bool
}

// RememberResult reports what Remember actually stored.
type RememberResult struct {
	Type             entrytype.Kind
	ID               string
	Confidence       float64
	Method           classification.Method
	AutoStoredNotice bool
}

// Remember classifies text and stores it as the appropriate entry kind,
// redirecting to the experience path when a high-confidence trigger fires
// and the caller did not force a type (spec section 4.3.2).
func (p *Pipeline) Remember(ctx context.Context, params RememberParams) (RememberResult, *apperrors.UnifiedError) {
	result := p.classifier.Classify(ctx, params.Text, params.ForceType, params.PreferLLM)

	if params.ForceType == "" && p.detector.HasHighConfidenceTrigger(params.Text) && result.Confidence < experienceThreshold {
		return p.captureExperience(ctx, params)
	}

	return p.storeByType(ctx, params, result)
}

func (p *Pipeline) captureExperience(ctx context.Context, params RememberParams) (RememberResult, *apperrors.UnifiedError) {
	parsed, ok := p.detector.Parse(params.Text)
	if !ok {
		// Trigger fired but the heuristic parse failed; fall back to the
		// non-redirected path rather than store a malformed experience.
		result := p.classifier.Classify(ctx, params.Text, params.ForceType, params.PreferLLM)
		return p.storeByType(ctx, params, result)
	}

	now := time.Now().UTC()
	exp := &entrytype.Experience{
		Common:     entrytype.NewCommon(params.Scope, params.Agent, now),
		Title:      parsed.Title,
		Scenario:   parsed.Scenario,
		Outcome:    parsed.Outcome,
		Category:   parsed.Category,
		Confidence: 0.75,
	}
	if err := p.entries.CreateExperience(ctx, params.Agent, exp); err != nil {
		return RememberResult{}, err
	}

	p.notifier.Notify(ctx, "auto-stored as experience: "+parsed.Title)

	return RememberResult{
		Type:             entrytype.KindExperience,
		ID:               exp.ID,
		Confidence:       exp.Confidence,
		Method:           classification.MethodRegex,
		AutoStoredNotice: true,
	}, nil
}

func (p *Pipeline) storeByType(ctx context.Context, params RememberParams, result classification.Result) (RememberResult, *apperrors.UnifiedError) {
	now := time.Now().UTC()
	common := entrytype.NewCommon(params.Scope, params.Agent, now)

	switch result.Type {
	case classification.TypeGuideline:
		g := &entrytype.Guideline{Common: common, Name: slugify(params.Text), Content: params.Text, Category: entrytype.CategoryWorkflow, Priority: 50}
		if err := p.entries.CreateGuideline(ctx, params.Agent, g); err != nil {
			return RememberResult{}, err
		}
		return RememberResult{Type: entrytype.KindGuideline, ID: g.ID, Confidence: result.Confidence, Method: result.Method}, nil
	case classification.TypeTool:
		t := &entrytype.Tool{Common: common, Name: slugify(params.Text), Description: params.Text, Category: entrytype.ToolCLI}
		if err := p.entries.CreateTool(ctx, params.Agent, t); err != nil {
			return RememberResult{}, err
		}
		return RememberResult{Type: entrytype.KindTool, ID: t.ID, Confidence: result.Confidence, Method: result.Method}, nil
	default:
		k := &entrytype.Knowledge{Common: common, Title: truncateTitle(params.Text), Content: params.Text, Category: entrytype.KnowledgeFact, Confidence: result.Confidence}
		if err := p.entries.CreateKnowledge(ctx, params.Agent, k); err != nil {
			return RememberResult{}, err
		}
		return RememberResult{Type: entrytype.KindKnowledge, ID: k.ID, Confidence: result.Confidence, Method: result.Method}, nil
	}
}

func slugify(text string) string {
	title := truncateTitle(text)
	out := make([]byte, 0, len(title))
	lastDash := false
	for i := 0; i < len(title); i++ {
		c := title[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			out = append(out, c)
			lastDash = false
		case c >= 'A' && c <= 'Z':
			out = append(out, c+32)
			lastDash = false
		case !lastDash:
			out = append(out, '-')
			lastDash = true
		}
	}
	return string(out)
}
