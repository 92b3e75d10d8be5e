// Package extraction defines the narrow language-model provider interface
// the classifier and capture pipelines consume (spec section 1: "concrete...
// language-model providers... consumed via two narrow interfaces"). Any
// language-model call returns a structured decision, never free-form prose
// persisted into the store (spec section 1 Non-goals).
package extraction

import (
	"context"
	"time"
)

// ClassifyResult is the structured decision a language-model classification
// call must return (spec section 4.3.1).
type ClassifyResult struct {
	Type       string
	Confidence float64
	Reasoning  string
}

// Candidate is one extracted entry from a conversation window sweep (spec
// section 4.3.3).
type Candidate struct {
	Type       string
	Title      string
	Content    string
	Category   string
	Confidence float64
}

// Message is the minimal transcript shape the extraction adapter consumes.
type Message struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// Provider is the language-model adapter boundary. Every caller has a
// non-LM fallback (regex patterns) when IsAvailable reports false (spec
// section 9).
type Provider interface {
	IsAvailable() bool
	Classify(ctx context.Context, text string) (ClassifyResult, error)
	ExtractCandidates(ctx context.Context, messages []Message) ([]Candidate, error)
}

// Unavailable is a Provider stub that is always unavailable.
type Unavailable struct{}

func (Unavailable) IsAvailable() bool { return false }
func (Unavailable) Classify(context.Context, string) (ClassifyResult, error) {
	return ClassifyResult{}, errNoProvider
}
func (Unavailable) ExtractCandidates(context.Context, []Message) ([]Candidate, error) {
	return nil, errNoProvider
}

var errNoProvider = providerError("no extraction provider configured")

type providerError string

func (e providerError) Error() string { return string(e) }
