// Package feedback implements ClassificationFeedback and PatternConfidence,
// the append-only learning-loop log and the per-pattern weight state it
// drives (spec section 4.3.1), grounded on the teacher's category
// confidence-scoring idiom (internal/service/category scoring) generalized
// to a feedback-adjusted multiplier. The multiplier is not decayed by the
// age of the feedback that moved it.
package feedback

import "time"

// Method identifies which classification stage produced a prediction.
type Method string

const (
	MethodForced   Method = "forced"
	MethodRegex    Method = "regex"
	MethodLLM      Method = "llm"
	MethodFallback Method = "fallback"
)

// ClassificationFeedback is an append-only record of a prediction and its
// eventual ground truth, keyed by a hash of the classified text so raw
// content never needs to be retained for training purposes.
type ClassificationFeedback struct {
	ID          string
	TextHash    string
	Predicted   string
	Actual      string
	Method      Method
	Confidence  float64
	WasCorrect  bool
	CreatedAt   time.Time
}

// PatternType groups related patterns for reporting and tuning.
type PatternType string

// PatternConfidence tracks a single pattern's base weight and the
// feedback-driven multiplier nudging it over time.
type PatternConfidence struct {
	PatternID          string
	PatternType        PatternType
	BaseWeight         float64
	FeedbackMultiplier float64 // clamped to [1-maxPatternPenalty, 1+maxPatternBoost]
	TotalMatches       int
	CorrectMatches     int
	IncorrectMatches   int
}

// EffectiveWeight is the weight a match against this pattern contributes to
// a classification decision.
func (p PatternConfidence) EffectiveWeight() float64 {
	return p.BaseWeight * p.FeedbackMultiplier
}

// Accuracy returns the pattern's historical correctness rate, or 0 when it
// has never matched.
func (p PatternConfidence) Accuracy() float64 {
	if p.TotalMatches == 0 {
		return 0
	}
	return float64(p.CorrectMatches) / float64(p.TotalMatches)
}

// ApplyFeedback nudges the multiplier toward the correct/incorrect bound by
// learningRate · (1 − multiplier + bound), clamping to [minMultiplier,
// maxMultiplier] (spec section 4.3.1).
func (p *PatternConfidence) ApplyFeedback(correct bool, learningRate, minMultiplier, maxMultiplier float64) {
	p.TotalMatches++
	if correct {
		p.CorrectMatches++
		p.FeedbackMultiplier += learningRate * (1 - p.FeedbackMultiplier + (maxMultiplier - 1))
	} else {
		p.IncorrectMatches++
		p.FeedbackMultiplier -= learningRate * (1 - p.FeedbackMultiplier + (1 - minMultiplier))
	}
	if p.FeedbackMultiplier > maxMultiplier {
		p.FeedbackMultiplier = maxMultiplier
	}
	if p.FeedbackMultiplier < minMultiplier {
		p.FeedbackMultiplier = minMultiplier
	}
}
