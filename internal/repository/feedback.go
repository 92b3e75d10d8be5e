package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/domain/feedback"
	apperrors "github.com/agentmemory/memoryd/internal/errors"
	"github.com/agentmemory/memoryd/internal/store/sqlite"
)

// FeedbackRepository owns ClassificationFeedback and PatternConfidence rows
// backing the classifier's learning loop (spec section 4.3.1).
type FeedbackRepository struct {
	db  *sqlite.DB
	log *zap.Logger
}

// NewFeedbackRepository constructs a FeedbackRepository.
func NewFeedbackRepository(db *sqlite.DB, log *zap.Logger) *FeedbackRepository {
	return &FeedbackRepository{db: db, log: log}
}

// RecordCorrection appends a ClassificationFeedback row.
func (r *FeedbackRepository) RecordCorrection(ctx context.Context, fb feedback.ClassificationFeedback) *apperrors.UnifiedError {
	const op = "feedback.recordCorrection"
	if fb.ID == "" {
		fb.ID = uuid.New().String()
	}
	err := r.db.WithWriteTx(ctx, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, `
			INSERT INTO classification_feedback (id, text_hash, predicted, actual, method, confidence, was_correct, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			fb.ID, fb.TextHash, fb.Predicted, fb.Actual, fb.Method, fb.Confidence, fb.WasCorrect, fb.CreatedAt)
		return execErr
	})
	if err != nil {
		return apperrors.NewInternal(op, "insert feedback failed", err)
	}
	return nil
}

// GetPattern returns a pattern's confidence row, or the zero-value default
// (multiplier 1.0) when no row exists yet.
func (r *FeedbackRepository) GetPattern(ctx context.Context, patternID string) (feedback.PatternConfidence, *apperrors.UnifiedError) {
	const op = "feedback.getPattern"
	var pc feedback.PatternConfidence
	err := r.db.Conn().QueryRowContext(ctx, `
		SELECT pattern_id, pattern_type, base_weight, feedback_multiplier, total_matches, correct_matches, incorrect_matches
		FROM pattern_confidence WHERE pattern_id = ?`, patternID).
		Scan(&pc.PatternID, &pc.PatternType, &pc.BaseWeight, &pc.FeedbackMultiplier, &pc.TotalMatches, &pc.CorrectMatches, &pc.IncorrectMatches)
	if err == sql.ErrNoRows {
		return feedback.PatternConfidence{PatternID: patternID, FeedbackMultiplier: 1.0}, nil
	}
	if err != nil {
		return feedback.PatternConfidence{}, apperrors.NewInternal(op, "lookup pattern failed", err)
	}
	return pc, nil
}

// UpsertPattern writes back a pattern's updated confidence state.
func (r *FeedbackRepository) UpsertPattern(ctx context.Context, pc feedback.PatternConfidence) *apperrors.UnifiedError {
	const op = "feedback.upsertPattern"
	err := r.db.WithWriteTx(ctx, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, `
			INSERT INTO pattern_confidence (pattern_id, pattern_type, base_weight, feedback_multiplier, total_matches, correct_matches, incorrect_matches, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(pattern_id) DO UPDATE SET
				feedback_multiplier = excluded.feedback_multiplier,
				total_matches = excluded.total_matches,
				correct_matches = excluded.correct_matches,
				incorrect_matches = excluded.incorrect_matches,
				updated_at = excluded.updated_at`,
			pc.PatternID, pc.PatternType, pc.BaseWeight, pc.FeedbackMultiplier, pc.TotalMatches, pc.CorrectMatches, pc.IncorrectMatches, time.Now().UTC())
		return execErr
	})
	if err != nil {
		return apperrors.NewInternal(op, "upsert pattern failed", err)
	}
	return nil
}
