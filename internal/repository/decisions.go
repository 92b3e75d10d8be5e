package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/agentmemory/memoryd/internal/errors"
	"github.com/agentmemory/memoryd/internal/store/sqlite"
)

// Decision is one row of decision_log: a capture/retrieval/consolidation
// decision recorded with enough context to later derive DPO preference
// pairs from it (spec section 4.4).
type Decision struct {
	ID            string
	Surface       string // "extraction", "retrieval", or "consolidation"
	StateFeatures string // JSON-encoded feature map; bucketed by the caller
	Prompt        string
	Outcome       string
	Reward        float64
	CreatedAt     time.Time
}

// DecisionRepository is the read/write path for decision_log, the audit
// trail DPO export reshapes into preference pairs.
type DecisionRepository struct {
	db *sqlite.DB
}

// NewDecisionRepository constructs a DecisionRepository.
func NewDecisionRepository(db *sqlite.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

// Record appends a decision. Recording is best-effort from the caller's
// perspective (classification/capture/query already degrade independently
// of this write succeeding) but any storage error is still surfaced so the
// caller can log it.
func (r *DecisionRepository) Record(ctx context.Context, d Decision) *apperrors.UnifiedError {
	const op = "decisions.record"
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO decision_log (id, surface, state_features, prompt, outcome, reward, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Surface, d.StateFeatures, d.Prompt, d.Outcome, d.Reward, d.CreatedAt)
	if err != nil {
		return apperrors.NewInternal(op, "insert decision_log row", err)
	}
	return nil
}

// ListBySurfaces returns every decision recorded for any of surfaces,
// oldest first. An empty surfaces list returns every surface.
func (r *DecisionRepository) ListBySurfaces(ctx context.Context, surfaces []string) ([]Decision, *apperrors.UnifiedError) {
	const op = "decisions.listBySurfaces"
	query := `SELECT id, surface, state_features, prompt, outcome, reward, created_at FROM decision_log`
	var args []any
	if len(surfaces) > 0 {
		query += ` WHERE surface IN (` + placeholders(len(surfaces)) + `)`
		for _, s := range surfaces {
			args = append(args, s)
		}
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternal(op, "query decision_log", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		if scanErr := rows.Scan(&d.ID, &d.Surface, &d.StateFeatures, &d.Prompt, &d.Outcome, &d.Reward, &d.CreatedAt); scanErr != nil {
			return nil, apperrors.NewInternal(op, "scan decision_log row", scanErr)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternal(op, "iterate decision_log rows", err)
	}
	return out, nil
}
