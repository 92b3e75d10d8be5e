package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/domain/episode"
	apperrors "github.com/agentmemory/memoryd/internal/errors"
	"github.com/agentmemory/memoryd/internal/store/sqlite"
)

// EpisodeRepository owns Episode, EpisodeEvent and EpisodeLink rows.
type EpisodeRepository struct {
	db  *sqlite.DB
	log *zap.Logger
}

// NewEpisodeRepository constructs an EpisodeRepository.
func NewEpisodeRepository(db *sqlite.DB, log *zap.Logger) *EpisodeRepository {
	return &EpisodeRepository{db: db, log: log}
}

// StartEpisode creates e as the session's active episode. The partial
// unique index on (session_id) WHERE status='active' enforces "a session
// has at most one active episode at any instant" (spec section 3) at the
// storage layer; a violation is surfaced as InvalidAction since the caller
// asked for an action the current state forbids.
func (r *EpisodeRepository) StartEpisode(ctx context.Context, e episode.Episode) *apperrors.UnifiedError {
	const op = "episodes.start"
	e.Status = episode.StatusActive
	err := r.db.WithWriteTx(ctx, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, `
			INSERT INTO episodes (id, session_id, name, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			e.ID, e.SessionID, e.Name, e.Status, e.CreatedAt, e.UpdatedAt)
		if isUniqueViolation(execErr) {
			return apperrors.NewInvalidState(op, "session already has an active episode")
		}
		return execErr
	})
	return asUnified(op, err)
}

// Transition applies a state-machine move and persists the new status.
func (r *EpisodeRepository) Transition(ctx context.Context, episodeID string, to episode.Status) *apperrors.UnifiedError {
	const op = "episodes.transition"
	return asUnified(op, r.db.WithWriteTx(ctx, func(tx *sql.Tx) error {
		var status string
		if scanErr := tx.QueryRowContext(ctx, `SELECT status FROM episodes WHERE id = ?`, episodeID).Scan(&status); scanErr == sql.ErrNoRows {
			return apperrors.NewNotFound(op, "episode")
		} else if scanErr != nil {
			return apperrors.NewInternal(op, "lookup episode failed", scanErr)
		}

		e := episode.Episode{Status: episode.Status(status)}
		now := time.Now().UTC()
		if uerr := e.Transition(op, to, now); uerr != nil {
			return uerr
		}
		_, execErr := tx.ExecContext(ctx, `UPDATE episodes SET status = ?, updated_at = ? WHERE id = ?`, e.Status, now, episodeID)
		return execErr
	}))
}

// AppendEvent appends an ordered EpisodeEvent, rejecting appends to a
// terminal episode (spec section 3: "any terminal transition freezes
// further event appends").
func (r *EpisodeRepository) AppendEvent(ctx context.Context, ev episode.EpisodeEvent) *apperrors.UnifiedError {
	const op = "episodes.appendEvent"
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return apperrors.NewInternal(op, "marshal payload failed", err)
	}
	return asUnified(op, r.db.WithWriteTx(ctx, func(tx *sql.Tx) error {
		var status string
		if scanErr := tx.QueryRowContext(ctx, `SELECT status FROM episodes WHERE id = ?`, ev.EpisodeID).Scan(&status); scanErr == sql.ErrNoRows {
			return apperrors.NewNotFound(op, "episode")
		} else if scanErr != nil {
			return apperrors.NewInternal(op, "lookup episode failed", scanErr)
		}
		if (episode.Episode{Status: episode.Status(status)}).IsTerminal() {
			return apperrors.NewInvalidState(op, "episode is in a terminal state: "+status)
		}
		_, execErr := tx.ExecContext(ctx, `
			INSERT INTO episode_events (id, episode_id, type, sequence, payload, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			ev.ID, ev.EpisodeID, ev.Type, ev.Sequence, string(payload), ev.CreatedAt)
		return execErr
	}))
}

// LinkEntry attaches an entry to an episode with a role.
func (r *EpisodeRepository) LinkEntry(ctx context.Context, link episode.EpisodeLink) *apperrors.UnifiedError {
	const op = "episodes.linkEntry"
	err := r.db.WithWriteTx(ctx, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, `
			INSERT INTO episode_links (id, episode_id, entry_type, entry_id, role, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			link.ID, link.EpisodeID, link.EntryType, link.EntryID, link.Role, link.CreatedAt)
		return execErr
	})
	if err != nil {
		return apperrors.NewInternal(op, "insert episode link failed", err)
	}
	return nil
}

// ActiveForSession returns the session's active episode, if any.
func (r *EpisodeRepository) ActiveForSession(ctx context.Context, sessionID string) (*episode.Episode, *apperrors.UnifiedError) {
	const op = "episodes.activeForSession"
	var e episode.Episode
	err := r.db.Conn().QueryRowContext(ctx, `
		SELECT id, session_id, name, status, created_at, updated_at
		FROM episodes WHERE session_id = ? AND status = 'active'`, sessionID).
		Scan(&e.ID, &e.SessionID, &e.Name, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewInternal(op, "lookup active episode failed", err)
	}
	return &e, nil
}
