// Package episode implements Episode, EpisodeEvent and EpisodeLink (spec
// section 3), grounded on the teacher's cluster-with-state-machine idiom
// (internal/domain/cluster.go) generalized to a session-scoped bounded
// activity with ordered events and entry links.
package episode

import (
	"time"

	"github.com/google/uuid"

	"github.com/agentmemory/memoryd/internal/domain/entrytype"
	apperrors "github.com/agentmemory/memoryd/internal/errors"
)

// Status is the episode lifecycle state.
type Status string

const (
	StatusPlanned   Status = "planned"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// terminal reports whether a status freezes further event appends.
var terminal = map[Status]bool{
	StatusCompleted: true,
	StatusFailed:    true,
	StatusCancelled: true,
}

// transitions enumerates the legal state machine edges.
var transitions = map[Status][]Status{
	StatusPlanned:   {StatusActive, StatusCancelled},
	StatusActive:    {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// Episode is a named, bounded temporal activity within a session.
type Episode struct {
	ID        string
	SessionID string
	Name      string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewEpisode stamps a fresh, planned Episode.
func NewEpisode(sessionID, name string, now time.Time) Episode {
	return Episode{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Name:      name,
		Status:    StatusPlanned,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition validates and applies a state machine move.
func (e *Episode) Transition(op string, to Status, now time.Time) *apperrors.UnifiedError {
	if terminal[e.Status] {
		return apperrors.NewInvalidState(op, "episode is in a terminal state: "+string(e.Status))
	}
	for _, allowed := range transitions[e.Status] {
		if allowed == to {
			e.Status = to
			e.UpdatedAt = now
			return nil
		}
	}
	return apperrors.NewInvalidState(op, "illegal episode transition "+string(e.Status)+" -> "+string(to))
}

// IsTerminal reports whether e accepts no further event appends.
func (e Episode) IsTerminal() bool { return terminal[e.Status] }

// EventType enumerates the kinds of ordered events an episode owns.
type EventType string

const (
	EventStarted    EventType = "started"
	EventCheckpoint EventType = "checkpoint"
	EventDecision   EventType = "decision"
	EventError      EventType = "error"
	EventCompleted  EventType = "completed"
)

// EpisodeEvent is one ordered entry in an episode's timeline.
type EpisodeEvent struct {
	ID        string
	EpisodeID string
	Type      EventType
	Sequence  int
	Payload   map[string]any
	CreatedAt time.Time
}

// LinkRole describes how an entry relates to an episode.
type LinkRole string

const (
	LinkCreated    LinkRole = "created"
	LinkModified   LinkRole = "modified"
	LinkReferenced LinkRole = "referenced"
)

// EpisodeLink attaches an entry to an episode with a role.
type EpisodeLink struct {
	ID        string
	EpisodeID string
	EntryType entrytype.Kind
	EntryID   string
	Role      LinkRole
	CreatedAt time.Time
}
