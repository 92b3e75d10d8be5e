// Package conversation implements Conversation, Message and
// ConversationContext (spec section 3), grounded on the teacher's
// category/cluster aggregate-with-children idiom
// (internal/domain/category/category.go) generalized to an append-only
// message transcript with cross-referenced entries.
package conversation

import (
	"time"

	"github.com/google/uuid"

	"github.com/agentmemory/memoryd/internal/domain/entrytype"
)

// Status is the conversation lifecycle state. Only Active conversations
// accept new messages.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// Conversation is a bounded message transcript, optionally scoped to a
// session and project.
type Conversation struct {
	ID        string
	SessionID string
	ProjectID string
	Status    Status
	Title     string
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewConversation stamps a fresh, active Conversation.
func NewConversation(sessionID, projectID, title string, now time.Time) Conversation {
	return Conversation{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		ProjectID: projectID,
		Status:    StatusActive,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AcceptsMessages reports whether c is open for new messages.
func (c Conversation) AcceptsMessages() bool { return c.Status == StatusActive }

// Role identifies the speaker of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

const (
	MaxContextEntries = 50
	MaxToolsUsed      = 100
)

// Message is one turn in a Conversation.
type Message struct {
	ID             string
	ConversationID string
	Role           Role
	Content        string
	ContextEntries []string // entry ids, capped at MaxContextEntries
	ToolsUsed      []string // capped at MaxToolsUsed
	Metadata       map[string]any
	CreatedAt      time.Time
}

// ConversationContext links a (optional) message to an entry the
// conversation drew on or produced.
type ConversationContext struct {
	ID             string
	ConversationID string
	MessageID      string // empty when the link is conversation-level
	EntryType      entrytype.Kind
	EntryID        string
	RelevanceScore *float64
	CreatedAt      time.Time
}
