package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/domain/conversation"
	apperrors "github.com/agentmemory/memoryd/internal/errors"
	"github.com/agentmemory/memoryd/internal/store/sqlite"
)

// ConversationRepository owns Conversation, Message and
// ConversationContext rows.
type ConversationRepository struct {
	db  *sqlite.DB
	log *zap.Logger
}

// NewConversationRepository constructs a ConversationRepository.
func NewConversationRepository(db *sqlite.DB, log *zap.Logger) *ConversationRepository {
	return &ConversationRepository{db: db, log: log}
}

// Create persists a new Conversation.
func (r *ConversationRepository) Create(ctx context.Context, c conversation.Conversation) *apperrors.UnifiedError {
	const op = "conversations.create"
	meta, err := json.Marshal(c.Metadata)
	if err != nil {
		return apperrors.NewInternal(op, "marshal metadata failed", err)
	}
	werr := r.db.WithWriteTx(ctx, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, `
			INSERT INTO conversations (id, session_id, project_id, status, title, metadata, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.SessionID, c.ProjectID, c.Status, c.Title, string(meta), c.CreatedAt, c.UpdatedAt)
		return execErr
	})
	if werr != nil {
		return apperrors.NewInternal(op, "insert conversation failed", werr)
	}
	return nil
}

// AppendMessage appends a Message to an active conversation, rejecting
// writes to a non-active one (spec section 3: "Only active conversations
// accept new messages").
func (r *ConversationRepository) AppendMessage(ctx context.Context, msg conversation.Message) *apperrors.UnifiedError {
	const op = "conversations.appendMessage"
	if len(msg.ContextEntries) > conversation.MaxContextEntries {
		return apperrors.NewSizeLimitExceeded(op, "contextEntries", conversation.MaxContextEntries, len(msg.ContextEntries), "items")
	}
	if len(msg.ToolsUsed) > conversation.MaxToolsUsed {
		return apperrors.NewSizeLimitExceeded(op, "toolsUsed", conversation.MaxToolsUsed, len(msg.ToolsUsed), "items")
	}

	ctxEntries, err := json.Marshal(msg.ContextEntries)
	if err != nil {
		return apperrors.NewInternal(op, "marshal contextEntries failed", err)
	}
	tools, err := json.Marshal(msg.ToolsUsed)
	if err != nil {
		return apperrors.NewInternal(op, "marshal toolsUsed failed", err)
	}
	meta, err := json.Marshal(msg.Metadata)
	if err != nil {
		return apperrors.NewInternal(op, "marshal metadata failed", err)
	}

	werr := r.db.WithWriteTx(ctx, func(tx *sql.Tx) error {
		var status string
		if scanErr := tx.QueryRowContext(ctx, `SELECT status FROM conversations WHERE id = ?`, msg.ConversationID).Scan(&status); scanErr == sql.ErrNoRows {
			return apperrors.NewNotFound(op, "conversation")
		} else if scanErr != nil {
			return apperrors.NewInternal(op, "lookup conversation failed", scanErr)
		}
		if status != string(conversation.StatusActive) {
			return apperrors.NewInvalidState(op, "conversation is not active: "+status)
		}
		_, execErr := tx.ExecContext(ctx, `
			INSERT INTO messages (id, conversation_id, role, content, context_entries, tools_used, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			msg.ID, msg.ConversationID, msg.Role, msg.Content, string(ctxEntries), string(tools), string(meta), msg.CreatedAt)
		if execErr != nil {
			return apperrors.NewInternal(op, "insert message failed", execErr)
		}
		_, execErr = tx.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`, time.Now().UTC(), msg.ConversationID)
		return execErr
	})
	return asUnified(op, werr)
}

// LinkContext records a ConversationContext entry.
func (r *ConversationRepository) LinkContext(ctx context.Context, cc conversation.ConversationContext) *apperrors.UnifiedError {
	const op = "conversations.linkContext"
	err := r.db.WithWriteTx(ctx, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, `
			INSERT INTO conversation_contexts (id, conversation_id, message_id, entry_type, entry_id, relevance_score, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			cc.ID, cc.ConversationID, cc.MessageID, cc.EntryType, cc.EntryID, cc.RelevanceScore, cc.CreatedAt)
		return execErr
	})
	if err != nil {
		return apperrors.NewInternal(op, "insert context link failed", err)
	}
	return nil
}

// Messages returns a conversation's messages in creation order, for the
// capture pipeline's session-end sweep (spec section 4.3.3).
func (r *ConversationRepository) Messages(ctx context.Context, conversationID string) ([]conversation.Message, *apperrors.UnifiedError) {
	const op = "conversations.messages"
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT id, conversation_id, role, content, context_entries, tools_used, metadata, created_at
		FROM messages WHERE conversation_id = ? ORDER BY created_at ASC`, conversationID)
	if err != nil {
		return nil, apperrors.NewInternal(op, "query messages failed", err)
	}
	defer rows.Close()

	var out []conversation.Message
	for rows.Next() {
		var m conversation.Message
		var ctxEntries, tools, meta string
		if scanErr := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &ctxEntries, &tools, &meta, &m.CreatedAt); scanErr != nil {
			return nil, apperrors.NewInternal(op, "scan message failed", scanErr)
		}
		json.Unmarshal([]byte(ctxEntries), &m.ContextEntries)
		json.Unmarshal([]byte(tools), &m.ToolsUsed)
		json.Unmarshal([]byte(meta), &m.Metadata)
		out = append(out, m)
	}
	return out, nil
}
