package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-records-api/internal/models"
)

// ConversationRepository stores assistant chats keyed by the client session id.
type ConversationRepository struct {
	db *sqlx.DB
}

// NewConversationRepository constructs a ConversationRepository.
func NewConversationRepository(db *sqlx.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// FindByID fetches a conversation with its messages.
func (r *ConversationRepository) FindByID(ctx context.Context, sessionID string) (*models.Conversation, error) {
	const query = `SELECT session_id, user_id, title, messages, created_at, updated_at FROM conversations WHERE session_id = $1`
	var conv models.Conversation
	if err := r.db.GetContext(ctx, &conv, query, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return &conv, nil
}

// Append pushes one exchange, creating the conversation on first use. The
// title is only written when the row is inserted.
func (r *ConversationRepository) Append(ctx context.Context, conv *models.Conversation, msg models.ChatMessage) error {
	now := time.Now().UTC()
	if msg.Time.IsZero() {
		msg.Time = now
	}
	row := models.Conversation{
		SessionID: conv.SessionID,
		UserID:    conv.UserID,
		Title:     conv.Title,
		Messages:  models.ChatMessages{msg},
		CreatedAt: now,
		UpdatedAt: now,
	}
	const query = `INSERT INTO conversations (session_id, user_id, title, messages, created_at, updated_at)
VALUES (:session_id, :user_id, :title, :messages, :created_at, :updated_at)
ON CONFLICT (session_id) DO UPDATE SET
    messages = conversations.messages || EXCLUDED.messages,
    user_id = EXCLUDED.user_id,
    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("append conversation message: %w", err)
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = now
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	return nil
}

// ListByUser returns the conversations of a user, most recently active first.
func (r *ConversationRepository) ListByUser(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	const query = `SELECT session_id, title, updated_at FROM conversations WHERE user_id = $1 ORDER BY updated_at DESC`
	var out []models.ConversationSummary
	if err := r.db.SelectContext(ctx, &out, query, userID); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return out, nil
}
