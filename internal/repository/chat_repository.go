package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mindwell-health/mindwell-api/internal/models"
)

// ChatRepository persists support-assistant transcripts.
type ChatRepository struct {
	db *sqlx.DB
}

// NewChatRepository constructs a ChatRepository.
func NewChatRepository(db *sqlx.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// History returns a user's transcript oldest first, capped at limit.
func (r *ChatRepository) History(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	query := fmt.Sprintf(`SELECT id, user_id, sender, text, created_at FROM chat_messages
		WHERE user_id = $1 ORDER BY created_at ASC LIMIT %d`, limit)
	var messages []models.ChatMessage
	if err := r.db.SelectContext(ctx, &messages, query, userID); err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	return messages, nil
}

// Append stores one transcript entry.
func (r *ChatRepository) Append(ctx context.Context, message *models.ChatMessage) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO chat_messages (id, user_id, sender, text, created_at)
		VALUES (:id, :user_id, :sender, :text, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, message); err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}
	return nil
}
