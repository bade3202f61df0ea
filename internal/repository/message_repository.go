package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/youthhub-metrics-api/internal/models"
)

// MessageRepository reads direct messages.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository constructs the repository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// List returns messages in the filter window, optionally limited to those
// the participant sent or received.
func (r *MessageRepository) List(ctx context.Context, filter models.MessageFilter) ([]models.Message, error) {
	where := messageWhere(filter)
	query := "SELECT id, sender_id, recipient_id, created_at FROM messages" + where.String() +
		" ORDER BY created_at ASC, id ASC"

	messages := make([]models.Message, 0)
	if err := r.db.SelectContext(ctx, &messages, query, where.args...); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// Count returns the number of messages matching filter.
func (r *MessageRepository) Count(ctx context.Context, filter models.MessageFilter) (int, error) {
	where := messageWhere(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM messages"+where.String(), where.args...); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return total, nil
}

func messageWhere(filter models.MessageFilter) *whereBuilder {
	where := &whereBuilder{}
	where.addWindow("created_at", filter.Window)
	if filter.ParticipantID != "" {
		where.add("(sender_id = %s OR recipient_id = %s)", filter.ParticipantID)
	}
	return where
}
