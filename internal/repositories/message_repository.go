package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

// DefaultMessagePage bounds ListSince when callers pass a non-positive limit.
const DefaultMessagePage = 200

// MessageRepository defines interactions for conversation messages.
type MessageRepository interface {
	Append(ctx context.Context, conversationID int, senderID int, text string) (models.Message, error)
	ListSince(ctx context.Context, conversationID int, since *time.Time, limit int) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Append stores a message and returns it with the server-assigned timestamp.
func (r *MessageRepo) Append(ctx context.Context, conversationID int, senderID int, text string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (conversation_id, sender_id, body) VALUES ($1, $2, $3)
         RETURNING id, conversation_id, sender_id, body, created_at`,
		conversationID, senderID, text).
		Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Text, &msg.CreatedAt)
	return msg, err
}

// ListSince returns messages newer than the cursor (or all, when since is
// nil), ascending by created_at with id as insertion-order tiebreak.
func (r *MessageRepo) ListSince(ctx context.Context, conversationID int, since *time.Time, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = DefaultMessagePage
	}

	var msgs []models.Message
	if since != nil {
		query := `SELECT id, conversation_id, sender_id, body, created_at FROM messages
            WHERE conversation_id=$1 AND created_at > $2
            ORDER BY created_at ASC, id ASC
            LIMIT $3`
		err := r.db.SelectContext(ctx, &msgs, query, conversationID, *since, limit)
		return msgs, err
	}

	query := `SELECT id, conversation_id, sender_id, body, created_at FROM messages
        WHERE conversation_id=$1
        ORDER BY created_at ASC, id ASC
        LIMIT $2`
	err := r.db.SelectContext(ctx, &msgs, query, conversationID, limit)
	return msgs, err
}
