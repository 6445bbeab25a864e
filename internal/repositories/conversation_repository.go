package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var (
	// ErrConversationNotFound covers both a missing conversation and a caller
	// who is not a participant, so non-participants cannot probe existence.
	ErrConversationNotFound = errors.New("conversation not found")
	ErrSelfConversation     = errors.New("cannot start a conversation with yourself")
)

// DefaultConversationPage bounds ListForUser.
const DefaultConversationPage = 50

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	FindOrCreateDirect(ctx context.Context, userID int, peerID int) (models.Conversation, error)
	ListForUser(ctx context.Context, userID int) ([]models.Conversation, error)
	GetIfParticipant(ctx context.Context, conversationID int, userID int) (models.Conversation, error)
	Touch(ctx context.Context, conversationID int, when time.Time) error
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// FindOrCreateDirect returns the conversation between the two users, creating
// it if none exists. The pair is stored ordered so at most one row exists per
// unordered pair; the unique constraint makes concurrent creates converge on
// the same row.
func (r *ConversationRepo) FindOrCreateDirect(ctx context.Context, userID int, peerID int) (models.Conversation, error) {
	if userID == peerID {
		return models.Conversation{}, ErrSelfConversation
	}
	user1, user2 := userID, peerID
	if user1 > user2 {
		user1, user2 = user2, user1
	}

	var convo models.Conversation
	query := `SELECT id, user1_id, user2_id, last_message_at, created_at FROM conversations WHERE user1_id=$1 AND user2_id=$2`
	err := r.db.GetContext(ctx, &convo, query, user1, user2)
	if err == nil {
		return convo, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, err
	}

	insert := `INSERT INTO conversations (user1_id, user2_id) VALUES ($1, $2)
        ON CONFLICT (user1_id, user2_id) DO UPDATE SET user1_id = EXCLUDED.user1_id
        RETURNING id, user1_id, user2_id, last_message_at, created_at`
	if err := r.db.QueryRowxContext(ctx, insert, user1, user2).
		Scan(&convo.ID, &convo.User1ID, &convo.User2ID, &convo.LastMessageAt, &convo.CreatedAt); err != nil {
		return models.Conversation{}, err
	}
	return convo, nil
}

// ListForUser returns the user's conversations, most recently active first.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID int) ([]models.Conversation, error) {
	query := `SELECT id, user1_id, user2_id, last_message_at, created_at FROM conversations
        WHERE user1_id=$1 OR user2_id=$1
        ORDER BY last_message_at DESC
        LIMIT $2`
	var convos []models.Conversation
	err := r.db.SelectContext(ctx, &convos, query, userID, DefaultConversationPage)
	return convos, err
}

// GetIfParticipant fetches a conversation only when userID is a participant.
func (r *ConversationRepo) GetIfParticipant(ctx context.Context, conversationID int, userID int) (models.Conversation, error) {
	var convo models.Conversation
	query := `SELECT id, user1_id, user2_id, last_message_at, created_at FROM conversations
        WHERE id=$1 AND (user1_id=$2 OR user2_id=$2)`
	err := r.db.GetContext(ctx, &convo, query, conversationID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return convo, err
}

// Touch advances last_message_at. Last write wins under concurrent appends;
// the field only orders the conversation list.
func (r *ConversationRepo) Touch(ctx context.Context, conversationID int, when time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE conversations SET last_message_at=$2 WHERE id=$1`, conversationID, when)
	return err
}
