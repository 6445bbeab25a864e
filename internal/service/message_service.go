package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
)

// ErrEmptyMessage rejects empty or whitespace-only message text.
var ErrEmptyMessage = errors.New("message text is empty")

// Broadcaster delivers an event to every live connection of the given users.
// Delivery is best-effort; the REST polling path is the durability backstop.
type Broadcaster interface {
	BroadcastTo(userIDs []int, event models.ServerFrame)
}

// MessageService is the single entry point for sending a message. Both the
// REST handler and the websocket event handler go through Send, so the
// append-then-touch-then-broadcast sequence is defined exactly once.
type MessageService struct {
	convRepo repositories.ConversationRepository
	msgRepo  repositories.MessageRepository
	registry Broadcaster
}

// NewMessageService builds a MessageService. registry may be nil in contexts
// with no live delivery channel.
func NewMessageService(convRepo repositories.ConversationRepository, msgRepo repositories.MessageRepository, registry Broadcaster) *MessageService {
	return &MessageService{convRepo: convRepo, msgRepo: msgRepo, registry: registry}
}

// Send validates, appends, touches the conversation and broadcasts the stored
// message to both participants. origin labels the transport for metrics.
func (s *MessageService) Send(ctx context.Context, senderID int, conversationID int, text string, origin string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, ErrEmptyMessage
	}

	convo, err := s.convRepo.GetIfParticipant(ctx, conversationID, senderID)
	if err != nil {
		return models.Message{}, err
	}

	msg, err := s.msgRepo.Append(ctx, conversationID, senderID, text)
	if err != nil {
		return models.Message{}, err
	}

	if err := s.convRepo.Touch(ctx, conversationID, msg.CreatedAt); err != nil {
		return models.Message{}, err
	}

	if s.registry != nil {
		s.registry.BroadcastTo(convo.Participants(), models.NewMessageFrame(msg))
	}

	observability.IncMessageSent(origin)
	_ = observability.PublishEvent(ctx, "message_events.created", observability.EventEnvelope{
		EventType: "message_events",
		EventName: "message_created",
		Payload: map[string]interface{}{
			"message_id":      msg.ID,
			"conversation_id": msg.ConversationID,
			"sender_id":       msg.SenderID,
			"origin":          origin,
			"created_at":      msg.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}, nil)

	return msg, nil
}

// StartConversation finds or creates the direct conversation between the two
// users.
func (s *MessageService) StartConversation(ctx context.Context, userID int, peerID int) (models.Conversation, error) {
	return s.convRepo.FindOrCreateDirect(ctx, userID, peerID)
}

// ListConversations returns the user's conversations, most recent first.
func (s *MessageService) ListConversations(ctx context.Context, userID int) ([]models.Conversation, error) {
	return s.convRepo.ListForUser(ctx, userID)
}

// ListMessages authorizes the caller and returns messages newer than the
// cursor, ascending.
func (s *MessageService) ListMessages(ctx context.Context, userID int, conversationID int, since *time.Time, limit int) ([]models.Message, error) {
	if _, err := s.convRepo.GetIfParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return s.msgRepo.ListSince(ctx, conversationID, since, limit)
}
