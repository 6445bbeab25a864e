package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"messaging-service/internal/clients"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) FindOrCreateDirect(ctx context.Context, userID int, peerID int) (models.Conversation, error) {
	args := m.Called(ctx, userID, peerID)
	var convo models.Conversation
	if val := args.Get(0); val != nil {
		convo = val.(models.Conversation)
	}
	return convo, args.Error(1)
}

func (m *ConversationRepositoryMock) ListForUser(ctx context.Context, userID int) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Error(1)
}

func (m *ConversationRepositoryMock) GetIfParticipant(ctx context.Context, conversationID int, userID int) (models.Conversation, error) {
	args := m.Called(ctx, conversationID, userID)
	var convo models.Conversation
	if val := args.Get(0); val != nil {
		convo = val.(models.Conversation)
	}
	return convo, args.Error(1)
}

func (m *ConversationRepositoryMock) Touch(ctx context.Context, conversationID int, when time.Time) error {
	args := m.Called(ctx, conversationID, when)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, conversationID int, senderID int, text string) (models.Message, error) {
	args := m.Called(ctx, conversationID, senderID, text)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListSince(ctx context.Context, conversationID int, since *time.Time, limit int) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, since, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

type BroadcasterMock struct {
	mock.Mock
}

func (m *BroadcasterMock) BroadcastTo(userIDs []int, event models.ServerFrame) {
	m.Called(userIDs, event)
}

type UserDirectoryMock struct {
	mock.Mock
}

func (m *UserDirectoryMock) SearchUsers(ctx context.Context, query string) ([]clients.User, error) {
	args := m.Called(ctx, query)
	var users []clients.User
	if val := args.Get(0); val != nil {
		users = val.([]clients.User)
	}
	return users, args.Error(1)
}

func (m *UserDirectoryMock) BulkUsers(ctx context.Context, ids []int) ([]clients.User, error) {
	args := m.Called(ctx, ids)
	var users []clients.User
	if val := args.Get(0); val != nil {
		users = val.([]clients.User)
	}
	return users, args.Error(1)
}

type AuthenticatorMock struct {
	mock.Mock
}

func (m *AuthenticatorMock) Authenticate(ctx context.Context, token string) (clients.Identity, error) {
	args := m.Called(ctx, token)
	var identity clients.Identity
	if val := args.Get(0); val != nil {
		identity = val.(clients.Identity)
	}
	return identity, args.Error(1)
}

var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
