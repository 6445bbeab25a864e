package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

func TestSendSuccessBroadcastsToBothParticipants(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	registry := new(mocks.BroadcasterMock)
	svc := NewMessageService(convRepo, msgRepo, registry)

	createdAt := time.Now()
	convo := models.Conversation{ID: 5, User1ID: 1, User2ID: 2}
	stored := models.Message{ID: 9, ConversationID: 5, SenderID: 1, Text: "hello", CreatedAt: createdAt}

	convRepo.On("GetIfParticipant", mock.Anything, 5, 1).Return(convo, nil).Once()
	msgRepo.On("Append", mock.Anything, 5, 1, "hello").Return(stored, nil).Once()
	convRepo.On("Touch", mock.Anything, 5, createdAt).Return(nil).Once()
	registry.On("BroadcastTo", []int{1, 2}, models.NewMessageFrame(stored)).Once()

	msg, err := svc.Send(context.Background(), 1, 5, "hello", "rest")
	require.NoError(t, err)
	assert.Equal(t, stored, msg)

	convRepo.AssertExpectations(t)
	msgRepo.AssertExpectations(t)
	registry.AssertExpectations(t)
}

func TestSendTrimsWhitespace(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	svc := NewMessageService(convRepo, msgRepo, nil)

	convo := models.Conversation{ID: 5, User1ID: 1, User2ID: 2}
	stored := models.Message{ID: 9, ConversationID: 5, SenderID: 1, Text: "hello"}

	convRepo.On("GetIfParticipant", mock.Anything, 5, 1).Return(convo, nil).Once()
	msgRepo.On("Append", mock.Anything, 5, 1, "hello").Return(stored, nil).Once()
	convRepo.On("Touch", mock.Anything, 5, mock.Anything).Return(nil).Once()

	_, err := svc.Send(context.Background(), 1, 5, "  hello  ", "rest")
	require.NoError(t, err)
	msgRepo.AssertExpectations(t)
}

func TestSendRejectsEmptyText(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	svc := NewMessageService(convRepo, msgRepo, nil)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := svc.Send(context.Background(), 1, 5, text, "rest")
		assert.ErrorIs(t, err, ErrEmptyMessage)
	}

	// no store mutation happened
	convRepo.AssertNotCalled(t, "GetIfParticipant", mock.Anything, mock.Anything, mock.Anything)
	msgRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	convRepo.AssertNotCalled(t, "Touch", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendNonParticipantGetsNotFound(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	svc := NewMessageService(convRepo, msgRepo, nil)

	convRepo.On("GetIfParticipant", mock.Anything, 5, 3).
		Return(models.Conversation{}, repositories.ErrConversationNotFound).Once()

	_, err := svc.Send(context.Background(), 3, 5, "hi", "ws")
	assert.ErrorIs(t, err, repositories.ErrConversationNotFound)
	msgRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendWithoutRegistryStillPersists(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	svc := NewMessageService(convRepo, msgRepo, nil)

	convo := models.Conversation{ID: 5, User1ID: 1, User2ID: 2}
	stored := models.Message{ID: 1, ConversationID: 5, SenderID: 1, Text: "hi"}

	convRepo.On("GetIfParticipant", mock.Anything, 5, 1).Return(convo, nil).Once()
	msgRepo.On("Append", mock.Anything, 5, 1, "hi").Return(stored, nil).Once()
	convRepo.On("Touch", mock.Anything, 5, mock.Anything).Return(nil).Once()

	msg, err := svc.Send(context.Background(), 1, 5, "hi", "rest")
	require.NoError(t, err)
	assert.Equal(t, stored, msg)
}

func TestListMessagesAuthorizesBeforeQuerying(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	svc := NewMessageService(convRepo, msgRepo, nil)

	convRepo.On("GetIfParticipant", mock.Anything, 7, 3).
		Return(models.Conversation{}, repositories.ErrConversationNotFound).Once()

	_, err := svc.ListMessages(context.Background(), 3, 7, nil, 200)
	assert.ErrorIs(t, err, repositories.ErrConversationNotFound)
	msgRepo.AssertNotCalled(t, "ListSince", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
