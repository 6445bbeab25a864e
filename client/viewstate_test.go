package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/models"
)

func TestMergeIsIdempotentAcrossSources(t *testing.T) {
	state := NewViewState(5)
	msg := models.Message{ID: 1, ConversationID: 5, SenderID: 2, Text: "hi", CreatedAt: time.Now()}

	// same message arriving via broadcast, poll and ack merges exactly once
	assert.True(t, state.Merge(msg))
	assert.False(t, state.Merge(msg))
	assert.False(t, state.Merge(msg))
}

func TestMergeRejectsOtherConversations(t *testing.T) {
	state := NewViewState(5)
	assert.False(t, state.Merge(models.Message{ID: 1, ConversationID: 6, CreatedAt: time.Now()}))
	assert.Nil(t, state.Since())
}

func TestMergeAdvancesHighWaterMark(t *testing.T) {
	state := NewViewState(5)
	require.Nil(t, state.Since())

	early := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	late := early.Add(time.Minute)

	state.Merge(models.Message{ID: 1, ConversationID: 5, CreatedAt: late})
	state.Merge(models.Message{ID: 2, ConversationID: 5, CreatedAt: early})

	since := state.Since()
	require.NotNil(t, since)
	// an older message never moves the mark backwards
	assert.Equal(t, late, *since)
}

func TestFreshStatePerConversation(t *testing.T) {
	first := NewViewState(5)
	msg := models.Message{ID: 1, ConversationID: 5, CreatedAt: time.Now()}
	require.True(t, first.Merge(msg))

	// switching conversations constructs fresh state; nothing carries over
	second := NewViewState(7)
	assert.Nil(t, second.Since())
	assert.False(t, second.Merge(msg))
}
