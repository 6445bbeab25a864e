package client

import (
	"time"

	"messaging-service/internal/models"
)

// ViewState tracks what has already been rendered for one open conversation:
// a de-duplication set of message ids and the high-water mark used as the
// polling cursor. It is constructed fresh on every conversation switch and
// never shared across conversations.
type ViewState struct {
	conversationID int
	seen           map[int]struct{}
	highWater      time.Time
}

// NewViewState creates empty state for one conversation.
func NewViewState(conversationID int) *ViewState {
	return &ViewState{
		conversationID: conversationID,
		seen:           make(map[int]struct{}),
	}
}

// ConversationID returns the conversation this state belongs to.
func (s *ViewState) ConversationID() int {
	return s.conversationID
}

// Merge records the message and reports whether it is new. Messages belonging
// to another conversation or already seen are rejected, whichever delivery
// path they arrived on. Accepted messages advance the high-water mark.
func (s *ViewState) Merge(msg models.Message) bool {
	if msg.ConversationID != s.conversationID {
		return false
	}
	if _, ok := s.seen[msg.ID]; ok {
		return false
	}
	s.seen[msg.ID] = struct{}{}
	if msg.CreatedAt.After(s.highWater) {
		s.highWater = msg.CreatedAt
	}
	return true
}

// Since returns the polling cursor, or nil before any message was merged.
func (s *ViewState) Since() *time.Time {
	if s.highWater.IsZero() {
		return nil
	}
	t := s.highWater
	return &t
}
