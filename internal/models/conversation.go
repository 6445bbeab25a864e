package models

import "time"

// Conversation represents a direct-message thread between exactly two users.
// The participant pair is stored ordered (User1ID < User2ID) so that one row
// exists per unordered pair.
type Conversation struct {
	ID            int       `db:"id" json:"id"`
	User1ID       int       `db:"user1_id" json:"user1_id"`
	User2ID       int       `db:"user2_id" json:"user2_id"`
	LastMessageAt time.Time `db:"last_message_at" json:"last_message_at"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Participants returns both participant ids.
func (c Conversation) Participants() []int {
	return []int{c.User1ID, c.User2ID}
}

// HasParticipant reports whether userID belongs to the conversation.
func (c Conversation) HasParticipant(userID int) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// PeerOf returns the other participant from userID's point of view.
func (c Conversation) PeerOf(userID int) int {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// ConversationSummary is the API-friendly view of a conversation for one user.
type ConversationSummary struct {
	ConversationID int       `json:"conversation_id"`
	PeerID         int       `json:"peer_id"`
	PeerName       string    `json:"peer_name,omitempty"`
	LastMessageAt  time.Time `json:"last_message_at"`
	CreatedAt      time.Time `json:"created_at"`
}
