package models

import "time"

// Message is an immutable text entry belonging to one conversation. CreatedAt
// is assigned by the store; the id breaks ties between equal timestamps.
type Message struct {
	ID             int       `db:"id" json:"id"`
	ConversationID int       `db:"conversation_id" json:"conversation_id"`
	SenderID       int       `db:"sender_id" json:"sender_id"`
	Text           string    `db:"body" json:"text"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Event types carried on the websocket channel.
const (
	EventTypeSend       = "message:send"
	EventTypeAck        = "ack"
	EventTypeNewMessage = "message:new"
)

// ClientFrame is a client-to-server websocket frame. Ref is an opaque
// client-chosen correlation id echoed back on the ack.
type ClientFrame struct {
	Type           string `json:"type"`
	Ref            string `json:"ref,omitempty"`
	ConversationID int    `json:"conversation_id,omitempty"`
	Text           string `json:"text,omitempty"`
}

// ServerFrame is a server-to-client websocket frame: either an ack answering
// one ClientFrame, or a message:new broadcast.
type ServerFrame struct {
	Type    string   `json:"type"`
	Ref     string   `json:"ref,omitempty"`
	OK      *bool    `json:"ok,omitempty"`
	Error   string   `json:"error,omitempty"`
	Message *Message `json:"message,omitempty"`
}

// AckFrame builds an ack answering the frame identified by ref.
func AckFrame(ref string, msg *Message, errText string) ServerFrame {
	ok := errText == ""
	return ServerFrame{Type: EventTypeAck, Ref: ref, OK: &ok, Error: errText, Message: msg}
}

// NewMessageFrame builds a message:new broadcast frame.
func NewMessageFrame(msg Message) ServerFrame {
	return ServerFrame{Type: EventTypeNewMessage, Message: &msg}
}
