package chat

import "time"

// Message is a single chat entry.
type Message struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	SenderID  int64     `json:"sender_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Event types pushed to live subscribers of a chat.
const (
	EventMessageCreated = "message.created"
	EventMessageUpdated = "message.updated"
	EventMessageDeleted = "message.deleted"
)

// Event describes a change to a chat's message history.
type Event struct {
	Type    string  `json:"type"`
	ChatID  int64   `json:"chat_id"`
	Message Message `json:"message"`
}
