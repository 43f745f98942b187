package models

import "time"

// Chat message senders.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Message is the model for the 'messages' table (assistant chat history).
type Message struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	Sender    string    `json:"sender" db:"sender"`
	Content   string    `json:"content" db:"content"`
	Type      string    `json:"type" db:"type"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ChatSession groups a day's worth of messages for the history view.
type ChatSession struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	MessageCount int        `json:"message_count"`
	Messages     []*Message `json:"messages"`
}
