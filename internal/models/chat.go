package models

import "time"

// ChatSender identifies who authored a chat message.
type ChatSender string

const (
	ChatSenderUser ChatSender = "user"
	ChatSenderBot  ChatSender = "bot"
)

// ChatMessage is one transcript entry of the support assistant conversation.
type ChatMessage struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Sender    ChatSender `db:"sender" json:"sender"`
	Text      string     `db:"text" json:"text"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
