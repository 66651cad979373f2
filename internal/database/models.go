package database

import "time"

// Message is one audit log record of relayed traffic: an inbound user
// message, the bot's reply, or a system message change. The session state
// itself is never persisted; this log exists for inspection only.
type Message struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`

	ChatID  int64  `db:"chat_id"`
	UserID  int64  `db:"user_id"`
	Role    string `db:"role"`
	Content string `db:"content"`
}
