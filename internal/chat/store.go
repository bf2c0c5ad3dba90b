package chat

import "time"

// Store abstracts the local transcript cache (SQLite in production).
type Store interface {
	UpsertChat(id int, title string) error
	AppendMessage(m Message) error
	ReplaceMessages(chatID int, msgs []Message) error
	Messages(chatID int) ([]Message, error)
	Chats() ([]ChatInfo, error)
	Delete(chatID int) error
	Close() error
}

// ChatInfo is a lightweight summary of a cached chat (for listing).
type ChatInfo struct {
	ID        int
	Title     string
	UpdatedAt time.Time
	Messages  int
}
