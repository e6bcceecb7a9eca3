package core

import (
	"time"

	"github.com/vovakirdan/supportchat-server/internal/store"
)

// Message is a chat message as delivered to clients.
// RecipientID is only set on the copy echoed back to an administrator sender.
type Message struct {
	ID          string
	ChatID      string
	SenderID    string
	SenderEmail string
	SenderRole  store.Role
	Text        string
	RecipientID string
	CreatedAt   time.Time
}

// OnlineUser is the read-only projection of a presence entry.
type OnlineUser struct {
	ID    string
	Email string
	Role  store.Role
}
