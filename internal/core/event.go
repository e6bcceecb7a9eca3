package core

import "github.com/vovakirdan/supportchat-server/internal/store"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventOnlineUsers carries a full presence snapshot.
	EventOnlineUsers EventKind = iota
	// EventReceiveMessage delivers a message to its recipient or echoes it to an admin sender.
	EventReceiveMessage
	// EventChatHistory answers a history request.
	EventChatHistory
	// EventUserChats answers a roster request.
	EventUserChats
	// EventError notifies the client about a failed request.
	EventError
)

// Event is sent to clients to describe what happened in the system.
// Events may be shared between clients and must not be mutated after delivery.
type Event struct {
	Kind        EventKind
	OnlineUsers []OnlineUser
	Message     *Message
	ChatID      string
	History     []Message
	UserChats   []*store.UserChat
	Error       *CoreError
}
