package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	ProtocolVersion = 1

	InboundTypeRegister             = "register"
	InboundTypeSendMessageFromAdmin = "send_message_from_admin"
	InboundTypeSendMessageFromUser  = "send_message_from_user"
	InboundTypeGetChatHistory       = "get_chat_history"
	InboundTypeGetUserChats         = "get_user_chats"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventOnlineUsers    = "online_users"
	EventReceiveMessage = "receive_message"
	EventChatHistory    = "chat_history"
	EventUserChats      = "user_chats"
)

// AdminMessageData is an administrator message to a named user.
type AdminMessageData struct {
	RecipientID string `json:"recipientId" validate:"required"`
	Message     string `json:"message" validate:"required"`
}

// UserMessageData is a user message to the administrator.
type UserMessageData struct {
	Message string `json:"message" validate:"required"`
}

// ChatHistoryData requests the messages of one chat.
type ChatHistoryData struct {
	ChatID string `json:"chatId" validate:"required"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	V     int    `json:"v"`
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// OnlineUser is one entry of the online_users snapshot.
type OnlineUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ReceiveMessage delivers a chat message. RecipientID is set only on the copy
// echoed to an administrator.
type ReceiveMessage struct {
	ID          string    `json:"id"`
	ChatID      string    `json:"chatId"`
	SenderID    string    `json:"senderId"`
	SenderEmail string    `json:"senderEmail,omitempty"`
	SenderRole  string    `json:"senderRole,omitempty"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	RecipientID string    `json:"recipientId,omitempty"`
}

// HistoryMessage is one stored message in a chat_history reply.
type HistoryMessage struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	SenderID  string    `json:"senderId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatHistory answers get_chat_history.
type ChatHistory struct {
	ChatID   string           `json:"chatId"`
	Messages []HistoryMessage `json:"messages"`
}

// UserChat is one row of the administrator roster.
type UserChat struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	LastMessage     *string    `json:"lastMessage"`
	LastMessageTime *time.Time `json:"lastMessageTime"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// NewEvent wraps data in a versioned event envelope.
func NewEvent(event string, data any) *Outbound {
	return &Outbound{V: ProtocolVersion, Type: OutboundTypeEvent, Event: event, Data: data}
}

// NewError wraps an error in a versioned envelope.
func NewError(code, msg string) *Outbound {
	return &Outbound{V: ProtocolVersion, Type: OutboundTypeError, Error: &Error{Code: code, Msg: msg}}
}
