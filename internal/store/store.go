package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken is returned when creating a user with an email already in use.
	ErrEmailTaken = errors.New("email already registered")
	// ErrSameParticipant is returned when a chat is requested between a user and themselves.
	ErrSameParticipant = errors.New("chat participants must differ")
)

// Role is the account role carried in every identity.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User represents an account in the system.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Chat is a conversation between exactly two users.
// Participants is sorted ascending.
type Chat struct {
	ID           string
	Participants [2]string
	CreatedAt    time.Time
}

// Has reports whether userID is one of the chat participants.
func (c *Chat) Has(userID string) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}

// Message represents a persisted chat message.
type Message struct {
	ID        string
	ChatID    string
	SenderID  string
	Body      string
	CreatedAt time.Time
}

// UserChat is one row of the administrator's roster: a user sharing a chat
// with an administrator plus the latest message in it, if any.
type UserChat struct {
	ID              string
	Email           string
	LastMessage     *string
	LastMessageTime *time.Time
}

// PairKey returns the order-independent key for a pair of user ids.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, email, name, passwordHash string, role Role) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// FindAdminUser returns the administrator account that receives
	// user-initiated messages. Returns ErrNotFound if none exists.
	FindAdminUser(ctx context.Context) (*User, error)
}

// ChatStore handles chat and message persistence.
type ChatStore interface {
	// FindOrCreateChat returns the chat whose participant set is exactly
	// {idA, idB}, creating it if needed. Argument order does not matter.
	FindOrCreateChat(ctx context.Context, idA, idB string) (*Chat, error)

	// GetChat retrieves a chat by ID.
	GetChat(ctx context.Context, id string) (*Chat, error)

	// CreateMessage appends a message to a chat.
	CreateMessage(ctx context.Context, chatID, senderID, body string) (*Message, error)

	// ListMessages returns every message of a chat, oldest first.
	ListMessages(ctx context.Context, chatID string) ([]*Message, error)

	// ListUserChatsForAdmin returns one row per user sharing a chat with an administrator.
	ListUserChatsForAdmin(ctx context.Context) ([]*UserChat, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ChatStore

	// Close closes the underlying database connection.
	Close() error
}
