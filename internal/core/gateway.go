package core

import (
	"context"

	"github.com/vovakirdan/supportchat-server/internal/store"
)

//go:generate go run go.uber.org/mock/mockgen -source=gateway.go -destination=mocks/mock_gateway.go -package=mocks

// Gateway is the persistence surface the chat core depends on.
// store.Store satisfies it.
type Gateway interface {
	FindOrCreateChat(ctx context.Context, idA, idB string) (*store.Chat, error)
	GetChat(ctx context.Context, id string) (*store.Chat, error)
	CreateMessage(ctx context.Context, chatID, senderID, body string) (*store.Message, error)
	ListMessages(ctx context.Context, chatID string) ([]*store.Message, error)
	ListUserChatsForAdmin(ctx context.Context) ([]*store.UserChat, error)
	FindAdminUser(ctx context.Context) (*store.User, error)
}
