package core

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/lo"

	"github.com/vovakirdan/supportchat-server/internal/auth"
	"github.com/vovakirdan/supportchat-server/internal/store"
)

// ChatHistory returns the messages of chatID oldest first. Administrators may
// read any chat; everyone else only chats they take part in.
func (r *Router) ChatHistory(ctx context.Context, requester auth.Identity, chatID string) ([]Message, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return nil, invalid("chatId is required")
	}

	pctx, cancel := r.persistCtx(ctx)
	defer cancel()

	chat, err := r.gw.GetChat(pctx, chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, coreError(ErrCodeNotFound, "chat not found", ErrNotFound)
		}
		return nil, persistence("failed to load chat history", err)
	}
	if !requester.IsAdmin() && !chat.Has(requester.ID) {
		return nil, forbidden("not a participant of this chat")
	}

	stored, err := r.gw.ListMessages(pctx, chatID)
	if err != nil {
		return nil, persistence("failed to load chat history", err)
	}

	return lo.Map(stored, func(m *store.Message, _ int) Message {
		return Message{
			ID:        m.ID,
			ChatID:    m.ChatID,
			SenderID:  m.SenderID,
			Text:      m.Body,
			CreatedAt: m.CreatedAt,
		}
	}), nil
}

// UserChats returns the administrator roster: one row per user with the
// latest message exchanged with an administrator.
func (r *Router) UserChats(ctx context.Context, requester auth.Identity) ([]*store.UserChat, error) {
	if !requester.IsAdmin() {
		return nil, forbidden("administrator role required")
	}

	pctx, cancel := r.persistCtx(ctx)
	defer cancel()

	rows, err := r.gw.ListUserChatsForAdmin(pctx)
	if err != nil {
		return nil, persistence("failed to load user chats", err)
	}
	if rows == nil {
		rows = []*store.UserChat{}
	}
	return rows, nil
}
