package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/supportchat-server/internal/auth"
	"github.com/vovakirdan/supportchat-server/internal/store"
)

const quiet = 100 * time.Millisecond

func TestConnectRejectsBadToken(t *testing.T) {
	f := newFixture(t, "admin", "u1")

	c, err := f.hub.Connect("")
	require.ErrorIs(t, err, auth.ErrMissingToken)
	require.Nil(t, c)

	c, err = f.hub.Connect("forged")
	require.ErrorIs(t, err, auth.ErrInvalidToken)
	require.Nil(t, c)

	require.Zero(t, f.hub.Presence().Len())
}

func TestConnectionLifecycle(t *testing.T) {
	f := newFixture(t, "admin", "u1")
	ctx := context.Background()

	c := f.connect(t, "u1")
	require.Equal(t, StateAuthenticated, c.State())

	f.hub.Dispatch(ctx, c, &Command{Kind: CommandRegister})
	require.Equal(t, StateRegistered, c.State())

	f.hub.Dispatch(ctx, c, &Command{Kind: CommandSendFromUser, Text: "hi"})
	require.Equal(t, StateActive, c.State())

	f.hub.Disconnect(c)
	require.Equal(t, StateDisconnected, c.State())
	require.Zero(t, f.hub.Presence().Len())

	f.hub.Dispatch(ctx, c, &Command{Kind: CommandSendFromUser, Text: "late"})
	select {
	case <-c.Done():
	default:
		t.Fatal("done channel should be closed")
	}
}

func TestUserMessageReachesAdmin(t *testing.T) {
	f := newFixture(t, "admin", "u1")
	ctx := context.Background()

	admin := f.register(t, "admin")
	u1 := f.register(t, "u1")

	f.hub.Dispatch(ctx, u1, &Command{Kind: CommandSendFromUser, Text: "  hello  "})

	ev := mustEvent(t, admin.Events, EventReceiveMessage)
	require.Equal(t, "hello", ev.Message.Text)
	require.Equal(t, f.ids["u1"].ID, ev.Message.SenderID)
	require.Equal(t, store.RoleUser, ev.Message.SenderRole)
	require.Empty(t, ev.Message.RecipientID)
	require.NotEmpty(t, ev.Message.ChatID)

	// users get no echo of their own messages
	requireNoEvent(t, u1.Events, EventReceiveMessage, quiet)
}

func TestAdminMessageToOfflineUserIsStoredAndEchoed(t *testing.T) {
	f := newFixture(t, "admin", "u1", "u2")
	ctx := context.Background()

	admin := f.register(t, "admin")
	u1 := f.register(t, "u1")
	u2ID := f.ids["u2"].ID

	f.hub.Dispatch(ctx, admin, &Command{Kind: CommandSendFromAdmin, RecipientID: u2ID, Text: "are you there?"})

	echo := mustEvent(t, admin.Events, EventReceiveMessage)
	require.Equal(t, u2ID, echo.Message.RecipientID)
	require.Equal(t, f.ids["admin"].ID, echo.Message.SenderID)
	requireNoEvent(t, u1.Events, EventReceiveMessage, quiet)

	history, err := f.hub.Router().ChatHistory(ctx, f.ids["u2"], echo.Message.ChatID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "are you there?", history[0].Text)
}

func TestAdminMessageToOnlineUserDeliveredOnce(t *testing.T) {
	f := newFixture(t, "admin", "u1")
	ctx := context.Background()

	admin := f.register(t, "admin")
	u1 := f.register(t, "u1")

	f.hub.Dispatch(ctx, admin, &Command{Kind: CommandSendFromAdmin, RecipientID: f.ids["u1"].ID, Text: "welcome"})

	got := mustEvent(t, u1.Events, EventReceiveMessage)
	require.Equal(t, "welcome", got.Message.Text)
	require.Empty(t, got.Message.RecipientID)
	requireNoEvent(t, u1.Events, EventReceiveMessage, quiet)

	echo := mustEvent(t, admin.Events, EventReceiveMessage)
	require.Equal(t, got.Message.ID, echo.Message.ID)
	requireNoEvent(t, admin.Events, EventReceiveMessage, quiet)
}

func TestRegisterTwiceKeepsSingleEntry(t *testing.T) {
	f := newFixture(t, "admin", "u1")
	ctx := context.Background()

	u1 := f.register(t, "u1")
	f.hub.Dispatch(ctx, u1, &Command{Kind: CommandRegister})

	require.Equal(t, 1, f.hub.Presence().Len())
	ev := mustEvent(t, u1.Events, EventOnlineUsers)
	require.Equal(t, []string{f.ids["u1"].ID}, onlineIDs(ev.OnlineUsers))
}

func TestReconnectReplacesPresenceEntry(t *testing.T) {
	f := newFixture(t, "admin", "u1")
	ctx := context.Background()

	admin := f.register(t, "admin")
	first := f.register(t, "u1")
	second := f.register(t, "u1")

	// the first connection going away must not evict the second
	f.hub.Disconnect(first)
	_, ok := f.hub.Presence().Lookup(f.ids["u1"].ID)
	require.True(t, ok)

	f.hub.Dispatch(ctx, admin, &Command{Kind: CommandSendFromAdmin, RecipientID: f.ids["u1"].ID, Text: "ping"})
	mustEvent(t, second.Events, EventReceiveMessage)
}

func TestDisconnectBroadcastsPresence(t *testing.T) {
	f := newFixture(t, "admin", "u1")

	admin := f.register(t, "admin")
	u1 := f.register(t, "u1")
	mustEventMatching(t, admin.Events, func(ev *Event) bool {
		return ev.Kind == EventOnlineUsers && len(ev.OnlineUsers) == 2
	})

	f.hub.Disconnect(u1)

	ev := mustEventMatching(t, admin.Events, func(ev *Event) bool {
		return ev.Kind == EventOnlineUsers && len(ev.OnlineUsers) == 1
	})
	require.Equal(t, []string{f.ids["admin"].ID}, onlineIDs(ev.OnlineUsers))
}

func TestUnregisteredConnectionsReceivePresence(t *testing.T) {
	f := newFixture(t, "admin", "u1")

	watcher := f.connect(t, "u1")
	f.register(t, "admin")

	ev := mustEvent(t, watcher.Events, EventOnlineUsers)
	require.Equal(t, []string{f.ids["admin"].ID}, onlineIDs(ev.OnlineUsers))
	require.Equal(t, 1, f.hub.Presence().Len())
}

func TestChatHistoryInOrder(t *testing.T) {
	f := newFixture(t, "admin", "u1")
	ctx := context.Background()

	admin := f.register(t, "admin")
	u1 := f.register(t, "u1")

	texts := []string{"one", "two", "three", "four"}
	var chatID string
	for i, text := range texts {
		if i%2 == 0 {
			f.hub.Dispatch(ctx, u1, &Command{Kind: CommandSendFromUser, Text: text})
		} else {
			f.hub.Dispatch(ctx, admin, &Command{Kind: CommandSendFromAdmin, RecipientID: f.ids["u1"].ID, Text: text})
		}
		ev := mustEvent(t, admin.Events, EventReceiveMessage)
		chatID = ev.Message.ChatID
	}

	f.hub.Dispatch(ctx, u1, &Command{Kind: CommandGetChatHistory, ChatID: chatID})
	ev := mustEvent(t, u1.Events, EventChatHistory)
	require.Equal(t, chatID, ev.ChatID)
	require.Len(t, ev.History, len(texts))
	for i, m := range ev.History {
		require.Equal(t, texts[i], m.Text)
	}
}

func TestChatHistoryRequiresRegistration(t *testing.T) {
	f := newFixture(t, "admin", "u1")

	u1 := f.connect(t, "u1")
	f.hub.Dispatch(context.Background(), u1, &Command{Kind: CommandGetChatHistory, ChatID: "any"})

	ev := mustEvent(t, u1.Events, EventError)
	require.Equal(t, ErrCodeNotRegistered, ev.Error.Code)
	require.Equal(t, StateAuthenticated, u1.State())
}

func TestChatHistoryAccess(t *testing.T) {
	f := newFixture(t, "admin", "u1", "u2")
	ctx := context.Background()

	admin := f.register(t, "admin")
	u1 := f.register(t, "u1")
	u2 := f.register(t, "u2")

	f.hub.Dispatch(ctx, u1, &Command{Kind: CommandSendFromUser, Text: "private"})
	chatID := mustEvent(t, admin.Events, EventReceiveMessage).Message.ChatID

	f.hub.Dispatch(ctx, u2, &Command{Kind: CommandGetChatHistory, ChatID: chatID})
	ev := mustEvent(t, u2.Events, EventError)
	require.Equal(t, ErrCodeForbidden, ev.Error.Code)

	f.hub.Dispatch(ctx, u2, &Command{Kind: CommandGetChatHistory, ChatID: "missing"})
	ev = mustEvent(t, u2.Events, EventError)
	require.Equal(t, ErrCodeNotFound, ev.Error.Code)

	f.hub.Dispatch(ctx, admin, &Command{Kind: CommandGetChatHistory, ChatID: chatID})
	ev = mustEvent(t, admin.Events, EventChatHistory)
	require.Len(t, ev.History, 1)
}

func TestUserChatsAdminOnly(t *testing.T) {
	f := newFixture(t, "admin", "u1", "u2")
	ctx := context.Background()

	admin := f.register(t, "admin")
	u1 := f.register(t, "u1")

	f.hub.Dispatch(ctx, u1, &Command{Kind: CommandGetUserChats})
	ev := mustEvent(t, u1.Events, EventError)
	require.Equal(t, ErrCodeForbidden, ev.Error.Code)

	f.hub.Dispatch(ctx, u1, &Command{Kind: CommandSendFromUser, Text: "latest"})
	mustEvent(t, admin.Events, EventReceiveMessage)
	_, err := f.store.FindOrCreateChat(ctx, f.ids["admin"].ID, f.ids["u2"].ID)
	require.NoError(t, err)

	f.hub.Dispatch(ctx, admin, &Command{Kind: CommandGetUserChats})
	ev = mustEvent(t, admin.Events, EventUserChats)
	require.Len(t, ev.UserChats, 2)
	require.Equal(t, f.ids["u1"].ID, ev.UserChats[0].ID)
	require.NotNil(t, ev.UserChats[0].LastMessage)
	require.Equal(t, "latest", *ev.UserChats[0].LastMessage)
	require.Nil(t, ev.UserChats[1].LastMessage)
}

func TestRoleChecks(t *testing.T) {
	f := newFixture(t, "admin", "u1")
	ctx := context.Background()

	admin := f.register(t, "admin")
	u1 := f.register(t, "u1")

	f.hub.Dispatch(ctx, u1, &Command{Kind: CommandSendFromAdmin, RecipientID: f.ids["admin"].ID, Text: "x"})
	require.Equal(t, ErrCodeForbidden, mustEvent(t, u1.Events, EventError).Error.Code)

	f.hub.Dispatch(ctx, admin, &Command{Kind: CommandSendFromUser, Text: "x"})
	require.Equal(t, ErrCodeForbidden, mustEvent(t, admin.Events, EventError).Error.Code)
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t, "admin", "u1")
	ctx := context.Background()

	admin := f.register(t, "admin")
	u1ID := f.ids["u1"].ID

	cases := []struct {
		name string
		cmd  *Command
	}{
		{"blank text", &Command{Kind: CommandSendFromAdmin, RecipientID: u1ID, Text: "   "}},
		{"missing recipient", &Command{Kind: CommandSendFromAdmin, Text: "x"}},
		{"self", &Command{Kind: CommandSendFromAdmin, RecipientID: f.ids["admin"].ID, Text: "x"}},
		{"unknown recipient", &Command{Kind: CommandSendFromAdmin, RecipientID: "ghost", Text: "x"}},
		{"too long", &Command{Kind: CommandSendFromAdmin, RecipientID: u1ID, Text: string(make([]rune, 101))}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f.hub.Dispatch(ctx, admin, tc.cmd)
			ev := mustEvent(t, admin.Events, EventError)
			require.Equal(t, ErrCodeValidation, ev.Error.Code)
			require.True(t, errors.Is(ev.Error, ErrValidation))
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t, "admin", "u1")

	u1 := f.register(t, "u1")
	f.hub.Dispatch(context.Background(), u1, &Command{Kind: CommandKind(99)})
	require.Equal(t, ErrCodeUnknownEvent, mustEvent(t, u1.Events, EventError).Error.Code)
}

func TestConcurrentFirstMessagesShareChat(t *testing.T) {
	f := newFixture(t, "admin", "u1")
	ctx := context.Background()

	admin := f.connect(t, "admin")
	u1 := f.connect(t, "u1")

	const rounds = 10
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.hub.Dispatch(ctx, u1, &Command{Kind: CommandSendFromUser, Text: "from user"})
		}()
		go func() {
			defer wg.Done()
			f.hub.Dispatch(ctx, admin, &Command{Kind: CommandSendFromAdmin, RecipientID: f.ids["u1"].ID, Text: "from admin"})
		}()
	}
	wg.Wait()

	chat, err := f.store.FindOrCreateChat(ctx, f.ids["admin"].ID, f.ids["u1"].ID)
	require.NoError(t, err)
	msgs, err := f.store.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2*rounds)
}
