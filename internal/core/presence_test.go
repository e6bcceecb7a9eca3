package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/supportchat-server/internal/auth"
	"github.com/vovakirdan/supportchat-server/internal/store"
)

func presenceClient(id, userID string, buffer int) *Client {
	c := NewClient(id, buffer)
	c.Identity = auth.Identity{ID: userID, Email: userID + "@example.com", Role: store.RoleUser}
	c.setState(StateRegistered)
	return c
}

func TestPresenceRegisterBroadcastsSnapshot(t *testing.T) {
	p := NewPresence(nil)
	a := presenceClient("c1", "u1", 8)
	b := presenceClient("c2", "u2", 8)

	p.Register(a)
	ev := mustEvent(t, a.Events, EventOnlineUsers)
	require.Equal(t, []string{"u1"}, onlineIDs(ev.OnlineUsers))

	p.Register(b)
	for _, c := range []*Client{a, b} {
		ev = mustEvent(t, c.Events, EventOnlineUsers)
		require.Equal(t, []string{"u1", "u2"}, onlineIDs(ev.OnlineUsers))
	}
}

func TestPresenceRegisterOverwritesEntry(t *testing.T) {
	p := NewPresence(nil)
	old := presenceClient("c1", "u1", 8)
	fresh := presenceClient("c2", "u1", 8)

	p.Register(old)
	p.Register(fresh)
	require.Equal(t, 1, p.Len())

	require.True(t, p.SendTo("u1", &Event{Kind: EventReceiveMessage}))
	mustEvent(t, fresh.Events, EventReceiveMessage)
	requireNoEvent(t, old.Events, EventReceiveMessage, 0)
}

func TestPresenceDetachIgnoresStaleConnection(t *testing.T) {
	p := NewPresence(nil)
	old := presenceClient("c1", "u1", 8)
	fresh := presenceClient("c2", "u1", 8)

	p.Register(old)
	p.Register(fresh)

	require.False(t, p.Detach(old))
	_, ok := p.Lookup("u1")
	require.True(t, ok)

	require.True(t, p.Detach(fresh))
	_, ok = p.Lookup("u1")
	require.False(t, ok)
}

func TestPresenceDetachUnregisteredIsNoop(t *testing.T) {
	p := NewPresence(nil)
	a := presenceClient("c1", "u1", 8)
	p.Register(a)
	<-a.Events

	watcher := presenceClient("c2", "u2", 8)
	p.Attach(watcher)

	require.False(t, p.Detach(watcher))
	require.Equal(t, 1, p.Len())
	requireNoEvent(t, a.Events, EventOnlineUsers, quiet)
}

func TestPresenceDetachBroadcastsRemainder(t *testing.T) {
	p := NewPresence(nil)
	a := presenceClient("c1", "u1", 8)
	b := presenceClient("c2", "u2", 8)
	p.Register(a)
	p.Register(b)

	require.True(t, p.Detach(b))
	ev := mustEventMatching(t, a.Events, func(ev *Event) bool {
		return ev.Kind == EventOnlineUsers && len(ev.OnlineUsers) == 1
	})
	require.Equal(t, []string{"u1"}, onlineIDs(ev.OnlineUsers))
	require.False(t, p.SendTo("u2", &Event{Kind: EventReceiveMessage}))
}

func TestPresenceSnapshotReachesAttachedConnections(t *testing.T) {
	p := NewPresence(nil)
	watcher := presenceClient("c1", "u1", 8)
	p.Attach(watcher)

	p.Register(presenceClient("c2", "u2", 8))

	ev := mustEvent(t, watcher.Events, EventOnlineUsers)
	require.Equal(t, []string{"u2"}, onlineIDs(ev.OnlineUsers))
}

func TestPresenceFullQueueDoesNotBlockOthers(t *testing.T) {
	p := NewPresence(nil)
	slow := presenceClient("c1", "u1", 1)
	fast := presenceClient("c2", "u2", 8)

	p.Register(slow) // fills the single slot
	p.Register(fast)
	p.Register(presenceClient("c3", "u3", 8))

	require.Len(t, slow.Events, 1)
	ev := mustEventMatching(t, fast.Events, func(ev *Event) bool {
		return ev.Kind == EventOnlineUsers && len(ev.OnlineUsers) == 3
	})
	require.Equal(t, []string{"u1", "u2", "u3"}, onlineIDs(ev.OnlineUsers))
}

func TestPresenceSkipsClosedClient(t *testing.T) {
	p := NewPresence(nil)
	a := presenceClient("c1", "u1", 8)
	p.Register(a)
	<-a.Events

	a.close()
	require.False(t, p.SendTo("u1", &Event{Kind: EventReceiveMessage}))
}
