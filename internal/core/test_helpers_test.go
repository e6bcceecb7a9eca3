package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/supportchat-server/internal/auth"
	"github.com/vovakirdan/supportchat-server/internal/store"
	"github.com/vovakirdan/supportchat-server/internal/store/sqlite"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()
	return mustEventMatching(t, ch, func(ev *Event) bool { return ev.Kind == kind })
}

func mustEventMatching(t *testing.T, ch <-chan *Event, match func(*Event) bool) *Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev != nil && match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatalf("expected event not received")
			return nil
		}
	}
}

func requireNoEvent(t *testing.T, ch <-chan *Event, kind EventKind, wait time.Duration) {
	t.Helper()

	deadline := time.After(wait)
	for {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		case <-deadline:
			return
		}
	}
}

// tokenAuth maps opaque test tokens to identities.
type tokenAuth map[string]auth.Identity

func (a tokenAuth) Authenticate(raw string) (auth.Identity, error) {
	if raw == "" {
		return auth.Identity{}, auth.ErrMissingToken
	}
	id, ok := a[raw]
	if !ok {
		return auth.Identity{}, auth.ErrInvalidToken
	}
	return id, nil
}

type fixture struct {
	hub   *Hub
	store *sqlite.SQLiteStore
	ids   map[string]auth.Identity
}

// newFixture creates a hub on an in-memory store seeded with one account per
// token. Tokens starting with "admin" get the ADMIN role.
func newFixture(t *testing.T, tokens ...string) *fixture {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ids := make(tokenAuth)
	for _, tok := range tokens {
		role := store.RoleUser
		if len(tok) >= 5 && tok[:5] == "admin" {
			role = store.RoleAdmin
		}
		u, err := st.CreateUser(context.Background(), tok+"@example.com", tok, "", role)
		require.NoError(t, err)
		ids[tok] = auth.Identity{ID: u.ID, Email: u.Email, Role: u.Role}
	}

	hub := NewHub(ids, st, Options{
		SendBuffer:       64,
		PersistTimeout:   time.Second,
		MaxMessageLength: 100,
	}, nil)

	return &fixture{hub: hub, store: st, ids: ids}
}

func (f *fixture) connect(t *testing.T, token string) *Client {
	t.Helper()

	c, err := f.hub.Connect(token)
	require.NoError(t, err)
	return c
}

func (f *fixture) register(t *testing.T, token string) *Client {
	t.Helper()

	c := f.connect(t, token)
	f.hub.Dispatch(context.Background(), c, &Command{Kind: CommandRegister})
	require.Equal(t, StateRegistered, c.State())
	return c
}

func onlineIDs(users []OnlineUser) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}
