package core

import (
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

type presenceEntry struct {
	client *Client
	user   OnlineUser
}

// Presence tracks which users are reachable and through which connection.
// Connection handles never leave this type; callers see OnlineUser projections.
// Every mutation and its snapshot broadcast happen under one lock, so no two
// broadcasts interleave and each reflects a consistent state.
//
// Snapshots go to every attached connection, registered or not; only
// registered ones appear in them.
type Presence struct {
	mu      sync.RWMutex
	entries map[string]*presenceEntry
	conns   map[*Client]struct{}
	log     *zerolog.Logger
}

// NewPresence creates an empty registry.
func NewPresence(logger *zerolog.Logger) *Presence {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Presence{
		entries: make(map[string]*presenceEntry),
		conns:   make(map[*Client]struct{}),
		log:     logger,
	}
}

// Attach subscribes an authenticated connection to snapshots without listing it.
func (p *Presence) Attach(c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[c] = struct{}{}
}

// Detach drops c from the audience and removes its user's entry if c still
// owns it. An entry taken over by a newer connection is left alone. The
// snapshot is broadcast only when an entry was removed; an unknown or
// unregistered connection is a no-op.
func (p *Presence) Detach(c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.conns, c)
	e, ok := p.entries[c.Identity.ID]
	if !ok || e.client != c {
		return false
	}
	delete(p.entries, c.Identity.ID)
	p.broadcastLocked()
	return true
}

// Register inserts or overwrites the entry for the client's user id and
// broadcasts the new snapshot.
func (p *Presence) Register(c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.conns[c] = struct{}{}
	id := c.Identity
	p.entries[id.ID] = &presenceEntry{
		client: c,
		user:   OnlineUser{ID: id.ID, Email: id.Email, Role: id.Role},
	}
	p.broadcastLocked()
}

// Lookup returns the projection for userID if the user is online.
func (p *Presence) Lookup(userID string) (OnlineUser, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	e, ok := p.entries[userID]
	if !ok {
		return OnlineUser{}, false
	}
	return e.user, true
}

// SendTo delivers ev to userID's connection. Returns false when the user is
// offline or the delivery was dropped.
func (p *Presence) SendTo(userID string, ev *Event) bool {
	p.mu.RLock()
	e, ok := p.entries[userID]
	p.mu.RUnlock()
	if !ok {
		return false
	}
	if !e.client.deliver(ev) {
		p.log.Warn().Str("user_id", userID).Str("client_id", e.client.ID).Msg("delivery dropped")
		return false
	}
	return true
}

// Snapshot returns every online user ordered by id.
func (p *Presence) Snapshot() []OnlineUser {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

// Len returns the number of online users.
func (p *Presence) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

func (p *Presence) snapshotLocked() []OnlineUser {
	users := lo.MapToSlice(p.entries, func(_ string, e *presenceEntry) OnlineUser {
		return e.user
	})
	slices.SortFunc(users, func(a, b OnlineUser) int {
		return strings.Compare(a.ID, b.ID)
	})
	return users
}

// broadcastLocked sends the current snapshot to every attached connection.
// A full or closed queue is skipped and logged; it never blocks the others.
func (p *Presence) broadcastLocked() {
	ev := &Event{Kind: EventOnlineUsers, OnlineUsers: p.snapshotLocked()}
	for c := range p.conns {
		if !c.deliver(ev) {
			p.log.Warn().Str("user_id", c.Identity.ID).Str("client_id", c.ID).Msg("online_users broadcast dropped")
		}
	}
}
