package core

import (
	"sync"
	"sync/atomic"

	"github.com/vovakirdan/supportchat-server/internal/auth"
)

// ConnState is the lifecycle state of a connection.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateAuthenticating
	StateRejected
	StateAuthenticated
	StateRegistered
	StateActive
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateRejected:
		return "rejected"
	case StateAuthenticated:
		return "authenticated"
	case StateRegistered:
		return "registered"
	case StateActive:
		return "active"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Client is one live connection as seen by the core layer.
// Identity is set once authentication succeeds and never changes afterwards.
type Client struct {
	ID       string
	Identity auth.Identity
	Events   chan *Event

	state     atomic.Int32
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a client in the Connecting state.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = 16
	}
	return &Client{
		ID:     id,
		Events: make(chan *Event, buffer),
		done:   make(chan struct{}),
	}
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

func (c *Client) setState(s ConnState) {
	c.state.Store(int32(s))
}

// registered reports whether a register event has been accepted on this connection.
func (c *Client) registered() bool {
	s := c.State()
	return s == StateRegistered || s == StateActive
}

// Done is closed once the client is disconnected.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// deliver queues an event without blocking. Returns false when the client is
// gone or its queue is full.
func (c *Client) deliver(ev *Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}
