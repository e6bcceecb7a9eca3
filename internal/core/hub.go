package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/supportchat-server/internal/auth"
	"github.com/vovakirdan/supportchat-server/internal/store"
)

// Authenticator verifies the bearer token presented at handshake.
type Authenticator interface {
	Authenticate(rawToken string) (auth.Identity, error)
}

// Options tune the hub.
type Options struct {
	// SendBuffer is the per-connection outbound queue length.
	SendBuffer int
	// PersistTimeout bounds every persistence call; zero means no bound.
	PersistTimeout time.Duration
	// MaxMessageLength caps message bodies in runes; zero means no cap.
	MaxMessageLength int
}

// Hub binds inbound commands to the presence registry and the router and
// drives each connection through its lifecycle.
type Hub struct {
	auth     Authenticator
	presence *Presence
	router   *Router
	opts     Options
	log      *zerolog.Logger
}

// NewHub creates a hub backed by gw.
func NewHub(authn Authenticator, gw Gateway, opts Options, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	presence := NewPresence(logger)
	return &Hub{
		auth:     authn,
		presence: presence,
		router:   NewRouter(gw, presence, opts, logger),
		opts:     opts,
		log:      logger,
	}
}

// Presence exposes the registry for read-only queries.
func (h *Hub) Presence() *Presence {
	return h.presence
}

// Router exposes message routing and history queries.
func (h *Hub) Router() *Router {
	return h.router
}

// Connect authenticates rawToken. On success it returns a client in the
// Authenticated state; on failure nothing is created and the caller must
// refuse the handshake.
func (h *Hub) Connect(rawToken string) (*Client, error) {
	c := NewClient(uuid.NewString(), h.opts.SendBuffer)
	c.setState(StateAuthenticating)

	id, err := h.auth.Authenticate(rawToken)
	if err != nil {
		c.setState(StateRejected)
		c.close()
		h.log.Info().Err(err).Str("client_id", c.ID).Msg("connection rejected")
		return nil, err
	}

	c.Identity = id
	c.setState(StateAuthenticated)
	h.presence.Attach(c)
	h.log.Debug().
		Str("client_id", c.ID).
		Str("user_id", id.ID).
		Str("role", string(id.Role)).
		Msg("connection authenticated")
	return c, nil
}

// Dispatch handles one inbound command for c. Failures are reported to c
// only, as an error event.
func (h *Hub) Dispatch(ctx context.Context, c *Client, cmd *Command) {
	if err := h.handle(ctx, c, cmd); err != nil {
		ce := asCoreError(err)
		h.logFailure(c, cmd, ce)
		c.deliver(&Event{Kind: EventError, Error: ce})
	}
}

func (h *Hub) handle(ctx context.Context, c *Client, cmd *Command) error {
	switch c.State() {
	case StateAuthenticated, StateRegistered, StateActive:
	default:
		return coreError(ErrCodeUnauthorized, "connection is not authenticated", ErrForbidden)
	}

	if cmd.Kind == CommandRegister {
		if c.State() == StateAuthenticated {
			c.setState(StateRegistered)
		}
		h.presence.Register(c)
		return nil
	}

	var err error
	switch cmd.Kind {
	case CommandSendFromAdmin:
		err = h.router.SendFromAdmin(ctx, c, cmd.RecipientID, cmd.Text)
	case CommandSendFromUser:
		err = h.router.SendFromUser(ctx, c, cmd.Text)
	case CommandGetChatHistory:
		if !c.registered() {
			return coreError(ErrCodeNotRegistered, "register before requesting history", ErrNotRegistered)
		}
		var history []Message
		history, err = h.router.ChatHistory(ctx, c.Identity, cmd.ChatID)
		if err == nil {
			c.deliver(&Event{Kind: EventChatHistory, ChatID: cmd.ChatID, History: history})
		}
	case CommandGetUserChats:
		var rows []*store.UserChat
		rows, err = h.router.UserChats(ctx, c.Identity)
		if err == nil {
			c.deliver(&Event{Kind: EventUserChats, UserChats: rows})
		}
	default:
		return coreError(ErrCodeUnknownEvent, "unknown event", ErrValidation)
	}
	if err != nil {
		return err
	}

	if c.State() == StateRegistered {
		c.setState(StateActive)
	}
	return nil
}

// Disconnect moves c to its terminal state and drops its presence entry.
func (h *Hub) Disconnect(c *Client) {
	prev := c.State()
	c.setState(StateDisconnected)
	c.close()
	h.presence.Detach(c)
	h.log.Debug().
		Str("client_id", c.ID).
		Str("user_id", c.Identity.ID).
		Str("from_state", prev.String()).
		Msg("connection closed")
}

func (h *Hub) logFailure(c *Client, cmd *Command, ce *CoreError) {
	var ev *zerolog.Event
	switch ce.Code {
	case ErrCodePersistence:
		ev = h.log.Error()
	case ErrCodeNoAdmin:
		ev = h.log.Warn()
	default:
		ev = h.log.Debug()
	}
	ev.Err(ce).
		Str("client_id", c.ID).
		Str("user_id", c.Identity.ID).
		Str("event", cmd.Kind.String()).
		Str("code", ce.Code).
		Msg("command failed")
}
