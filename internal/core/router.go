package core

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/vovakirdan/supportchat-server/internal/store"
)

// Router persists messages and delivers them to whoever is online.
//
// Admin-originated messages name their recipient explicitly. User-originated
// messages always go to the administrator account returned by the gateway.
type Router struct {
	gw       Gateway
	presence *Presence
	log      *zerolog.Logger

	// pairs collapses concurrent find-or-create calls for the same unordered pair.
	pairs   singleflight.Group
	timeout time.Duration
	maxLen  int
}

// NewRouter creates a router on top of gw and presence.
func NewRouter(gw Gateway, presence *Presence, opts Options, logger *zerolog.Logger) *Router {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Router{
		gw:       gw,
		presence: presence,
		log:      logger,
		timeout:  opts.PersistTimeout,
		maxLen:   opts.MaxMessageLength,
	}
}

// SendFromAdmin stores text in the chat between sender and recipientID,
// delivers it if the recipient is online and echoes it back to the sender.
func (r *Router) SendFromAdmin(ctx context.Context, sender *Client, recipientID, text string) error {
	if !sender.Identity.IsAdmin() {
		return forbidden("only administrators can send to a recipient")
	}
	text, err := r.checkText(text)
	if err != nil {
		return err
	}
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return invalid("recipientId is required")
	}
	if recipientID == sender.Identity.ID {
		return invalid("cannot send a message to yourself")
	}

	return r.route(ctx, sender, recipientID, text)
}

// SendFromUser stores text in the chat between sender and the administrator
// and delivers it if the administrator is online.
func (r *Router) SendFromUser(ctx context.Context, sender *Client, text string) error {
	if sender.Identity.Role != store.RoleUser {
		return forbidden("only users can message the administrator")
	}
	text, err := r.checkText(text)
	if err != nil {
		return err
	}

	pctx, cancel := r.persistCtx(ctx)
	admin, err := r.gw.FindAdminUser(pctx)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.log.Warn().Str("user_id", sender.Identity.ID).Msg("no administrator account, message dropped")
			return coreError(ErrCodeNoAdmin, "no administrator available", ErrNoAdmin)
		}
		return persistence("failed to send message", err)
	}
	if admin.ID == sender.Identity.ID {
		return invalid("cannot send a message to yourself")
	}

	return r.route(ctx, sender, admin.ID, text)
}

func (r *Router) route(ctx context.Context, sender *Client, recipientID, text string) error {
	from := sender.Identity

	pctx, cancel := r.persistCtx(ctx)
	defer cancel()

	chat, err := r.findOrCreateChat(pctx, from.ID, recipientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return invalid("unknown participant")
		}
		return persistence("failed to send message", err)
	}

	stored, err := r.gw.CreateMessage(pctx, chat.ID, from.ID, text)
	if err != nil {
		return persistence("failed to send message", err)
	}

	msg := Message{
		ID:          stored.ID,
		ChatID:      chat.ID,
		SenderID:    from.ID,
		SenderEmail: from.Email,
		SenderRole:  from.Role,
		Text:        stored.Body,
		CreatedAt:   stored.CreatedAt,
	}

	// The recipient may have left since the write; that only skips live delivery.
	delivered := r.presence.SendTo(recipientID, &Event{Kind: EventReceiveMessage, Message: &msg})

	if from.IsAdmin() {
		echo := msg
		echo.RecipientID = recipientID
		if !sender.deliver(&Event{Kind: EventReceiveMessage, Message: &echo}) {
			r.log.Warn().Str("client_id", sender.ID).Msg("echo dropped")
		}
	}

	r.log.Debug().
		Str("chat_id", chat.ID).
		Str("message_id", msg.ID).
		Str("sender_id", from.ID).
		Str("recipient_id", recipientID).
		Bool("delivered", delivered).
		Msg("message routed")

	return nil
}

func (r *Router) findOrCreateChat(ctx context.Context, a, b string) (*store.Chat, error) {
	v, err, _ := r.pairs.Do(store.PairKey(a, b), func() (any, error) {
		return r.gw.FindOrCreateChat(ctx, a, b)
	})
	if err != nil {
		return nil, err
	}
	return v.(*store.Chat), nil
}

func (r *Router) checkText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", invalid("message is required")
	}
	if r.maxLen > 0 && utf8.RuneCountInString(text) > r.maxLen {
		return "", invalid("message is too long")
	}
	return text, nil
}

// persistCtx detaches persistence from the caller's cancellation: a write
// started for a sender who then disconnects still completes. Only the
// configured timeout bounds it.
func (r *Router) persistCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if r.timeout > 0 {
		return context.WithTimeout(ctx, r.timeout)
	}
	return context.WithCancel(ctx)
}
