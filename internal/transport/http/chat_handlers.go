package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/supportchat-server/internal/core"
)

// ChatHandlers expose the chat queries over REST with the same rules as
// the WebSocket events.
type ChatHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewChatHandlers creates chat handlers on top of hub.
func NewChatHandlers(hub *core.Hub, logger *zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{hub: hub, log: logger}
}

// History returns a chat's messages oldest first.
// GET /api/chats/:id/messages
func (h *ChatHandlers) History(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	chatID := c.Param("id")
	msgs, err := h.hub.Router().ChatHistory(c.Request.Context(), id, chatID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, historyPayload(chatID, msgs))
}

// UserChats returns the administrator roster.
// GET /api/admin/user-chats
func (h *ChatHandlers) UserChats(c *gin.Context) {
	id, _ := identityFrom(c)
	rows, err := h.hub.Router().UserChats(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, userChatsPayload(rows))
}

// Online returns the current presence snapshot.
// GET /api/admin/online
func (h *ChatHandlers) Online(c *gin.Context) {
	c.JSON(http.StatusOK, onlineUsersPayload(h.hub.Presence().Snapshot()))
}

func (h *ChatHandlers) fail(c *gin.Context, err error) {
	var ce *core.CoreError
	if !errors.As(err, &ce) {
		h.log.Error().Err(err).Msg("chat query failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch ce.Code {
	case core.ErrCodeValidation, core.ErrCodeBadRequest:
		status = http.StatusBadRequest
	case core.ErrCodeForbidden:
		status = http.StatusForbidden
	case core.ErrCodeNotFound:
		status = http.StatusNotFound
	default:
		h.log.Error().Err(err).Str("code", ce.Code).Msg("chat query failed")
	}
	c.JSON(status, ErrorResponse{Error: ce.Message})
}
