package http

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/vovakirdan/supportchat-server/internal/core"
	"github.com/vovakirdan/supportchat-server/internal/proto"
	"github.com/vovakirdan/supportchat-server/internal/store"
)

var validate = validator.New()

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeRegister:
		return &core.Command{Kind: core.CommandRegister}, nil
	case proto.InboundTypeSendMessageFromAdmin:
		var data proto.AdminMessageData
		if perr := decodeData(inbound.Data, &data); perr != nil {
			return nil, perr
		}
		return &core.Command{
			Kind:        core.CommandSendFromAdmin,
			RecipientID: data.RecipientID,
			Text:        data.Message,
		}, nil
	case proto.InboundTypeSendMessageFromUser:
		var data proto.UserMessageData
		if perr := decodeData(inbound.Data, &data); perr != nil {
			return nil, perr
		}
		return &core.Command{Kind: core.CommandSendFromUser, Text: data.Message}, nil
	case proto.InboundTypeGetChatHistory:
		var data proto.ChatHistoryData
		if perr := decodeData(inbound.Data, &data); perr != nil {
			return nil, perr
		}
		return &core.Command{Kind: core.CommandGetChatHistory, ChatID: data.ChatID}, nil
	case proto.InboundTypeGetUserChats:
		return &core.Command{Kind: core.CommandGetUserChats}, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeUnknownEvent, Msg: "unknown event type"}
	}
}

// decodeData unmarshals raw into dst and checks its validate tags.
func decodeData(raw json.RawMessage, dst any) *proto.Error {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed event data"}
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &proto.Error{Code: core.ErrCodeValidation, Msg: fieldName(verrs[0]) + " is required"}
		}
		return &proto.Error{Code: core.ErrCodeValidation, Msg: "invalid event data"}
	}
	return nil
}

func fieldName(fe validator.FieldError) string {
	switch fe.Field() {
	case "RecipientID":
		return "recipientId"
	case "ChatID":
		return "chatId"
	default:
		return "message"
	}
}

// isSend reports whether cmd counts against the per-connection rate limit.
func isSend(cmd *core.Command) bool {
	return cmd.Kind == core.CommandSendFromAdmin || cmd.Kind == core.CommandSendFromUser
}

func outboundFromEvent(event *core.Event) *proto.Outbound {
	switch event.Kind {
	case core.EventOnlineUsers:
		return proto.NewEvent(proto.EventOnlineUsers, onlineUsersPayload(event.OnlineUsers))
	case core.EventReceiveMessage:
		return proto.NewEvent(proto.EventReceiveMessage, receivePayload(event.Message))
	case core.EventChatHistory:
		return proto.NewEvent(proto.EventChatHistory, historyPayload(event.ChatID, event.History))
	case core.EventUserChats:
		return proto.NewEvent(proto.EventUserChats, userChatsPayload(event.UserChats))
	case core.EventError:
		if event.Error == nil {
			return proto.NewError(core.ErrCodePersistence, "internal error")
		}
		return proto.NewError(event.Error.Code, event.Error.Message)
	default:
		return proto.NewError(core.ErrCodePersistence, "internal error")
	}
}

func onlineUsersPayload(users []core.OnlineUser) []proto.OnlineUser {
	return lo.Map(users, func(u core.OnlineUser, _ int) proto.OnlineUser {
		return proto.OnlineUser{ID: u.ID, Email: u.Email, Role: string(u.Role)}
	})
}

func receivePayload(m *core.Message) proto.ReceiveMessage {
	return proto.ReceiveMessage{
		ID:          m.ID,
		ChatID:      m.ChatID,
		SenderID:    m.SenderID,
		SenderEmail: m.SenderEmail,
		SenderRole:  string(m.SenderRole),
		Message:     m.Text,
		Timestamp:   m.CreatedAt,
		RecipientID: m.RecipientID,
	}
}

func historyPayload(chatID string, msgs []core.Message) proto.ChatHistory {
	return proto.ChatHistory{
		ChatID: chatID,
		Messages: lo.Map(msgs, func(m core.Message, _ int) proto.HistoryMessage {
			return proto.HistoryMessage{
				ID:        m.ID,
				ChatID:    m.ChatID,
				SenderID:  m.SenderID,
				Message:   m.Text,
				Timestamp: m.CreatedAt,
			}
		}),
	}
}

func userChatsPayload(rows []*store.UserChat) []proto.UserChat {
	return lo.Map(rows, func(r *store.UserChat, _ int) proto.UserChat {
		return proto.UserChat{
			ID:              r.ID,
			Email:           r.Email,
			LastMessage:     r.LastMessage,
			LastMessageTime: r.LastMessageTime,
		}
	})
}
