package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandRegister announces the connection as reachable.
	CommandRegister CommandKind = iota
	// CommandSendFromAdmin sends a message from an administrator to a named user.
	CommandSendFromAdmin
	// CommandSendFromUser sends a message from a user to the administrator.
	CommandSendFromUser
	// CommandGetChatHistory requests every message of one chat.
	CommandGetChatHistory
	// CommandGetUserChats requests the administrator's roster.
	CommandGetUserChats
)

func (k CommandKind) String() string {
	switch k {
	case CommandRegister:
		return "register"
	case CommandSendFromAdmin:
		return "send_message_from_admin"
	case CommandSendFromUser:
		return "send_message_from_user"
	case CommandGetChatHistory:
		return "get_chat_history"
	case CommandGetUserChats:
		return "get_user_chats"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
type Command struct {
	Kind        CommandKind
	RecipientID string
	ChatID      string
	Text        string
}
