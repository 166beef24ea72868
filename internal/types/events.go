package types

import "time"

// Event type discriminators used on the websocket wire, both directions.
const (
	EventMessage = "message"
	EventTyping  = "typing"
	EventRead    = "read"
	EventError   = "error"
)

// UserRef is the trimmed user representation embedded in outbound events.
type UserRef struct {
	Id       int    `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
}

// ServerEvent is the outbound envelope pushed to clients.
type ServerEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type MessagePayload struct {
	Id          int         `json:"id"`
	Content     string      `json:"content"`
	Sender      UserRef     `json:"sender"`
	RoomId      int         `json:"room_id"`
	CreatedAt   time.Time   `json:"created_at"`
	MessageType MessageKind `json:"message_type"`
}

type TypingPayload struct {
	User     UserRef `json:"user"`
	IsTyping bool    `json:"is_typing"`
	RoomId   int     `json:"room_id"`
}

type ReadPayload struct {
	MessageId int  `json:"message_id"`
	UserId    int  `json:"user_id"`
	RoomId    int  `json:"room_id"`
	FullyRead bool `json:"fully_read,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	RoomId  int    `json:"room_id,omitempty"`
}

func NewMessageEvent(msg Message, sender UserRef) *ServerEvent {
	return &ServerEvent{
		Type: EventMessage,
		Data: MessagePayload{
			Id:          msg.Id,
			Content:     msg.Content,
			Sender:      sender,
			RoomId:      msg.RoomId,
			CreatedAt:   msg.CreatedAt,
			MessageType: msg.Kind,
		},
	}
}

func NewTypingEvent(user UserRef, roomId int, isTyping bool) *ServerEvent {
	return &ServerEvent{
		Type: EventTyping,
		Data: TypingPayload{
			User:     user,
			IsTyping: isTyping,
			RoomId:   roomId,
		},
	}
}

func NewReadEvent(messageId, userId, roomId int, fullyRead bool) *ServerEvent {
	return &ServerEvent{
		Type: EventRead,
		Data: ReadPayload{
			MessageId: messageId,
			UserId:    userId,
			RoomId:    roomId,
			FullyRead: fullyRead,
		},
	}
}

func NewErrorEvent(code, message string, roomId int) *ServerEvent {
	return &ServerEvent{
		Type: EventError,
		Data: ErrorPayload{
			Code:    code,
			Message: message,
			RoomId:  roomId,
		},
	}
}
