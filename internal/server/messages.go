package server

import (
	"github.com/edulane/school-chat/internal/types"
)

// ClientEvent is the inbound wire envelope. Type selects which of the other
// fields are meaningful.
type ClientEvent struct {
	Type        string            `json:"type"`
	RoomId      int               `json:"room_id"`
	Content     string            `json:"content,omitempty"`
	MessageType types.MessageKind `json:"message_type,omitempty"`
	Attachment  string            `json:"attachment,omitempty"`
	ReplyToId   int               `json:"reply_to_id,omitempty"`
	IsTyping    bool              `json:"is_typing,omitempty"`
	MessageId   int               `json:"message_id,omitempty"`
}

// Error codes surfaced to clients in error envelopes.
const (
	CodeMalformedEvent = "malformed_event"
	CodeUnknownType    = "unknown_event_type"
	CodeNotParticipant = "not_participant"
	CodeRoomArchived   = "room_archived"
	CodeRoomNotFound   = "room_not_found"
	CodeInvalidMessage = "invalid_message"
	CodeInternalError  = "internal_error"
)

func errMalformedEvent() *types.ServerEvent {
	return types.NewErrorEvent(CodeMalformedEvent, "could not parse event", 0)
}

func errUnknownType(roomId int) *types.ServerEvent {
	return types.NewErrorEvent(CodeUnknownType, "unknown event type", roomId)
}

func errNotParticipant(roomId int) *types.ServerEvent {
	return types.NewErrorEvent(CodeNotParticipant, "you are not a participant of this room", roomId)
}

func errRoomArchived(roomId int) *types.ServerEvent {
	return types.NewErrorEvent(CodeRoomArchived, "room is archived", roomId)
}

func errRoomNotFound(roomId int) *types.ServerEvent {
	return types.NewErrorEvent(CodeRoomNotFound, "room not found", roomId)
}

func errInvalidMessage(roomId int, reason string) *types.ServerEvent {
	return types.NewErrorEvent(CodeInvalidMessage, reason, roomId)
}

func errInternal(roomId int) *types.ServerEvent {
	return types.NewErrorEvent(CodeInternalError, "temporary failure, retry", roomId)
}
