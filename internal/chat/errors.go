package chat

import "errors"

// Rejection errors for inbound chat events. None of these close the
// originating connection; the client may retry after conditions change.
var (
	ErrNotParticipant   = errors.New("sender is not a participant of the room")
	ErrRoomArchived     = errors.New("room is archived")
	ErrMessageNotFound  = errors.New("message not found")
	ErrMessageNotInRoom = errors.New("message does not belong to the room")
	ErrInvalidReplyTo   = errors.New("reply-to message is not in the same room")
	ErrEmptyContent     = errors.New("text message content is empty")
	ErrInvalidKind      = errors.New("invalid message kind")
	ErrNotSender        = errors.New("only the sender may edit a message")
)
