package types

import (
	"time"
)

type RoomKind string

const (
	RoomPrivate RoomKind = "private"
	RoomGroup   RoomKind = "group"
	RoomSupport RoomKind = "support"
)

func (k RoomKind) Valid() bool {
	switch k {
	case RoomPrivate, RoomGroup, RoomSupport:
		return true
	}
	return false
}

type MessageKind string

const (
	MessageText   MessageKind = "text"
	MessageImage  MessageKind = "image"
	MessageFile   MessageKind = "file"
	MessageSystem MessageKind = "system"
)

func (k MessageKind) Valid() bool {
	switch k {
	case MessageText, MessageImage, MessageFile, MessageSystem:
		return true
	}
	return false
}

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name,omitempty"`
	EmailAddress string    `json:"email_address,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Room struct {
	Id             int       `json:"id"`
	Name           string    `json:"name"`
	Kind           RoomKind  `json:"kind"`
	CreatorId      int       `json:"creator_id"`
	Active         bool      `json:"active"`
	ParticipantIds []int     `json:"participant_ids,omitempty"`
	Participants   []User    `json:"participants,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

type Message struct {
	Id         int         `json:"id"`
	RoomId     int         `json:"room_id"`
	SenderId   int         `json:"sender_id"`
	Kind       MessageKind `json:"message_type"`
	Content    string      `json:"content"`
	Attachment string      `json:"attachment,omitempty"`
	FullyRead  bool        `json:"fully_read"`
	Edited     bool        `json:"edited"`
	ReplyToId  int         `json:"reply_to_id,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at,omitempty"`
}

type ChatSettings struct {
	UserId               int       `json:"user_id"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	MessageNotifications bool      `json:"message_notifications"`
	SoundEnabled         bool      `json:"sound_enabled"`
	TypingIndicators     bool      `json:"typing_indicators"`
	MessagePreview       bool      `json:"message_preview"`
	CreatedAt            time.Time `json:"created_at,omitempty"`
	UpdatedAt            time.Time `json:"updated_at,omitempty"`
}
