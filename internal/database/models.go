package database

import (
	"time"

	"github.com/edulane/school-chat/internal/types"
)

type User struct {
	Id           int
	Username     string
	FullName     string
	EmailAddress string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Room struct {
	Id             int
	Name           string
	Kind           types.RoomKind
	CreatorId      int
	Active         bool
	ParticipantIds []int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Message struct {
	Id         int
	RoomId     int
	SenderId   int
	Kind       types.MessageKind
	Content    string
	Attachment string
	FullyRead  bool
	Edited     bool
	ReplyToId  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type ReadReceipt struct {
	MessageId int
	UserId    int
	ReadAt    time.Time
}

type ChatSettings struct {
	UserId               int
	NotificationsEnabled bool
	MessageNotifications bool
	SoundEnabled         bool
	TypingIndicators     bool
	MessagePreview       bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type CreateAccountParams struct {
	Username     string
	FullName     string
	EmailAddress string
	PasswordHash string
}

type UpdateAccountParams struct {
	UserId       int
	Username     string
	FullName     string
	PasswordHash string
}

type CreateRoomParams struct {
	Name           string
	Kind           types.RoomKind
	CreatorId      int
	ParticipantIds []int
}

type CreateMessageParams struct {
	RoomId     int
	SenderId   int
	Kind       types.MessageKind
	Content    string
	Attachment string
	ReplyToId  int
}

type UpdateChatSettingsParams struct {
	UserId               int
	NotificationsEnabled bool
	MessageNotifications bool
	SoundEnabled         bool
	TypingIndicators     bool
	MessagePreview       bool
}
