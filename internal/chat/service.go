// Package chat implements the chat service façade: the single entry point
// for inbound chat events, whether they arrive over a websocket or the REST
// API.
package chat

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/edulane/school-chat/internal/broker"
	"github.com/edulane/school-chat/internal/database"
	"github.com/edulane/school-chat/internal/directory"
	"github.com/edulane/school-chat/internal/notify"
	"github.com/edulane/school-chat/internal/stats"
	"github.com/edulane/school-chat/internal/types"
)

type Service struct {
	repo       database.ChatRepository
	dir        *directory.Directory
	broker     *broker.Broker
	reconciler *Reconciler
	notifier   notify.Notifier
	stats      stats.StatsProvider
	logger     *log.Logger
}

func NewService(repo database.ChatRepository, dir *directory.Directory, b *broker.Broker, notifier notify.Notifier, statsProvider stats.StatsProvider, logger *log.Logger) *Service {
	statsProvider.RegisterMetric(stats.MessagesSent)

	return &Service{
		repo:       repo,
		dir:        dir,
		broker:     b,
		reconciler: NewReconciler(repo, dir, b, statsProvider, logger),
		notifier:   notifier,
		stats:      statsProvider,
		logger:     logger,
	}
}

type SendMessageParams struct {
	RoomId     int
	Sender     types.UserRef
	Kind       types.MessageKind
	Content    string
	Attachment string
	ReplyToId  int
}

// SendMessage validates, persists and broadcasts a new message. Persistence
// errors are returned to the caller so the client can retry; notification
// fan-out is best-effort and never fails the send.
func (s *Service) SendMessage(params SendMessageParams) (database.Message, error) {
	if params.Kind == "" {
		params.Kind = types.MessageText
	}
	if !params.Kind.Valid() {
		return database.Message{}, ErrInvalidKind
	}
	if params.Kind == types.MessageText && params.Content == "" {
		return database.Message{}, ErrEmptyContent
	}

	room, err := s.roomForWrite(params.RoomId, params.Sender.Id)
	if err != nil {
		return database.Message{}, err
	}

	if params.ReplyToId > 0 {
		parent, err := s.repo.GetMessageById(params.ReplyToId)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return database.Message{}, ErrInvalidReplyTo
			}
			return database.Message{}, fmt.Errorf("get reply-to message: %w", err)
		}
		if parent.RoomId != params.RoomId {
			return database.Message{}, ErrInvalidReplyTo
		}
	}

	msg, err := s.repo.CreateMessage(database.CreateMessageParams{
		RoomId:     params.RoomId,
		SenderId:   params.Sender.Id,
		Kind:       params.Kind,
		Content:    params.Content,
		Attachment: params.Attachment,
		ReplyToId:  params.ReplyToId,
	})
	if err != nil {
		return database.Message{}, fmt.Errorf("append message: %w", err)
	}

	s.stats.Incr(stats.MessagesSent)
	s.broker.Publish(broker.RoomGroup(params.RoomId), types.NewMessageEvent(toWireMessage(msg), params.Sender), nil)

	go s.notifyOfflineParticipants(room, msg, params.Sender)

	return msg, nil
}

// Typing broadcasts a typing indicator to everyone in the room except the
// originating connection. A non-participant's typing event is dropped
// silently.
func (s *Service) Typing(roomId int, sender types.UserRef, isTyping bool, origin broker.Subscriber) error {
	room, err := s.dir.GetRoom(roomId)
	if err != nil {
		return err
	}
	if !room.Active {
		return ErrRoomArchived
	}

	ok, err := s.dir.IsParticipant(roomId, sender.Id)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	s.broker.Publish(broker.RoomGroup(roomId), types.NewTypingEvent(sender, roomId, isTyping), origin)
	return nil
}

// MarkRead records a read receipt for a single message. It returns whether a
// new receipt was created; re-reading an already read message is a no-op.
func (s *Service) MarkRead(roomId, readerId, messageId int) (bool, error) {
	if _, err := s.roomForWrite(roomId, readerId); err != nil {
		return false, err
	}

	msg, err := s.repo.GetMessageById(messageId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrMessageNotFound
		}
		return false, fmt.Errorf("get message: %w", err)
	}
	if msg.RoomId != roomId {
		return false, ErrMessageNotInRoom
	}

	created, _, err := s.reconciler.RecordRead(msg, readerId)
	return created, err
}

// MarkAllRead records receipts for every message in the room the reader has
// not yet acknowledged and returns the number of new receipts.
func (s *Service) MarkAllRead(roomId, readerId int) (int, error) {
	if _, err := s.roomForWrite(roomId, readerId); err != nil {
		return 0, err
	}

	unread, err := s.repo.ListUnreadMessages(roomId, readerId)
	if err != nil {
		return 0, fmt.Errorf("list unread messages: %w", err)
	}

	var count int
	for _, msg := range unread {
		created, _, err := s.reconciler.RecordRead(msg, readerId)
		if err != nil {
			return count, err
		}
		if created {
			count++
		}
	}

	return count, nil
}

// EditMessage replaces a message's content and marks it edited. Only the
// original sender may edit, and only while the room is open.
func (s *Service) EditMessage(roomId, editorId, messageId int, content string) (database.Message, error) {
	if content == "" {
		return database.Message{}, ErrEmptyContent
	}

	if _, err := s.roomForWrite(roomId, editorId); err != nil {
		return database.Message{}, err
	}

	msg, err := s.repo.GetMessageById(messageId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.Message{}, ErrMessageNotFound
		}
		return database.Message{}, fmt.Errorf("get message: %w", err)
	}
	if msg.RoomId != roomId {
		return database.Message{}, ErrMessageNotInRoom
	}
	if msg.SenderId != editorId {
		return database.Message{}, ErrNotSender
	}

	updated, err := s.repo.UpdateMessageContent(messageId, content)
	if err != nil {
		return database.Message{}, fmt.Errorf("update message: %w", err)
	}

	return updated, nil
}

// ListMessages pages through a room's history for a participant. Archived
// rooms stay readable.
func (s *Service) ListMessages(roomId, userId, beforeId, limit int) ([]database.Message, error) {
	ok, err := s.dir.IsParticipant(roomId, userId)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotParticipant
	}

	return s.repo.ListMessages(roomId, beforeId, limit)
}

func (s *Service) CountUnread(roomId, userId int) (int, error) {
	ok, err := s.dir.IsParticipant(roomId, userId)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotParticipant
	}

	return s.repo.CountUnreadMessages(roomId, userId)
}

// roomForWrite loads a room and enforces the write preconditions shared by
// every mutating event: the room must be open and the actor a participant.
func (s *Service) roomForWrite(roomId, userId int) (database.Room, error) {
	room, err := s.dir.GetRoom(roomId)
	if err != nil {
		return database.Room{}, err
	}
	if !room.Active {
		return database.Room{}, ErrRoomArchived
	}

	var participant bool
	for _, id := range room.ParticipantIds {
		if id == userId {
			participant = true
			break
		}
	}
	if !participant {
		return database.Room{}, ErrNotParticipant
	}

	return room, nil
}

// notifyOfflineParticipants emails every participant who has no live
// connection, honoring their notification settings. Failures are logged and
// swallowed: the message itself was already delivered.
func (s *Service) notifyOfflineParticipants(room database.Room, msg database.Message, sender types.UserRef) {
	for _, userId := range room.ParticipantIds {
		if userId == sender.Id {
			continue
		}
		if s.broker.GroupSize(broker.UserGroup(userId)) > 0 {
			continue
		}

		settings, err := s.repo.GetOrCreateChatSettings(userId)
		if err != nil {
			s.logger.Printf("load chat settings for user %d: %v", userId, err)
			continue
		}
		if !settings.NotificationsEnabled || !settings.MessageNotifications {
			continue
		}

		user, err := s.repo.GetAccountById(userId)
		if err != nil {
			s.logger.Printf("load account %d for notification: %v", userId, err)
			continue
		}
		if user.EmailAddress == "" {
			continue
		}

		recipientName := user.FullName
		if recipientName == "" {
			recipientName = user.Username
		}
		senderName := sender.FullName
		if senderName == "" {
			senderName = sender.Username
		}

		err = s.notifier.NotifyNewMessage(notify.MessageNotification{
			RecipientName:  recipientName,
			RecipientEmail: user.EmailAddress,
			SenderName:     senderName,
			RoomName:       room.Name,
			Content:        msg.Content,
			IncludePreview: settings.MessagePreview,
		})
		if err != nil {
			s.logger.Printf("notify user %d: %v", userId, err)
		}
	}
}

func toWireMessage(msg database.Message) types.Message {
	return types.Message{
		Id:         msg.Id,
		RoomId:     msg.RoomId,
		SenderId:   msg.SenderId,
		Kind:       msg.Kind,
		Content:    msg.Content,
		Attachment: msg.Attachment,
		FullyRead:  msg.FullyRead,
		Edited:     msg.Edited,
		ReplyToId:  msg.ReplyToId,
		CreatedAt:  msg.CreatedAt,
		UpdatedAt:  msg.UpdatedAt,
	}
}
