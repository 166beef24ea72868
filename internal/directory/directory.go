// Package directory maintains room membership and answers the participant
// queries the rest of the chat subsystem routes and reconciles against.
package directory

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/edulane/school-chat/internal/database"
	"github.com/edulane/school-chat/internal/types"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomArchived  = errors.New("room is archived")
	ErrNotCreator    = errors.New("only the room creator may do this")
	ErrSelfPrivate   = errors.New("cannot open a private room with yourself")
	ErrInvalidKind   = errors.New("invalid room kind")
	ErrEmptyRoomName = errors.New("room name is required")
)

type Directory struct {
	repo   database.ChatRepository
	logger *log.Logger
}

func NewDirectory(repo database.ChatRepository, logger *log.Logger) *Directory {
	return &Directory{
		repo:   repo,
		logger: logger,
	}
}

func (d *Directory) CreateRoom(params database.CreateRoomParams) (database.Room, error) {
	if !params.Kind.Valid() {
		return database.Room{}, ErrInvalidKind
	}

	if params.Kind != types.RoomPrivate && params.Name == "" {
		return database.Room{}, ErrEmptyRoomName
	}

	room, err := d.repo.CreateRoom(params)
	if err != nil {
		return database.Room{}, fmt.Errorf("create room: %w", err)
	}

	d.logger.Printf("created %s room %d (%q) with %d participants",
		room.Kind, room.Id, room.Name, len(room.ParticipantIds))

	return room, nil
}

// GetRoom returns a room regardless of its archived state. Callers that must
// reject writes to archived rooms check Active themselves.
func (d *Directory) GetRoom(roomId int) (database.Room, error) {
	room, err := d.repo.GetRoomById(roomId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.Room{}, ErrRoomNotFound
		}
		return database.Room{}, fmt.Errorf("get room %d: %w", roomId, err)
	}

	return room, nil
}

func (d *Directory) ListRoomsForUser(userId int) ([]database.Room, error) {
	return d.repo.ListRoomsForUser(userId)
}

// FindOrCreatePrivateRoom returns the one-to-one room between the two users,
// creating it if it does not exist yet. The returned bool reports whether a
// new room was created.
func (d *Directory) FindOrCreatePrivateRoom(userA, userB int) (database.Room, bool, error) {
	if userA == userB {
		return database.Room{}, false, ErrSelfPrivate
	}

	room, err := d.repo.FindPrivateRoom(userA, userB)
	if err == nil {
		return room, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return database.Room{}, false, fmt.Errorf("find private room: %w", err)
	}

	room, err = d.CreateRoom(database.CreateRoomParams{
		Kind:           types.RoomPrivate,
		CreatorId:      userA,
		ParticipantIds: []int{userA, userB},
	})
	if err != nil {
		return database.Room{}, false, err
	}

	return room, true, nil
}

func (d *Directory) AddParticipant(roomId, userId int) error {
	room, err := d.GetRoom(roomId)
	if err != nil {
		return err
	}
	if !room.Active {
		return ErrRoomArchived
	}

	if err := d.repo.AddParticipant(roomId, userId); err != nil {
		return fmt.Errorf("add participant: %w", err)
	}

	return nil
}

func (d *Directory) RemoveParticipant(roomId, userId int) error {
	if _, err := d.GetRoom(roomId); err != nil {
		return err
	}

	if err := d.repo.RemoveParticipant(roomId, userId); err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}

	return nil
}

// ArchiveRoom soft-deletes a room. History stays readable, new writes are
// rejected. Archiving twice is a no-op.
func (d *Directory) ArchiveRoom(roomId, requesterId int) error {
	room, err := d.GetRoom(roomId)
	if err != nil {
		return err
	}

	if room.CreatorId != requesterId {
		return ErrNotCreator
	}

	if err := d.repo.ArchiveRoom(roomId); err != nil {
		return fmt.Errorf("archive room: %w", err)
	}

	d.logger.Printf("room %d archived by user %d", roomId, requesterId)
	return nil
}

func (d *Directory) IsParticipant(roomId, userId int) (bool, error) {
	room, err := d.GetRoom(roomId)
	if err != nil {
		return false, err
	}

	for _, id := range room.ParticipantIds {
		if id == userId {
			return true, nil
		}
	}

	return false, nil
}

// ParticipantsExcept returns the current participant ids of a room minus the
// given user. Read-receipt reconciliation uses this as the receipt
// denominator, so a participant who has left stops counting.
func (d *Directory) ParticipantsExcept(roomId, excludeUserId int) ([]int, error) {
	room, err := d.GetRoom(roomId)
	if err != nil {
		return nil, err
	}

	others := make([]int, 0, len(room.ParticipantIds))
	for _, id := range room.ParticipantIds {
		if id != excludeUserId {
			others = append(others, id)
		}
	}

	return others, nil
}
