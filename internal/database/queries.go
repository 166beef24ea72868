package database

import (
	"database/sql"
	"fmt"
	"time"
)

const defaultMessagePageSize = 50

func (db *PgChatRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, full_name, email, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $5) RETURNING id, username, full_name, email, created_at, updated_at",
		params.Username,
		params.FullName,
		params.EmailAddress,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.FullName,
		&u.EmailAddress,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgChatRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"UPDATE accounts SET username = $2, full_name = $3, password_hash = $4, updated_at = $5 "+
			"WHERE id = $1 RETURNING id, username, full_name, email, created_at, updated_at",
		params.UserId,
		params.Username,
		params.FullName,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.FullName,
		&u.EmailAddress,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgChatRepository) GetAccountById(accountId int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, full_name, email, password_hash, created_at, updated_at "+
			"FROM accounts WHERE id = $1 LIMIT 1",
		accountId,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.FullName,
		&user.EmailAddress,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgChatRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, full_name, email, password_hash, created_at, updated_at "+
			"FROM accounts WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.FullName,
		&user.EmailAddress,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgChatRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	res := tx.QueryRow(
		"INSERT INTO rooms (name, kind, creator_id, is_active, created_at, updated_at) "+
			"VALUES ($1, $2, $3, TRUE, $4, $4) RETURNING id, name, kind, creator_id, is_active, created_at, updated_at",
		params.Name,
		params.Kind,
		params.CreatorId,
		now,
	)

	var room Room
	err = res.Scan(
		&room.Id,
		&room.Name,
		&room.Kind,
		&room.CreatorId,
		&room.Active,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return Room{}, err
	}

	// the creator is always a participant
	participants := params.ParticipantIds
	if !containsInt(participants, params.CreatorId) {
		participants = append(participants, params.CreatorId)
	}

	for _, userId := range participants {
		_, err = tx.Exec(
			"INSERT INTO room_participants (room_id, user_id, created_at) VALUES ($1, $2, $3) "+
				"ON CONFLICT (room_id, user_id) DO NOTHING",
			room.Id,
			userId,
			now,
		)
		if err != nil {
			return Room{}, err
		}
		room.ParticipantIds = append(room.ParticipantIds, userId)
	}

	if err = tx.Commit(); err != nil {
		return Room{}, err
	}

	return room, nil
}

func (db *PgChatRepository) GetRoomById(roomId int) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, kind, creator_id, is_active, created_at, updated_at "+
			"FROM rooms WHERE id = $1 LIMIT 1",
		roomId,
	)

	var room Room
	err := row.Scan(
		&room.Id,
		&room.Name,
		&room.Kind,
		&room.CreatorId,
		&room.Active,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return Room{}, err
	}

	room.ParticipantIds, err = db.listParticipantIds(roomId)
	return room, err
}

func (db *PgChatRepository) listParticipantIds(roomId int) ([]int, error) {
	rows, err := db.conn.Query(
		"SELECT user_id FROM room_participants WHERE room_id = $1 ORDER BY user_id",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (db *PgChatRepository) ListRoomsForUser(userId int) ([]Room, error) {
	rows, err := db.conn.Query(
		"SELECT r.id, r.name, r.kind, r.creator_id, r.is_active, r.created_at, r.updated_at "+
			"FROM rooms r JOIN room_participants p ON r.id = p.room_id "+
			"WHERE p.user_id = $1 AND r.is_active = TRUE ORDER BY r.updated_at DESC",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var room Room
		if err = rows.Scan(
			&room.Id,
			&room.Name,
			&room.Kind,
			&room.CreatorId,
			&room.Active,
			&room.CreatedAt,
			&room.UpdatedAt,
		); err != nil {
			return nil, err
		}

		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

func (db *PgChatRepository) FindPrivateRoom(userA, userB int) (Room, error) {
	// a private room whose participant set is exactly {userA, userB}
	row := db.conn.QueryRow(
		"SELECT r.id FROM rooms r "+
			"WHERE r.kind = 'private' "+
			"AND EXISTS (SELECT 1 FROM room_participants WHERE room_id = r.id AND user_id = $1) "+
			"AND EXISTS (SELECT 1 FROM room_participants WHERE room_id = r.id AND user_id = $2) "+
			"AND (SELECT COUNT(*) FROM room_participants WHERE room_id = r.id) = 2 "+
			"LIMIT 1",
		userA,
		userB,
	)

	var roomId int
	if err := row.Scan(&roomId); err != nil {
		return Room{}, err
	}

	return db.GetRoomById(roomId)
}

func (db *PgChatRepository) AddParticipant(roomId, userId int) error {
	_, err := db.conn.Exec(
		"INSERT INTO room_participants (room_id, user_id, created_at) VALUES ($1, $2, $3) "+
			"ON CONFLICT (room_id, user_id) DO NOTHING",
		roomId,
		userId,
		time.Now().UTC(),
	)

	return err
}

func (db *PgChatRepository) RemoveParticipant(roomId, userId int) error {
	_, err := db.conn.Exec(
		"DELETE FROM room_participants WHERE room_id = $1 AND user_id = $2",
		roomId,
		userId,
	)

	return err
}

func (db *PgChatRepository) ArchiveRoom(roomId int) error {
	_, err := db.conn.Exec(
		"UPDATE rooms SET is_active = FALSE, updated_at = $2 WHERE id = $1",
		roomId,
		time.Now().UTC(),
	)

	return err
}

func (db *PgChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	var replyTo sql.NullInt64
	if params.ReplyToId > 0 {
		replyTo = sql.NullInt64{Int64: int64(params.ReplyToId), Valid: true}
	}

	res := db.conn.QueryRow(
		"INSERT INTO messages (room_id, sender_id, kind, content, attachment, reply_to_id, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $7) "+
			"RETURNING id, room_id, sender_id, kind, content, attachment, fully_read, edited, reply_to_id, created_at, updated_at",
		params.RoomId,
		params.SenderId,
		params.Kind,
		params.Content,
		params.Attachment,
		replyTo,
		time.Now().UTC(),
	)

	return scanMessageRow(res)
}

func (db *PgChatRepository) GetMessageById(messageId int) (Message, error) {
	row := db.conn.QueryRow(
		"SELECT id, room_id, sender_id, kind, content, attachment, fully_read, edited, reply_to_id, created_at, updated_at "+
			"FROM messages WHERE id = $1 LIMIT 1",
		messageId,
	)

	return scanMessageRow(row)
}

func (db *PgChatRepository) ListMessages(roomId, beforeId, limit int) ([]Message, error) {
	upper, size := pageWindow(beforeId, limit)

	// newest rows below the cursor, flipped back to oldest-first before
	// returning so callers always see ascending history
	rows, err := db.conn.Query(
		"SELECT id, room_id, sender_id, kind, content, attachment, fully_read, edited, reply_to_id, created_at, updated_at "+
			"FROM messages WHERE room_id = $1 AND id < $2 ORDER BY created_at DESC, id DESC LIMIT $3",
		roomId,
		upper,
		size,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages, err := scanMessageRows(rows, size)
	if err != nil {
		return nil, err
	}

	reverseMessages(messages)
	return messages, nil
}

// pageWindow turns a page request into the exclusive id upper bound and the
// effective page size. A zero cursor means the newest page.
func pageWindow(beforeId, limit int) (upper, size int) {
	upper = 1<<31 - 1
	if beforeId > 0 {
		upper = beforeId
	}

	size = limit
	if size <= 0 {
		size = defaultMessagePageSize
	}

	return upper, size
}

func reverseMessages(messages []Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}

func (db *PgChatRepository) ListUnreadMessages(roomId, userId int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT id, room_id, sender_id, kind, content, attachment, fully_read, edited, reply_to_id, created_at, updated_at "+
			"FROM messages m WHERE m.room_id = $1 AND m.sender_id != $2 "+
			"AND NOT EXISTS (SELECT 1 FROM read_receipts rr WHERE rr.message_id = m.id AND rr.user_id = $2) "+
			"ORDER BY m.created_at, m.id",
		roomId,
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessageRows(rows, 0)
}

func (db *PgChatRepository) CountUnreadMessages(roomId, userId int) (int, error) {
	row := db.conn.QueryRow(
		"SELECT COUNT(*) FROM messages m WHERE m.room_id = $1 AND m.sender_id != $2 "+
			"AND NOT EXISTS (SELECT 1 FROM read_receipts rr WHERE rr.message_id = m.id AND rr.user_id = $2)",
		roomId,
		userId,
	)

	var count int
	err := row.Scan(&count)
	return count, err
}

func (db *PgChatRepository) UpdateMessageContent(messageId int, content string) (Message, error) {
	res := db.conn.QueryRow(
		"UPDATE messages SET content = $2, edited = TRUE, updated_at = $3 WHERE id = $1 "+
			"RETURNING id, room_id, sender_id, kind, content, attachment, fully_read, edited, reply_to_id, created_at, updated_at",
		messageId,
		content,
		time.Now().UTC(),
	)

	return scanMessageRow(res)
}

func (db *PgChatRepository) SetMessageFullyRead(messageId int) error {
	_, err := db.conn.Exec(
		"UPDATE messages SET fully_read = TRUE, updated_at = $2 WHERE id = $1",
		messageId,
		time.Now().UTC(),
	)

	return err
}

func (db *PgChatRepository) CreateReadReceipt(messageId, userId int) (bool, error) {
	res, err := db.conn.Exec(
		"INSERT INTO read_receipts (message_id, user_id, read_at) VALUES ($1, $2, $3) "+
			"ON CONFLICT (message_id, user_id) DO NOTHING",
		messageId,
		userId,
		time.Now().UTC(),
	)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (db *PgChatRepository) CountReadReceipts(messageId int) (int, error) {
	row := db.conn.QueryRow(
		"SELECT COUNT(*) FROM read_receipts WHERE message_id = $1",
		messageId,
	)

	var count int
	err := row.Scan(&count)
	return count, err
}

func (db *PgChatRepository) GetOrCreateChatSettings(userId int) (ChatSettings, error) {
	// lazy creation with default-true preferences
	_, err := db.conn.Exec(
		"INSERT INTO chat_settings (user_id, created_at, updated_at) VALUES ($1, $2, $2) "+
			"ON CONFLICT (user_id) DO NOTHING",
		userId,
		time.Now().UTC(),
	)
	if err != nil {
		return ChatSettings{}, err
	}

	row := db.conn.QueryRow(
		"SELECT user_id, notifications_enabled, message_notifications, sound_enabled, typing_indicators, message_preview, created_at, updated_at "+
			"FROM chat_settings WHERE user_id = $1 LIMIT 1",
		userId,
	)

	var cs ChatSettings
	err = row.Scan(
		&cs.UserId,
		&cs.NotificationsEnabled,
		&cs.MessageNotifications,
		&cs.SoundEnabled,
		&cs.TypingIndicators,
		&cs.MessagePreview,
		&cs.CreatedAt,
		&cs.UpdatedAt,
	)

	return cs, err
}

func (db *PgChatRepository) UpdateChatSettings(params UpdateChatSettingsParams) (ChatSettings, error) {
	res := db.conn.QueryRow(
		"UPDATE chat_settings SET notifications_enabled = $2, message_notifications = $3, sound_enabled = $4, "+
			"typing_indicators = $5, message_preview = $6, updated_at = $7 WHERE user_id = $1 "+
			"RETURNING user_id, notifications_enabled, message_notifications, sound_enabled, typing_indicators, message_preview, created_at, updated_at",
		params.UserId,
		params.NotificationsEnabled,
		params.MessageNotifications,
		params.SoundEnabled,
		params.TypingIndicators,
		params.MessagePreview,
		time.Now().UTC(),
	)

	var cs ChatSettings
	err := res.Scan(
		&cs.UserId,
		&cs.NotificationsEnabled,
		&cs.MessageNotifications,
		&cs.SoundEnabled,
		&cs.TypingIndicators,
		&cs.MessagePreview,
		&cs.CreatedAt,
		&cs.UpdatedAt,
	)

	return cs, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessageRow(row rowScanner) (Message, error) {
	var (
		msg     Message
		replyTo sql.NullInt64
	)

	err := row.Scan(
		&msg.Id,
		&msg.RoomId,
		&msg.SenderId,
		&msg.Kind,
		&msg.Content,
		&msg.Attachment,
		&msg.FullyRead,
		&msg.Edited,
		&replyTo,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		return Message{}, err
	}

	if replyTo.Valid {
		msg.ReplyToId = int(replyTo.Int64)
	}

	return msg, nil
}

func scanMessageRows(rows *sql.Rows, capacityHint int) ([]Message, error) {
	messages := make([]Message, 0, capacityHint)
	for rows.Next() {
		msg, err := scanMessageRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}

		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
