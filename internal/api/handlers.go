package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"

	"github.com/edulane/school-chat/internal/database"
	"github.com/edulane/school-chat/internal/server"
	"github.com/edulane/school-chat/internal/types"
	"github.com/gorilla/websocket"
)

type CreateRoomRequest struct {
	Name           string         `json:"name"`
	Kind           types.RoomKind `json:"kind"`
	ParticipantIds []int          `json:"participant_ids"`
}

type PrivateRoomRequest struct {
	UserId int `json:"user_id"`
}

type ParticipantRequest struct {
	RoomId int `json:"room_id"`
	UserId int `json:"user_id"`
}

type EditMessageRequest struct {
	RoomId    int    `json:"room_id"`
	MessageId int    `json:"message_id"`
	Content   string `json:"content"`
}

type MarkReadRequest struct {
	RoomId    int `json:"room_id"`
	MessageId int `json:"message_id,omitempty"`
}

type MarkReadResponse struct {
	Created int `json:"created"`
}

type UnreadResponse struct {
	RoomId int `json:"room_id"`
	Count  int `json:"count"`
}

type PrivateRoomResponse struct {
	Room    types.Room `json:"room"`
	Created bool       `json:"created"`
}

type UpdateSettingsRequest struct {
	NotificationsEnabled bool `json:"notifications_enabled"`
	MessageNotifications bool `json:"message_notifications"`
	SoundEnabled         bool `json:"sound_enabled"`
	TypingIndicators     bool `json:"typing_indicators"`
	MessagePreview       bool `json:"message_preview"`
}

func (s *ChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *ChatApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health check:", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *ChatApp) createRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Kind == "" {
		req.Kind = types.RoomGroup
	}

	newRoom, err := s.dir.CreateRoom(database.CreateRoomParams{
		Name:           req.Name,
		Kind:           req.Kind,
		CreatorId:      userId,
		ParticipantIds: req.ParticipantIds,
	})
	if err != nil {
		errResp := apiErrorFor(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// connected participants start receiving the room's events right away
	for _, participantId := range newRoom.ParticipantIds {
		s.gateway.SubscribeUserToRoom(participantId, newRoom.Id)
	}

	s.writeJson(w, http.StatusCreated, toApiRoom(newRoom))
}

// getRooms returns one room when ?id= is given, otherwise every active room
// the caller participates in.
func (s *ChatApp) getRooms(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	idStr := r.URL.Query().Get("id")
	if idStr != "" {
		roomId, err := strconv.Atoi(idStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		room, err := s.dir.GetRoom(roomId)
		if err != nil {
			errResp := apiErrorFor(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		if !slices.Contains(room.ParticipantIds, userId) {
			errResp := NewForbiddenError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, toApiRoom(room))
		return
	}

	dbRooms, err := s.dir.ListRoomsForUser(userId)
	if err != nil {
		s.log.Println("list rooms:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	rooms := make([]types.Room, 0, len(dbRooms))
	for _, dbRoom := range dbRooms {
		rooms = append(rooms, toApiRoom(dbRoom))
	}

	s.writeJson(w, http.StatusOK, rooms)
}

func (s *ChatApp) archiveRoom(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.dir.ArchiveRoom(roomId, userId); err != nil {
		errResp := apiErrorFor(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *ChatApp) privateRoom(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req PrivateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserId == 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.db.GetAccountById(req.UserId); err != nil {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, created, err := s.dir.FindOrCreatePrivateRoom(userId, req.UserId)
	if err != nil {
		errResp := apiErrorFor(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if created {
		s.gateway.SubscribeUserToRoom(userId, room.Id)
		s.gateway.SubscribeUserToRoom(req.UserId, room.Id)
	}

	statusCode := http.StatusOK
	if created {
		statusCode = http.StatusCreated
	}

	s.writeJson(w, statusCode, PrivateRoomResponse{
		Room:    toApiRoom(room),
		Created: created,
	})
}

func (s *ChatApp) addParticipant(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req ParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomId == 0 || req.UserId == 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.dir.GetRoom(req.RoomId)
	if err != nil {
		errResp := apiErrorFor(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// only existing participants may invite others
	if !slices.Contains(room.ParticipantIds, userId) {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.dir.AddParticipant(req.RoomId, req.UserId); err != nil {
		errResp := apiErrorFor(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.gateway.SubscribeUserToRoom(req.UserId, req.RoomId)
	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *ChatApp) removeParticipant(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	query := r.URL.Query()
	roomId, err := strconv.Atoi(query.Get("room_id"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	targetId, err := strconv.Atoi(query.Get("user_id"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.dir.GetRoom(roomId)
	if err != nil {
		errResp := apiErrorFor(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// a user may leave on their own, only the creator removes others
	if targetId != userId && room.CreatorId != userId {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.dir.RemoveParticipant(roomId, targetId); err != nil {
		errResp := apiErrorFor(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.gateway.UnsubscribeUserFromRoom(targetId, roomId)
	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *ChatApp) getMessages(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	query := r.URL.Query()
	roomId, err := strconv.Atoi(query.Get("room_id"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var before, limit int
	if beforeStr := query.Get("before"); beforeStr != "" {
		before, err = strconv.Atoi(beforeStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	dbMessages, err := s.chat.ListMessages(roomId, userId, before, limit)
	if err != nil {
		errResp := apiErrorFor(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messages := make([]types.Message, 0, len(dbMessages))
	for _, msg := range dbMessages {
		messages = append(messages, toApiMessage(msg))
	}

	s.writeJson(w, http.StatusOK, messages)
}

func (s *ChatApp) editMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomId == 0 || req.MessageId == 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, err := s.chat.EditMessage(req.RoomId, userId, req.MessageId, req.Content)
	if err != nil {
		errResp := apiErrorFor(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, toApiMessage(msg))
}

// markRead acknowledges one message, or every unread message in the room when
// message_id is omitted.
func (s *ChatApp) markRead(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomId == 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var created int
	var err error
	if req.MessageId > 0 {
		var ok bool
		ok, err = s.chat.MarkRead(req.RoomId, userId, req.MessageId)
		if ok {
			created = 1
		}
	} else {
		created, err = s.chat.MarkAllRead(req.RoomId, userId)
	}
	if err != nil {
		errResp := apiErrorFor(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, MarkReadResponse{Created: created})
}

func (s *ChatApp) getUnreadCount(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := strconv.Atoi(r.URL.Query().Get("room_id"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	count, err := s.chat.CountUnread(roomId, userId)
	if err != nil {
		errResp := apiErrorFor(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, UnreadResponse{RoomId: roomId, Count: count})
}

func (s *ChatApp) chatSettings(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	switch r.Method {
	case http.MethodGet:
		settings, err := s.db.GetOrCreateChatSettings(userId)
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, toApiSettings(settings))
	case http.MethodPut:
		var req UpdateSettingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		// settings exist before update, created lazily on first access
		if _, err := s.db.GetOrCreateChatSettings(userId); err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		settings, err := s.db.UpdateChatSettings(database.UpdateChatSettingsParams{
			UserId:               userId,
			NotificationsEnabled: req.NotificationsEnabled,
			MessageNotifications: req.MessageNotifications,
			SoundEnabled:         req.SoundEnabled,
			TypingIndicators:     req.TypingIndicators,
			MessagePreview:       req.MessagePreview,
		})
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, toApiSettings(settings))
	default:
		errResp := NewMethodNotAllowedError()
		s.writeJson(w, errResp.StatusCode, errResp)
	}
}

func (s *ChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	id, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(id)
	if err != nil {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(toApiUser(user), conn, s.gateway, s.chat, s.log)

	if err := s.gateway.Register(client); err != nil {
		s.log.Println("register client:", err)
		conn.Close()
		return
	}

	go client.Write()
	go client.Read()
}

func toApiRoom(room database.Room) types.Room {
	return types.Room{
		Id:             room.Id,
		Name:           room.Name,
		Kind:           room.Kind,
		CreatorId:      room.CreatorId,
		Active:         room.Active,
		ParticipantIds: room.ParticipantIds,
		CreatedAt:      room.CreatedAt,
		UpdatedAt:      room.UpdatedAt,
	}
}

func toApiMessage(msg database.Message) types.Message {
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

func toApiSettings(settings database.ChatSettings) types.ChatSettings {
	return types.ChatSettings{
		UserId:               settings.UserId,
		NotificationsEnabled: settings.NotificationsEnabled,
		MessageNotifications: settings.MessageNotifications,
		SoundEnabled:         settings.SoundEnabled,
		TypingIndicators:     settings.TypingIndicators,
		MessagePreview:       settings.MessagePreview,
		CreatedAt:            settings.CreatedAt,
		UpdatedAt:            settings.UpdatedAt,
	}
}
