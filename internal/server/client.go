package server

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/edulane/school-chat/internal/chat"
	"github.com/edulane/school-chat/internal/directory"
	"github.com/edulane/school-chat/internal/types"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueueSize  = 256
)

// Client is one authenticated websocket connection. Inbound events are
// processed strictly in arrival order by the read pump; outbound events go
// through a bounded queue drained by the write pump.
type Client struct {
	conn     *websocket.Conn
	gateway  *Gateway
	chat     *chat.Service
	log      *log.Logger
	user     types.User
	send     chan *types.ServerEvent
	stop     chan struct{}
	stopOnce sync.Once
}

func NewClient(user types.User, conn *websocket.Conn, gw *Gateway, chatService *chat.Service, l *log.Logger) *Client {
	return &Client{
		conn:    conn,
		gateway: gw,
		chat:    chatService,
		log:     l,
		user:    user,
		send:    make(chan *types.ServerEvent, sendQueueSize),
		stop:    make(chan struct{}),
	}
}

func (c *Client) userRef() types.UserRef {
	return types.UserRef{
		Id:       c.user.Id,
		Username: c.user.Username,
		FullName: c.user.FullName,
	}
}

// QueueEvent enqueues an outbound event without blocking. It reports false
// when the queue is full or the client is stopping; the event is then dropped
// for this connection.
func (c *Client) QueueEvent(event *types.ServerEvent) bool {
	select {
	case <-c.stop:
		return false
	default:
	}

	select {
	case c.send <- event:
		return true
	default:
		c.log.Printf("send queue full for user %q, dropping %s event", c.user.Username, event.Type)
		return false
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Println("write exiting")
	}()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(event)
			if err != nil {
				c.log.Println("failed to serialize event:", err)
				continue
			}

			if !c.writeMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.writeMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Println("read exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var event ClientEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			c.log.Println("error parsing event:", err)
			c.QueueEvent(errMalformedEvent())
			continue
		}

		c.dispatch(&event)
	}
}

// dispatch routes one inbound event to the chat service. A rejected event
// answers with an error envelope and leaves the connection open.
func (c *Client) dispatch(event *ClientEvent) {
	switch event.Type {
	case types.EventMessage:
		// system messages originate server-side only
		if event.MessageType == types.MessageSystem {
			c.QueueEvent(errInvalidMessage(event.RoomId, "message kind not allowed"))
			return
		}

		_, err := c.chat.SendMessage(chat.SendMessageParams{
			RoomId:     event.RoomId,
			Sender:     c.userRef(),
			Kind:       event.MessageType,
			Content:    event.Content,
			Attachment: event.Attachment,
			ReplyToId:  event.ReplyToId,
		})
		c.answerError(event.RoomId, err)
	case types.EventTyping:
		err := c.chat.Typing(event.RoomId, c.userRef(), event.IsTyping, c)
		c.answerError(event.RoomId, err)
	case types.EventRead:
		var err error
		if event.MessageId > 0 {
			_, err = c.chat.MarkRead(event.RoomId, c.user.Id, event.MessageId)
		} else {
			_, err = c.chat.MarkAllRead(event.RoomId, c.user.Id)
		}
		c.answerError(event.RoomId, err)
	default:
		c.QueueEvent(errUnknownType(event.RoomId))
	}
}

func (c *Client) answerError(roomId int, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, chat.ErrNotParticipant):
		c.QueueEvent(errNotParticipant(roomId))
	case errors.Is(err, chat.ErrRoomArchived):
		c.QueueEvent(errRoomArchived(roomId))
	case errors.Is(err, directory.ErrRoomNotFound):
		c.QueueEvent(errRoomNotFound(roomId))
	case errors.Is(err, chat.ErrEmptyContent),
		errors.Is(err, chat.ErrInvalidKind),
		errors.Is(err, chat.ErrInvalidReplyTo),
		errors.Is(err, chat.ErrMessageNotFound),
		errors.Is(err, chat.ErrMessageNotInRoom):
		c.QueueEvent(errInvalidMessage(roomId, err.Error()))
	default:
		c.log.Printf("event failed for user %q: %v", c.user.Username, err)
		c.QueueEvent(errInternal(roomId))
	}
}

func (c *Client) writeMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Client) cleanup() {
	c.gateway.Deregister(c)
	c.stopClient()
}
