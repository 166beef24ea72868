// Package server owns the websocket side of the chat subsystem: one Client
// per connection and a Gateway that subscribes connections to the broadcast
// groups they are entitled to.
package server

import (
	"fmt"
	"log"
	"sync"

	"github.com/edulane/school-chat/internal/broker"
	"github.com/edulane/school-chat/internal/directory"
	"github.com/edulane/school-chat/internal/stats"
)

// Gateway tracks live connections. A connection moves through
// register -> subscribed -> deregistered; a deregistered client is never
// reused. A user may hold several concurrent connections, each subscribed
// independently.
type Gateway struct {
	log         *log.Logger
	dir         *directory.Directory
	broker      *broker.Broker
	stats       stats.StatsProvider
	clientsLock sync.Mutex
	clients     map[*Client]struct{}
	userClients map[int]map[*Client]struct{}
}

func NewGateway(logger *log.Logger, dir *directory.Directory, b *broker.Broker, statsProvider stats.StatsProvider) *Gateway {
	statsProvider.RegisterMetric(stats.NumActiveConnections)

	return &Gateway{
		log:         logger,
		dir:         dir,
		broker:      b,
		stats:       statsProvider,
		clients:     make(map[*Client]struct{}),
		userClients: make(map[int]map[*Client]struct{}),
	}
}

// Register subscribes a freshly authenticated connection to the user's own
// group and to the group of every room the user currently participates in.
func (gw *Gateway) Register(c *Client) error {
	rooms, err := gw.dir.ListRoomsForUser(c.user.Id)
	if err != nil {
		return fmt.Errorf("list rooms for user %d: %w", c.user.Id, err)
	}

	gw.broker.Subscribe(broker.UserGroup(c.user.Id), c)
	for _, room := range rooms {
		gw.broker.Subscribe(broker.RoomGroup(room.Id), c)
	}

	gw.clientsLock.Lock()
	gw.clients[c] = struct{}{}
	if gw.userClients[c.user.Id] == nil {
		gw.userClients[c.user.Id] = make(map[*Client]struct{})
	}
	gw.userClients[c.user.Id][c] = struct{}{}
	gw.clientsLock.Unlock()

	gw.stats.Incr(stats.NumActiveConnections)
	gw.log.Printf("registered connection for %q in %d rooms", c.user.Username, len(rooms))

	return nil
}

// Deregister detaches a connection from every group. Safe to call more than
// once for the same client.
func (gw *Gateway) Deregister(c *Client) {
	gw.clientsLock.Lock()
	_, known := gw.clients[c]
	if known {
		delete(gw.clients, c)
		if set, ok := gw.userClients[c.user.Id]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(gw.userClients, c.user.Id)
			}
		}
	}
	gw.clientsLock.Unlock()

	if !known {
		return
	}

	gw.broker.UnsubscribeAll(c)
	gw.stats.Decr(stats.NumActiveConnections)
	gw.log.Printf("deregistered connection for %q", c.user.Username)
}

// SubscribeUserToRoom attaches every live connection of a user to a room
// group. Called when the user is added to a room mid-session.
func (gw *Gateway) SubscribeUserToRoom(userId, roomId int) {
	for _, c := range gw.clientsForUser(userId) {
		gw.broker.Subscribe(broker.RoomGroup(roomId), c)
	}
}

// UnsubscribeUserFromRoom detaches every live connection of a user from a
// room group. Called when the user is removed from a room mid-session.
func (gw *Gateway) UnsubscribeUserFromRoom(userId, roomId int) {
	for _, c := range gw.clientsForUser(userId) {
		gw.broker.Unsubscribe(broker.RoomGroup(roomId), c)
	}
}

func (gw *Gateway) clientsForUser(userId int) []*Client {
	gw.clientsLock.Lock()
	defer gw.clientsLock.Unlock()

	clients := make([]*Client, 0, len(gw.userClients[userId]))
	for c := range gw.userClients[userId] {
		clients = append(clients, c)
	}
	return clients
}

// Shutdown stops every live client. Their read pumps unwind and deregister
// themselves.
func (gw *Gateway) Shutdown() {
	gw.clientsLock.Lock()
	clients := make([]*Client, 0, len(gw.clients))
	for c := range gw.clients {
		clients = append(clients, c)
	}
	gw.clientsLock.Unlock()

	gw.log.Printf("shutting down %d connections", len(clients))
	for _, c := range clients {
		c.stopClient()
	}
}
