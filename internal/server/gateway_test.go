package server

import (
	"testing"

	"github.com/edulane/school-chat/internal/broker"
	"github.com/edulane/school-chat/internal/database"
	"github.com/edulane/school-chat/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestGatewayRegisterDeregister(t *testing.T) {
	h := newTestHarness(t)
	h.repo.On("ListRoomsForUser", 1).Return([]database.Room{
		{Id: 1, Active: true},
		{Id: 2, Active: true},
	}, nil)

	c := h.newClient(t, types.User{Id: 1, Username: "ana"})
	err := h.gateway.Register(c)
	assert.NoError(t, err)

	assert.Equal(t, 1, h.broker.GroupSize(broker.UserGroup(1)))
	assert.Equal(t, 1, h.broker.GroupSize(broker.RoomGroup(1)))
	assert.Equal(t, 1, h.broker.GroupSize(broker.RoomGroup(2)))

	h.gateway.Deregister(c)
	assert.Equal(t, 0, h.broker.GroupSize(broker.UserGroup(1)))
	assert.Equal(t, 0, h.broker.GroupSize(broker.RoomGroup(1)))
	assert.Equal(t, 0, h.broker.GroupSize(broker.RoomGroup(2)))

	// double deregister is a no-op
	h.gateway.Deregister(c)
}

func TestGatewayMultipleConnectionsPerUser(t *testing.T) {
	h := newTestHarness(t)
	h.repo.On("ListRoomsForUser", 1).Return([]database.Room{
		{Id: 1, Active: true},
	}, nil)

	laptop := h.newClient(t, types.User{Id: 1, Username: "ana"})
	phone := h.newClient(t, types.User{Id: 1, Username: "ana"})
	assert.NoError(t, h.gateway.Register(laptop))
	assert.NoError(t, h.gateway.Register(phone))

	assert.Equal(t, 2, h.broker.GroupSize(broker.UserGroup(1)))

	// a user-group publish reaches both devices
	h.broker.Publish(broker.UserGroup(1), types.NewReadEvent(10, 2, 1, false), nil)
	assert.Len(t, laptop.send, 1)
	assert.Len(t, phone.send, 1)

	h.gateway.Deregister(laptop)
	assert.Equal(t, 1, h.broker.GroupSize(broker.UserGroup(1)))
}

func TestGatewaySubscribeUserToRoomMidSession(t *testing.T) {
	h := newTestHarness(t)
	h.repo.On("ListRoomsForUser", 1).Return([]database.Room{}, nil)

	c := h.newClient(t, types.User{Id: 1, Username: "ana"})
	assert.NoError(t, h.gateway.Register(c))
	assert.Equal(t, 0, h.broker.GroupSize(broker.RoomGroup(7)))

	h.gateway.SubscribeUserToRoom(1, 7)
	assert.Equal(t, 1, h.broker.GroupSize(broker.RoomGroup(7)))

	h.gateway.UnsubscribeUserFromRoom(1, 7)
	assert.Equal(t, 0, h.broker.GroupSize(broker.RoomGroup(7)))
}

func TestGatewayShutdown(t *testing.T) {
	h := newTestHarness(t)
	h.repo.On("ListRoomsForUser", 1).Return([]database.Room{}, nil)

	c := h.newClient(t, types.User{Id: 1, Username: "ana"})
	assert.NoError(t, h.gateway.Register(c))

	h.gateway.Shutdown()

	select {
	case <-c.stop:
	default:
		t.Error("expected client stop channel to be closed on shutdown")
	}
}
