package server

import (
	"testing"
	"time"

	"github.com/edulane/school-chat/internal/broker"
	"github.com/edulane/school-chat/internal/chat"
	"github.com/edulane/school-chat/internal/database"
	"github.com/edulane/school-chat/internal/directory"
	"github.com/edulane/school-chat/internal/notify"
	"github.com/edulane/school-chat/internal/stats"
	"github.com/edulane/school-chat/internal/testutil"
	"github.com/edulane/school-chat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type testHarness struct {
	repo    *database.MockChatRepository
	broker  *broker.Broker
	gateway *Gateway
	chat    *chat.Service
}

func newTestHarness(t *testing.T) *testHarness {
	mockRepo := &database.MockChatRepository{}
	mockStats := &stats.MockStatsUpdater{}
	mockStats.On("RegisterMetric", mock.Anything).Return()
	mockStats.On("Incr", mock.Anything).Return()
	mockStats.On("Decr", mock.Anything).Return()

	logger := testutil.TestLogger(t)
	b := broker.NewBroker(logger, mockStats)
	dir := directory.NewDirectory(mockRepo, logger)
	chatService := chat.NewService(mockRepo, dir, b, &notify.MockNotifier{}, mockStats, logger)

	return &testHarness{
		repo:    mockRepo,
		broker:  b,
		gateway: NewGateway(logger, dir, b, mockStats),
		chat:    chatService,
	}
}

func (h *testHarness) newClient(t *testing.T, user types.User) *Client {
	return NewClient(user, nil, h.gateway, h.chat, testutil.TestLogger(t))
}

func drainEvent(t *testing.T, c *Client) *types.ServerEvent {
	t.Helper()
	select {
	case ev := <-c.send:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for queued event")
		return nil
	}
}

func TestQueueEvent(t *testing.T) {
	t.Run("successful queue", func(t *testing.T) {
		c := &Client{
			send: make(chan *types.ServerEvent, 1),
			stop: make(chan struct{}),
			log:  testutil.TestLogger(t),
		}

		res := c.QueueEvent(&types.ServerEvent{Type: types.EventMessage})
		assert.True(t, res, "expected QueueEvent to return true when queue is not full")
		assert.Len(t, c.send, 1)
	})
	t.Run("queue full", func(t *testing.T) {
		c := &Client{
			send: make(chan *types.ServerEvent, 1),
			stop: make(chan struct{}),
			log:  testutil.TestLogger(t),
		}

		c.send <- &types.ServerEvent{}
		res := c.QueueEvent(&types.ServerEvent{})
		assert.False(t, res, "expected QueueEvent to return false when queue is full")
	})
	t.Run("stopped client", func(t *testing.T) {
		c := &Client{
			send: make(chan *types.ServerEvent, 1),
			stop: make(chan struct{}),
			log:  testutil.TestLogger(t),
		}

		c.stopClient()
		res := c.QueueEvent(&types.ServerEvent{})
		assert.False(t, res, "expected QueueEvent to return false after stop")
	})
}

func Test_stopClient(t *testing.T) {
	c := &Client{
		stop: make(chan struct{}),
	}

	c.stopClient()
	c.stopClient() // idempotent

	select {
	case <-c.stop:
	default:
		t.Error("expected stop channel to be closed")
	}
}

func Test_dispatch_message(t *testing.T) {
	h := newTestHarness(t)
	h.repo.On("GetRoomById", 1).Return(database.Room{
		Id:             1,
		Active:         true,
		ParticipantIds: []int{1, 2},
	}, nil)
	h.repo.On("CreateMessage", mock.Anything).Return(database.Message{
		Id:       10,
		RoomId:   1,
		SenderId: 1,
		Kind:     types.MessageText,
		Content:  "hi",
	}, nil)
	h.repo.On("GetOrCreateChatSettings", 2).Return(database.ChatSettings{UserId: 2}, nil)

	sender := h.newClient(t, types.User{Id: 1, Username: "ana"})
	h.broker.Subscribe(broker.RoomGroup(1), sender)

	sender.dispatch(&ClientEvent{
		Type:    types.EventMessage,
		RoomId:  1,
		Content: "hi",
	})

	ev := drainEvent(t, sender)
	assert.Equal(t, types.EventMessage, ev.Type)
	payload := ev.Data.(types.MessagePayload)
	assert.Equal(t, 10, payload.Id)
	assert.Equal(t, "ana", payload.Sender.Username)
}

func Test_dispatch_messageRejections(t *testing.T) {
	tt := []struct {
		name         string
		room         database.Room
		event        ClientEvent
		expectedCode string
	}{
		{
			name: "not a participant",
			room: database.Room{Id: 1, Active: true, ParticipantIds: []int{2, 3}},
			event: ClientEvent{
				Type:    types.EventMessage,
				RoomId:  1,
				Content: "hi",
			},
			expectedCode: CodeNotParticipant,
		},
		{
			name: "archived room",
			room: database.Room{Id: 1, Active: false, ParticipantIds: []int{1, 2}},
			event: ClientEvent{
				Type:    types.EventMessage,
				RoomId:  1,
				Content: "hi",
			},
			expectedCode: CodeRoomArchived,
		},
		{
			name: "empty content",
			room: database.Room{Id: 1, Active: true, ParticipantIds: []int{1, 2}},
			event: ClientEvent{
				Type:   types.EventMessage,
				RoomId: 1,
			},
			expectedCode: CodeInvalidMessage,
		},
		{
			name: "system kind from a client",
			room: database.Room{Id: 1, Active: true, ParticipantIds: []int{1, 2}},
			event: ClientEvent{
				Type:        types.EventMessage,
				RoomId:      1,
				MessageType: types.MessageSystem,
				Content:     "maintenance window",
			},
			expectedCode: CodeInvalidMessage,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHarness(t)
			h.repo.On("GetRoomById", 1).Return(tc.room, nil)

			c := h.newClient(t, types.User{Id: 1, Username: "ana"})
			c.dispatch(&tc.event)

			ev := drainEvent(t, c)
			assert.Equal(t, types.EventError, ev.Type)
			assert.Equal(t, tc.expectedCode, ev.Data.(types.ErrorPayload).Code)
			h.repo.AssertNotCalled(t, "CreateMessage", mock.Anything)
		})
	}
}

func Test_dispatch_typing(t *testing.T) {
	h := newTestHarness(t)
	h.repo.On("GetRoomById", 1).Return(database.Room{
		Id:             1,
		Active:         true,
		ParticipantIds: []int{1, 2},
	}, nil)

	origin := h.newClient(t, types.User{Id: 1, Username: "ana"})
	other := h.newClient(t, types.User{Id: 2, Username: "bob"})
	h.broker.Subscribe(broker.RoomGroup(1), origin)
	h.broker.Subscribe(broker.RoomGroup(1), other)

	origin.dispatch(&ClientEvent{
		Type:     types.EventTyping,
		RoomId:   1,
		IsTyping: true,
	})

	ev := drainEvent(t, other)
	assert.Equal(t, types.EventTyping, ev.Type)
	assert.True(t, ev.Data.(types.TypingPayload).IsTyping)

	select {
	case ev := <-origin.send:
		t.Fatalf("expected no echo to originator, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func Test_dispatch_read(t *testing.T) {
	h := newTestHarness(t)
	h.repo.On("GetRoomById", 1).Return(database.Room{
		Id:             1,
		Active:         true,
		ParticipantIds: []int{1, 2},
	}, nil)
	h.repo.On("GetMessageById", 10).Return(database.Message{
		Id:       10,
		RoomId:   1,
		SenderId: 1,
	}, nil)
	h.repo.On("CreateReadReceipt", 10, 2).Return(true, nil)
	h.repo.On("CountReadReceipts", 10).Return(1, nil)
	h.repo.On("SetMessageFullyRead", 10).Return(nil)

	reader := h.newClient(t, types.User{Id: 2, Username: "bob"})
	h.broker.Subscribe(broker.RoomGroup(1), reader)

	reader.dispatch(&ClientEvent{
		Type:      types.EventRead,
		RoomId:    1,
		MessageId: 10,
	})

	ev := drainEvent(t, reader)
	assert.Equal(t, types.EventRead, ev.Type)
	payload := ev.Data.(types.ReadPayload)
	assert.Equal(t, 10, payload.MessageId)
	assert.Equal(t, 2, payload.UserId)
	assert.True(t, payload.FullyRead)
	h.repo.AssertExpectations(t)
}

func Test_dispatch_unknownType(t *testing.T) {
	h := newTestHarness(t)
	c := h.newClient(t, types.User{Id: 1})

	c.dispatch(&ClientEvent{Type: "presence", RoomId: 1})

	ev := drainEvent(t, c)
	assert.Equal(t, types.EventError, ev.Type)
	assert.Equal(t, CodeUnknownType, ev.Data.(types.ErrorPayload).Code)
}
