package broker

import (
	"testing"

	"github.com/edulane/school-chat/internal/stats"
	"github.com/edulane/school-chat/internal/testutil"
	"github.com/edulane/school-chat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type fakeSubscriber struct {
	events []*types.ServerEvent
	full   bool
}

func (f *fakeSubscriber) QueueEvent(event *types.ServerEvent) bool {
	if f.full {
		return false
	}
	f.events = append(f.events, event)
	return true
}

func newTestBroker(t *testing.T) (*Broker, *stats.MockStatsUpdater) {
	mockStats := &stats.MockStatsUpdater{}
	mockStats.On("RegisterMetric", mock.Anything).Return()
	mockStats.On("Incr", mock.Anything).Return()
	mockStats.On("Decr", mock.Anything).Return()
	return NewBroker(testutil.TestLogger(t), mockStats), mockStats
}

func TestSubscribePublish(t *testing.T) {
	b, _ := newTestBroker(t)

	sender := &fakeSubscriber{}
	receiver := &fakeSubscriber{}
	b.Subscribe(RoomGroup(1), sender)
	b.Subscribe(RoomGroup(1), receiver)

	event := types.NewTypingEvent(types.UserRef{Id: 1, Username: "ana"}, 1, true)
	b.Publish(RoomGroup(1), event, sender)

	assert.Empty(t, sender.events, "expected originator to be skipped")
	assert.Len(t, receiver.events, 1)
	assert.Equal(t, types.EventTyping, receiver.events[0].Type)
}

func TestPublishWithoutSkip(t *testing.T) {
	b, _ := newTestBroker(t)

	first := &fakeSubscriber{}
	second := &fakeSubscriber{}
	b.Subscribe(RoomGroup(3), first)
	b.Subscribe(RoomGroup(3), second)

	event := types.NewReadEvent(10, 2, 3, false)
	b.Publish(RoomGroup(3), event, nil)

	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 1)
}

func TestPublishPreservesOrderPerGroup(t *testing.T) {
	b, _ := newTestBroker(t)

	sub := &fakeSubscriber{}
	b.Subscribe(RoomGroup(7), sub)

	for id := 1; id <= 5; id++ {
		b.Publish(RoomGroup(7), types.NewReadEvent(id, 2, 7, false), nil)
	}

	assert.Len(t, sub.events, 5)
	for i, ev := range sub.events {
		payload := ev.Data.(types.ReadPayload)
		assert.Equal(t, i+1, payload.MessageId, "expected events delivered in publish order")
	}
}

func TestPublishDropsForSlowSubscriber(t *testing.T) {
	b, mockStats := newTestBroker(t)

	slow := &fakeSubscriber{full: true}
	b.Subscribe(RoomGroup(2), slow)

	event := types.NewTypingEvent(types.UserRef{Id: 5}, 2, false)
	b.Publish(RoomGroup(2), event, nil)

	assert.Empty(t, slow.events)
	mockStats.AssertCalled(t, "Incr", stats.EventsDropped)
}

func TestUnsubscribeAll(t *testing.T) {
	b, _ := newTestBroker(t)

	sub := &fakeSubscriber{}
	b.Subscribe(RoomGroup(1), sub)
	b.Subscribe(RoomGroup(2), sub)
	b.Subscribe(UserGroup(9), sub)
	assert.Equal(t, 1, b.GroupSize(UserGroup(9)))

	b.UnsubscribeAll(sub)

	assert.Equal(t, 0, b.GroupSize(RoomGroup(1)))
	assert.Equal(t, 0, b.GroupSize(RoomGroup(2)))
	assert.Equal(t, 0, b.GroupSize(UserGroup(9)), "expected user group to be empty after teardown")

	b.Publish(RoomGroup(1), types.NewTypingEvent(types.UserRef{Id: 1}, 1, true), nil)
	assert.Empty(t, sub.events, "expected no delivery after unsubscribe")
}

func TestGroupSizeTracksMembership(t *testing.T) {
	b, mockStats := newTestBroker(t)

	first := &fakeSubscriber{}
	second := &fakeSubscriber{}
	b.Subscribe(UserGroup(4), first)
	b.Subscribe(UserGroup(4), second)
	assert.Equal(t, 2, b.GroupSize(UserGroup(4)))

	b.Unsubscribe(UserGroup(4), first)
	assert.Equal(t, 1, b.GroupSize(UserGroup(4)))

	b.Unsubscribe(UserGroup(4), second)
	assert.Equal(t, 0, b.GroupSize(UserGroup(4)))
	mockStats.AssertCalled(t, "Decr", stats.NumActiveGroups)
}
