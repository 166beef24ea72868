// Package broker fans chat events out to live subscribers. Delivery is
// at-most-once: an event published while a subscriber's queue is full is
// dropped for that subscriber and counted, never retried.
package broker

import (
	"fmt"
	"log"
	"sync"

	"github.com/edulane/school-chat/internal/stats"
	"github.com/edulane/school-chat/internal/types"
)

// Subscriber is a live event sink, typically one websocket connection.
// QueueEvent must not block; it reports whether the event was accepted.
type Subscriber interface {
	QueueEvent(event *types.ServerEvent) bool
}

func RoomGroup(roomId int) string {
	return fmt.Sprintf("room:%d", roomId)
}

func UserGroup(userId int) string {
	return fmt.Sprintf("user:%d", userId)
}

type Broker struct {
	mu     sync.RWMutex
	groups map[string]map[Subscriber]struct{}
	logger *log.Logger
	stats  stats.StatsProvider
}

func NewBroker(logger *log.Logger, statsProvider stats.StatsProvider) *Broker {
	statsProvider.RegisterMetric(stats.NumActiveGroups)
	statsProvider.RegisterMetric(stats.EventsDropped)

	return &Broker{
		groups: make(map[string]map[Subscriber]struct{}),
		logger: logger,
		stats:  statsProvider,
	}
}

func (b *Broker) Subscribe(group string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	members, ok := b.groups[group]
	if !ok {
		members = make(map[Subscriber]struct{})
		b.groups[group] = members
		b.stats.Incr(stats.NumActiveGroups)
	}

	members[sub] = struct{}{}
}

func (b *Broker) Unsubscribe(group string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.removeLocked(group, sub)
}

// UnsubscribeAll detaches a subscriber from every group it is in. Called on
// connection teardown so a dead socket never strands group entries.
func (b *Broker) UnsubscribeAll(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for group := range b.groups {
		b.removeLocked(group, sub)
	}
}

func (b *Broker) removeLocked(group string, sub Subscriber) {
	members, ok := b.groups[group]
	if !ok {
		return
	}

	if _, ok := members[sub]; !ok {
		return
	}

	delete(members, sub)
	if len(members) == 0 {
		delete(b.groups, group)
		b.stats.Decr(stats.NumActiveGroups)
	}
}

// Publish delivers an event to every member of a group except skip. The skip
// subscriber keeps typing indicators from echoing back to their originator.
func (b *Broker) Publish(group string, event *types.ServerEvent, skip Subscriber) {
	b.mu.RLock()
	members := make([]Subscriber, 0, len(b.groups[group]))
	for sub := range b.groups[group] {
		if sub != skip {
			members = append(members, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range members {
		if !sub.QueueEvent(event) {
			b.stats.Incr(stats.EventsDropped)
			b.logger.Printf("dropped %s event for slow subscriber in group %s", event.Type, group)
		}
	}
}

// GroupSize reports the number of live subscribers in a group. A zero-sized
// user group means the user has no open connection.
func (b *Broker) GroupSize(group string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.groups[group])
}
