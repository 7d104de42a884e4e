/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	// Heartbeat once per evaluation cycle.
	EventWatcherTick EventType = "watcher.tick"

	// Blocking state transitions
	EventBlockingStarted EventType = "blocking.started"
	EventBlockingEnded   EventType = "blocking.ended"

	// Action dispatch
	EventActionTriggered EventType = "action.triggered"
	EventActionFailed    EventType = "action.failed"

	// Schedule snapshot
	EventSchedulesReloaded     EventType = "schedules.reloaded"
	EventSchedulesReloadFailed EventType = "schedules.reload_failed"
)

// AllEventTypes lists every event the service emits, in a stable order.
var AllEventTypes = []EventType{
	EventWatcherTick,
	EventBlockingStarted,
	EventBlockingEnded,
	EventActionTriggered,
	EventActionFailed,
	EventSchedulesReloaded,
	EventSchedulesReloadFailed,
}

// Publisher is the publishing half of a bus.
type Publisher interface {
	Publish(eventType EventType, payload Payload)
}

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers without blocking. A subscriber whose
// buffer is full misses the event. The read lock is held while sending so
// Unsubscribe cannot close a channel mid-send.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[eventType] {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber and closes it. Unknown subscribers are
// ignored so a double unsubscribe cannot close a channel twice.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			b.subs[eventType] = append(subs[:i:i], subs[i+1:]...)
			close(sub)
			return
		}
	}
}
