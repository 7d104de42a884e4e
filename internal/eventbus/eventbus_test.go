/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/friendsincode/timegate/internal/config"
	"github.com/friendsincode/timegate/internal/events"
	"github.com/rs/zerolog"
)

func TestMessageRoundTrip(t *testing.T) {
	msg := newMessage(events.EventBlockingStarted, events.Payload{"schedule_id": 3}, "node-a")
	data, err := marshalMessage(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := unmarshalMessage(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != msg.ID || got.NodeID != "node-a" || got.EventType != events.EventBlockingStarted {
		t.Fatalf("unexpected message: %+v", got)
	}
	// JSON numbers decode as float64.
	if got.Payload["schedule_id"] != float64(3) {
		t.Fatalf("payload = %v", got.Payload)
	}

	if _, err := unmarshalMessage([]byte(`{"payload":{}}`)); err == nil {
		t.Fatal("expected error for message without event type")
	}
	if _, err := unmarshalMessage([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed message")
	}
}

func TestNodeID(t *testing.T) {
	if got := NodeID("desk-1"); got != "desk-1" {
		t.Fatalf("NodeID = %q", got)
	}
	a, b := NodeID(""), NodeID("")
	if a == "" || a == b {
		t.Fatalf("generated node ids should be unique: %q %q", a, b)
	}
}

func TestRelayDeliverSkipsOwnEcho(t *testing.T) {
	r := newRelay("test", "self", zerolog.Nop())
	defer r.stop()
	sub := r.Subscribe(events.EventBlockingStarted)

	own, _ := marshalMessage(newMessage(events.EventBlockingStarted, nil, "self"))
	r.deliver(own)
	select {
	case p := <-sub:
		t.Fatalf("own message delivered: %v", p)
	default:
	}

	remote, _ := marshalMessage(newMessage(events.EventBlockingStarted, nil, "other"))
	r.deliver(remote)
	select {
	case p := <-sub:
		if p["node_id"] != "other" {
			t.Fatalf("payload should name the source node: %v", p)
		}
	default:
		t.Fatal("remote message not delivered")
	}

	r.deliver([]byte("garbage"))
}

func TestRelayForwardsAsynchronously(t *testing.T) {
	r := newRelay("test", "self", zerolog.Nop())
	defer r.stop()

	var mu sync.Mutex
	var sent []events.EventType
	done := make(chan struct{}, 4)
	r.start(func(_ context.Context, msg *message, _ []byte) error {
		mu.Lock()
		sent = append(sent, msg.EventType)
		mu.Unlock()
		done <- struct{}{}
		if msg.EventType == events.EventActionFailed {
			return errors.New("remote down")
		}
		return nil
	})

	sub := r.Subscribe(events.EventWatcherTick)
	r.Publish(events.EventWatcherTick, events.Payload{})
	r.Publish(events.EventActionFailed, events.Payload{})

	if len(sub) != 1 {
		t.Fatal("local subscriber should receive the event synchronously")
	}
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("event was not forwarded")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if len(sent) != 2 || sent[0] != events.EventWatcherTick {
		t.Fatalf("forwarded = %v", sent)
	}
}

func TestRelayPublishNeverBlocks(t *testing.T) {
	r := newRelay("test", "self", zerolog.Nop())
	defer r.stop()

	// No sender started: the queue fills up and further events are dropped.
	start := time.Now()
	for i := 0; i < relayQueueSize*2; i++ {
		r.Publish(events.EventWatcherTick, events.Payload{})
	}
	if time.Since(start) > time.Second {
		t.Fatal("Publish blocked on a full queue")
	}
}

func TestNewMemoryBus(t *testing.T) {
	bus, err := New(&config.Config{EventBus: config.EventBusMemory}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sub := bus.Subscribe(events.EventWatcherTick)
	bus.Publish(events.EventWatcherTick, events.Payload{"n": 1})
	if len(sub) != 1 {
		t.Fatal("memory bus did not deliver")
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := New(&config.Config{EventBus: "kafka"}, zerolog.Nop()); err == nil {
		t.Fatal("expected unknown bus error")
	}
}

func TestRedisBusFallsBackWhenUnreachable(t *testing.T) {
	cfg := DefaultRedisConfig()
	cfg.Addr = "127.0.0.1:1"
	cfg.DialTimeout = 200 * time.Millisecond

	bus, err := NewRedisBus(cfg, "node-a", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRedisBus: %v", err)
	}
	defer bus.Close()

	if !bus.useFallback {
		t.Fatal("expected fallback mode")
	}
	sub := bus.Subscribe(events.EventBlockingEnded)
	bus.Publish(events.EventBlockingEnded, events.Payload{})
	if len(sub) != 1 {
		t.Fatal("local delivery must work without Redis")
	}
}

func TestRedisCircuitBreaker(t *testing.T) {
	rb := &RedisBus{relay: newRelay("redis", "n", zerolog.Nop()), maxFails: 2, checkInterval: time.Hour}
	defer rb.stop()

	rb.handleFailure()
	if rb.useFallback {
		t.Fatal("circuit opened too early")
	}
	rb.handleFailure()
	if !rb.useFallback {
		t.Fatal("circuit should open after maxFails")
	}
	if rb.available(context.Background()) {
		t.Fatal("circuit should stay open until the check interval passes")
	}
}

func TestMQTTTopics(t *testing.T) {
	mb := &MQTTBus{topic: "home/office"}
	if got := mb.eventTopic("blocking.started"); got != "home/office/events/blocking.started" {
		t.Fatalf("event topic = %q", got)
	}
	if got := mb.stateTopic(); got != "home/office/state" {
		t.Fatalf("state topic = %q", got)
	}

	tests := []struct {
		in    events.EventType
		state string
		ok    bool
	}{
		{events.EventBlockingStarted, "blocking", true},
		{events.EventBlockingEnded, "idle", true},
		{events.EventWatcherTick, "", false},
	}
	for _, tt := range tests {
		state, ok := stateFor(tt.in)
		if state != tt.state || ok != tt.ok {
			t.Errorf("stateFor(%s) = %q, %v", tt.in, state, ok)
		}
	}
}
