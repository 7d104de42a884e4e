/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/friendsincode/timegate/internal/events"
	"github.com/friendsincode/timegate/internal/telemetry"
	"github.com/rs/zerolog"
)

const relayQueueSize = 256

// sendFunc hands one encoded message to a remote backend.
type sendFunc func(ctx context.Context, msg *message, data []byte) error

// relay is the part every remote bus shares: local delivery, an outbound
// queue drained on its own goroutine, and inbound re-publishing.
type relay struct {
	local   *events.Bus
	nodeID  string
	backend string
	logger  zerolog.Logger

	queue  chan *message
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func newRelay(backend, nodeID string, logger zerolog.Logger) *relay {
	ctx, cancel := context.WithCancel(context.Background())
	return &relay{
		local:   events.NewBus(),
		nodeID:  nodeID,
		backend: backend,
		logger:  logger,
		queue:   make(chan *message, relayQueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Publish delivers locally and queues the event for the remote side. It never
// blocks; when the queue is full the remote copy is dropped.
func (r *relay) Publish(eventType events.EventType, payload events.Payload) {
	r.local.Publish(eventType, payload)

	select {
	case r.queue <- newMessage(eventType, payload, r.nodeID):
	default:
		telemetry.EventBusPublishErrorsTotal.WithLabelValues(r.backend).Inc()
	}
}

func (r *relay) Subscribe(eventType events.EventType) events.Subscriber {
	return r.local.Subscribe(eventType)
}

func (r *relay) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	r.local.Unsubscribe(eventType, sub)
}

// start drains the outbound queue through send.
func (r *relay) start(send sendFunc) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-r.ctx.Done():
				return
			case msg := <-r.queue:
				r.forward(send, msg)
			}
		}
	}()
}

func (r *relay) forward(send sendFunc, msg *message) {
	data, err := marshalMessage(msg)
	if err != nil {
		telemetry.EventBusPublishErrorsTotal.WithLabelValues(r.backend).Inc()
		r.logger.Error().Err(err).Str("event_type", string(msg.EventType)).Msg("failed to encode event")
		return
	}

	ctx, cancel := context.WithTimeout(r.ctx, 2*time.Second)
	defer cancel()
	if err := send(ctx, msg, data); err != nil {
		telemetry.EventBusPublishErrorsTotal.WithLabelValues(r.backend).Inc()
		r.logger.Debug().Err(err).Str("event_type", string(msg.EventType)).Msg("failed to forward event")
	}
}

// deliver re-publishes a remote message to local subscribers, skipping our
// own echoes.
func (r *relay) deliver(data []byte) {
	msg, err := unmarshalMessage(data)
	if err != nil {
		r.logger.Warn().Err(err).Msg("dropping malformed remote event")
		return
	}
	if msg.NodeID == r.nodeID {
		return
	}
	if msg.Payload == nil {
		msg.Payload = events.Payload{}
	}
	msg.Payload["node_id"] = msg.NodeID
	r.local.Publish(msg.EventType, msg.Payload)
}

// stop ends the outbound goroutine. Queued events are discarded.
func (r *relay) stop() {
	r.once.Do(func() {
		r.cancel()
		r.wg.Wait()
	})
}
